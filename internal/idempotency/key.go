package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// DeriveKey fingerprints a logical request. Fields are trimmed and written in
// the order given, each prefixed with its length so that no two distinct field
// lists encode to the same bytes. The namespace separates event kinds sharing
// one ledger table.
func DeriveKey(namespace string, fields ...string) string {
	h := sha256.New()
	writeField(h, namespace)
	for _, f := range fields {
		writeField(h, strings.TrimSpace(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Field maps an optional value to its normalized form: nil and "" are equal.
func Field(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func writeField(w byteWriter, s string) {
	_, _ = w.Write([]byte(strconv.Itoa(len(s))))
	_, _ = w.Write([]byte{':'})
	_, _ = w.Write([]byte(s))
	_, _ = w.Write([]byte{'|'})
}
