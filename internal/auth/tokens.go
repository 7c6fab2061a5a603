package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 120 * time.Minute

const bearerPrefix = "Bearer "

type Claims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Failure is the typed outcome of a rejected token. Verification never
// returns an error so callers can fall back to an anonymous request.
type Failure int

const (
	FailureNone Failure = iota
	FailureMalformed
	FailureSignature
	FailureExpired
	FailureClaims
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureSignature:
		return "signature"
	case FailureExpired:
		return "expired"
	default:
		return "claims"
	}
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	ExpiresIn int64 // seconds
	ExpiresAt time.Time
}

var ErrInvalidClaims = errors.New("subject and role are required")

// TokenService issues and verifies HS256 tokens with a fixed lifetime.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	nowFunc func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, issuer string) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  issuer,
		nowFunc: time.Now,
	}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(subject, role string) (Issued, error) {
	subject = strings.TrimSpace(subject)
	role = strings.TrimSpace(role)
	if subject == "" || role == "" {
		return Issued{}, ErrInvalidClaims
	}

	now := s.nowFunc()
	exp := now.Add(s.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		Token:     token,
		ExpiresIn: int64(s.ttl / time.Second),
		ExpiresAt: exp,
	}, nil
}

// Verify checks the signature and expiry of token and extracts its principal.
// The role comes from the role claim, falling back to the first entry of roles.
func (s *TokenService) Verify(token string) (Principal, Failure) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, FailureMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, FailureClaims
	}

	subject := strings.TrimSpace(claims.Subject)
	role := strings.TrimSpace(claims.Role)
	if role == "" && len(claims.Roles) > 0 {
		role = strings.TrimSpace(claims.Roles[0])
	}
	if subject == "" || role == "" {
		return Principal{}, FailureClaims
	}
	return Principal{Subject: subject, Role: role}, FailureNone
}

func classify(err error) Failure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return FailureExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return FailureSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return FailureMalformed
	default:
		return FailureClaims
	}
}

// TokenFromHeader extracts the credential from an "Authorization: Bearer <token>"
// value. The prefix is matched exactly.
func TokenFromHeader(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
