package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var publicRoutes = []string{"/api/auth/register", "/api/auth/login", "/health"}

func init() {
	gin.SetMode(gin.TestMode)
}

type countingVerifier struct {
	inner Verifier
	calls int
}

func (v *countingVerifier) Verify(token string) (auth.Principal, auth.Failure) {
	v.calls++
	return v.inner.Verify(token)
}

func newRequest(method, path, authz string) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	if authz != "" {
		r.Header.Set("Authorization", authz)
	}
	return r
}

func TestResolve(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour, "eventflow")
	issued, err := tokens.Issue("alice", "INSTRUCTOR")
	require.NoError(t, err)
	bearer := "Bearer " + issued.Token

	cases := []struct {
		name      string
		method    string
		path      string
		authz     string
		state     State
		verifies  bool
		authority string
	}{
		{"public route skips verification", http.MethodPost, "/api/auth/login", bearer, StateBypassed, false, ""},
		{"public prefix is case sensitive", http.MethodGet, "/HEALTH", bearer, StateVerified, true, "ROLE_INSTRUCTOR"},
		{"preflight", http.MethodOptions, "/api/sf/submit", bearer, StateBypassed, false, ""},
		{"missing header", http.MethodGet, "/api/auth/me", "", StateBypassed, false, ""},
		{"wrong scheme", http.MethodGet, "/api/auth/me", "Token " + issued.Token, StateBypassed, false, ""},
		{"valid token", http.MethodGet, "/api/auth/me", bearer, StateVerified, true, "ROLE_INSTRUCTOR"},
		{"garbage token", http.MethodGet, "/api/auth/me", "Bearer abc.def.ghi", StateRejected, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &countingVerifier{inner: tokens}
			a := NewAuthenticator(v, publicRoutes)

			d := a.Resolve(newRequest(tc.method, tc.path, tc.authz))
			assert.Equal(t, tc.state, d.State)
			assert.Equal(t, tc.verifies, v.calls == 1)
			assert.Equal(t, tc.authority, d.Principal.Authority)
			if tc.state != StateVerified {
				assert.True(t, d.Principal.Anonymous())
			}
		})
	}
}

func newRouter(a *Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(Authenticate(a))
	r.GET("/open", func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "subject": p.Subject})
	})
	r.GET("/me", RequireAuthenticated(), func(c *gin.Context) {
		p, _ := auth.PrincipalFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"subject": p.Subject, "authority": p.Authority})
	})
	r.GET("/admin", RequireAuthority("ADMIN"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate_RejectedTokenContinuesAnonymous(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour, "eventflow")
	r := newRouter(NewAuthenticator(tokens, publicRoutes))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newRequest(http.MethodGet, "/open", "Bearer not.a.token"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false,"subject":""}`, w.Body.String())
}

func TestRouteGuards(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour, "eventflow")
	student, err := tokens.Issue("sam", "STUDENT")
	require.NoError(t, err)
	admin, err := tokens.Issue("root", "ROLE_ADMIN")
	require.NoError(t, err)
	r := newRouter(NewAuthenticator(tokens, publicRoutes))

	cases := []struct {
		path   string
		authz  string
		status int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", "Bearer " + student.Token, http.StatusOK},
		{"/admin", "", http.StatusUnauthorized},
		{"/admin", "Bearer " + student.Token, http.StatusForbidden},
		{"/admin", "Bearer " + admin.Token, http.StatusNoContent},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newRequest(http.MethodGet, tc.path, tc.authz))
		assert.Equal(t, tc.status, w.Code, "%s with %q", tc.path, tc.authz)
	}
}
