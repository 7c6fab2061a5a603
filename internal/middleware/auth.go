package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/metrics"
)

// Verifier checks a bearer token. Implemented by auth.TokenService.
type Verifier interface {
	Verify(token string) (auth.Principal, auth.Failure)
}

// State is the terminal state of the per-request auth machine.
type State int

const (
	StateBypassed State = iota
	StateVerified
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateVerified:
		return "verified"
	case StateRejected:
		return "rejected"
	default:
		return "bypassed"
	}
}

// Decision is what the authenticator concluded for one request.
type Decision struct {
	State     State
	Principal auth.Principal
	Failure   auth.Failure
}

// Authenticator resolves the principal of a request from its bearer token.
// It never fails a request; route guards enforce access afterwards.
type Authenticator struct {
	verifier     Verifier
	publicRoutes []string
}

func NewAuthenticator(v Verifier, publicRoutes []string) *Authenticator {
	return &Authenticator{verifier: v, publicRoutes: publicRoutes}
}

// Resolve runs the state machine for r. It performs no I/O.
func (a *Authenticator) Resolve(r *http.Request) Decision {
	if r.Method == http.MethodOptions || a.isPublic(r.URL.Path) {
		return Decision{State: StateBypassed}
	}

	token, ok := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if !ok {
		return Decision{State: StateBypassed}
	}

	p, failure := a.verifier.Verify(token)
	if failure != auth.FailureNone {
		return Decision{State: StateRejected, Failure: failure}
	}
	p.Authority = auth.Authority(p.Role)
	return Decision{State: StateVerified, Principal: p}
}

func (a *Authenticator) isPublic(path string) bool {
	for _, prefix := range a.publicRoutes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Authenticate attaches the verified principal to the request context.
func Authenticate(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := a.Resolve(c.Request)
		metrics.AuthDecisions.WithLabelValues(d.State.String()).Inc()

		switch d.State {
		case StateVerified:
			ctx := auth.WithPrincipal(c.Request.Context(), d.Principal)
			logger := zerolog.Ctx(ctx).With().Str("subject", d.Principal.Subject).Logger()
			c.Request = c.Request.WithContext(logger.WithContext(ctx))
		case StateRejected:
			zerolog.Ctx(c.Request.Context()).Debug().
				Str("failure", d.Failure.String()).
				Str("path", c.Request.URL.Path).
				Msg("token rejected, continuing anonymous")
		}
		c.Next()
	}
}

// RequireAuthenticated aborts anonymous requests with 401.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.PrincipalFrom(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireAuthority aborts anonymous requests with 401 and principals lacking
// every listed authority with 403. Authorities may be given with or without
// the ROLE_ prefix.
func RequireAuthority(authorities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !p.HasAuthority(authorities...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
