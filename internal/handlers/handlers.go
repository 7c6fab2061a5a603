package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/accounts"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/middleware"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/submissions"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/validation"
)

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	Accounts    *accounts.Service
	Submissions *submissions.Service
	Validator   *validatorv10.Validate
}

// RegisterRoutes registers the auth, submission and admin routes. Global
// middleware, including middleware.Authenticate, is installed by the caller.
func RegisterRoutes(r gin.IRouter, cfg HandlerConfig) {
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	h := &handler{cfg: cfg}

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.GET("/me", middleware.RequireAuthenticated(), h.me)

	r.POST("/api/sf/submit", middleware.RequireAuthenticated(), h.submit)

	admin := r.Group("/api/admin", middleware.RequireAuthority("ADMIN"))
	admin.GET("/users", h.listUsers)
	admin.PUT("/users/:username/password", h.changePassword)
}

type handler struct {
	cfg HandlerConfig
}

// writeError maps a flow error to its stable response. Unknown errors are
// logged with their op and never echoed to the caller.
func writeError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())

	switch {
	case errors.Is(err, accounts.ErrUserExists):
		logger.Info().Msg("duplicate registration")
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_exists"})
		return
	case errors.Is(err, accounts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "detail": validationDetail(err)})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case apperr.KindAuthentication:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case apperr.KindTransient:
		logger.Warn().Err(err).Msg("transient infrastructure failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
	default:
		logger.Error().Err(err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_error"})
	}
}

func validationDetail(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
