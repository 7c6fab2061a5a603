package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/accounts"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/middleware"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/validation"
)

func (h *handler) register(c *gin.Context) {
	var req validation.RegisterRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	ctx := c.Request.Context()
	err := h.cfg.Accounts.Register(ctx, accounts.RegisterInput{
		Username:      req.Username,
		Password:      req.Password,
		Role:          req.Role,
		CorrelationID: middleware.RequestID(ctx),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) login(c *gin.Context) {
	var req validation.LoginRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}

	res, err := h.cfg.Accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":        res.Token,
		"expiresInSec": res.ExpiresIn,
		"username":     res.Username,
		"role":         res.Role,
	})
}

func (h *handler) me(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c.Request.Context())
	roles := []string{}
	if p.Authority != "" {
		roles = append(roles, p.Authority)
	}
	c.JSON(http.StatusOK, gin.H{
		"principal": p.Subject,
		"roles":     roles,
	})
}
