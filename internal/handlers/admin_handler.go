package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/validation"
)

type userView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *handler) listUsers(c *gin.Context) {
	all, err := h.cfg.Accounts.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	users := make([]userView, 0, len(all))
	for _, a := range all {
		users = append(users, userView{Username: a.Username, Role: a.Role, Source: a.Source, CreatedAt: a.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *handler) changePassword(c *gin.Context) {
	var req validation.ChangePasswordRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}
	if err := h.cfg.Accounts.ChangePassword(c.Request.Context(), c.Param("username"), req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
