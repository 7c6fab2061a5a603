package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/middleware"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/submissions"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/validation"
)

func (h *handler) submit(c *gin.Context) {
	var req validation.SubmitRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}

	ctx := c.Request.Context()
	res, err := h.cfg.Submissions.Submit(ctx, submissions.Input{
		FullName:      req.FullName,
		Email:         req.Email,
		Message:       req.Message,
		CorrelationID: middleware.RequestID(ctx),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": res.Outcome.String()})
}
