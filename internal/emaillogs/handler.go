package emaillogs

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/response"
)

// Lister is the read side of the email log store.
type Lister interface {
	List(ctx context.Context, recipient string, limit int) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	logs Lister
}

// NewHandler creates an email logs handler.
func NewHandler(logs Lister) *Handler {
	return &Handler{logs: logs}
}

// List handles GET /email-logs?recipient=&limit=.
func (h *Handler) List(c *gin.Context) {
	recipient := strings.ToLower(strings.TrimSpace(c.Query("recipient")))
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	logs, err := h.logs.List(c.Request.Context(), recipient, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}
