package invitations

import (
	"github.com/gin-gonic/gin"

	"github.com/clarovate/onboarding/internal/middleware"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/response"
)

// Handler handles invitation HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an invitations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SendRequest is the body for POST /sendinvitation. The issuer is taken from
// the verified token, never from the body.
type SendRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Role           string `json:"role" binding:"required,oneof=ADMIN CO_ADMIN USER SUPERVISOR DESIGNER DATA_ENGINEER"`
	Type           string `json:"type" binding:"omitempty,oneof=INTERNAL CLIENT"`
	OrganizationID string `json:"organization_id"`
}

// ResendRequest is the body for POST /resendinvitation.
type ResendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Send handles POST /sendinvitation.
func (h *Handler) Send(c *gin.Context) {
	var body SendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Issue(c.Request.Context(), IssueInput{
		Email:          body.Email,
		Role:           models.Role(body.Role),
		Type:           models.InvitationType(body.Type),
		OrganizationID: body.OrganizationID,
		CreatedBy:      middleware.ActorID(c),
	})
	if err != nil {
		renderFailure(c, res, err)
		return
	}
	response.Created(c, res)
}

// Resend handles POST /resendinvitation.
func (h *Handler) Resend(c *gin.Context) {
	var body ResendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Resend(c.Request.Context(), body.Email, middleware.ActorID(c))
	if err != nil {
		renderFailure(c, res, err)
		return
	}
	response.OKMessage(c, res, res.Message)
}

// List handles GET /invitations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /invitations/:email.
func (h *Handler) Delete(c *gin.Context) {
	ok, err := h.svc.Delete(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.NotFound(c, "invitation not found")
		return
	}
	response.NoContent(c)
}

func renderFailure(c *gin.Context, res *Result, err error) {
	if res == nil {
		response.Error(c, err)
		return
	}
	response.ErrorWithData(c, err, res)
}
