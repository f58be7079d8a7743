package redemption

import (
	"github.com/gin-gonic/gin"

	"github.com/clarovate/onboarding/pkg/response"
)

// Handler handles the public invite endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a redemption handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RedeemRequest is the body for POST /invite/redeem.
type RedeemRequest struct {
	Token     string `json:"token" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
}

// Lookup handles GET /invite/:token.
func (h *Handler) Lookup(c *gin.Context) {
	inv, err := h.svc.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inv.ToPublic())
}

// Redeem handles POST /invite/redeem.
func (h *Handler) Redeem(c *gin.Context) {
	var body RedeemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	account, err := h.svc.Redeem(c.Request.Context(), RedeemInput{
		Token:     body.Token,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account.ToPublic())
}
