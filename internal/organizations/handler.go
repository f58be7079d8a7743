package organizations

import (
	"github.com/gin-gonic/gin"

	"github.com/clarovate/onboarding/internal/middleware"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an organizations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name      string `json:"organization_name" binding:"required"`
	HQCountry string `json:"hq_country"`
	ContactNo string `json:"contact_no"`
	Email     string `json:"email" binding:"omitempty,email"`
}

// Create handles POST /organizations.
func (h *Handler) Create(c *gin.Context) {
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org := &models.Organization{
		Name:      body.Name,
		Type:      models.OrganizationTypeClient,
		HQCountry: body.HQCountry,
		ContactNo: body.ContactNo,
		Email:     body.Email,
		CreatedBy: middleware.ActorID(c),
	}
	if err := h.svc.Create(c.Request.Context(), org); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// List handles GET /organizations.
func (h *Handler) List(c *gin.Context) {
	orgs, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, orgs)
}

// Get handles GET /organizations/:id.
func (h *Handler) Get(c *gin.Context) {
	org, err := h.svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Update handles PATCH /organizations/:id.
func (h *Handler) Update(c *gin.Context) {
	var body Update
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org, err := h.svc.Update(c.Request.Context(), c.Param("id"), body, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, org, "organization successfully updated")
}

// Delete handles DELETE /organizations/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
