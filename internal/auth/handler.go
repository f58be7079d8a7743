package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/middleware"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/response"
)

// AccountStore is the subset of Repository the handler needs.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context) ([]models.AccountPublic, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// PasswordChecker verifies a plain password against its stored hash.
type PasswordChecker interface {
	Check(plain, hashed string) bool
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string               `json:"token"`
	User  models.AccountPublic `json:"user"`
}

// ActiveRequest is the body for PATCH /users/:id/active.
type ActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Handler handles auth and account HTTP endpoints.
type Handler struct {
	accounts AccountStore
	checker  PasswordChecker
	jwt      *JWTService
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(accounts AccountStore, checker PasswordChecker, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{accounts: accounts, checker: checker, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.accounts.GetByEmail(c.Request.Context(), models.NormalizeEmail(req.Email))
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	if user == nil || !h.checker.Check(req.Password, user.PasswordHash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !user.IsActive {
		response.Forbidden(c, "account is disabled")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.accounts.GetByID(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.accounts.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// SetActive handles PATCH /users/:id/active (admin only).
func (h *Handler) SetActive(c *gin.Context) {
	var req ActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "active required")
		return
	}
	ok, err := h.accounts.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.NotFound(c, "user not found")
		return
	}
	response.OKMessage(c, gin.H{"id": c.Param("id"), "active": *req.Active}, "user successfully updated")
}
