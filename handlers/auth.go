package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chapterhub/chapterhub/internal/auth"
	"github.com/chapterhub/chapterhub/internal/config"
	"github.com/chapterhub/chapterhub/internal/members"
	"github.com/chapterhub/chapterhub/pkg/logger"
	"github.com/chapterhub/chapterhub/pkg/middleware"
)

// LoginRequest carries member credentials for password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the single refresh-token field of the renewal wire contract
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg        *config.Config
	membersSvc *members.Service
	authSvc    *auth.Service
}

func NewAuthHandler(cfg *config.Config, m *members.Service, a *auth.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, membersSvc: m, authSvc: a}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func respondError(c *gin.Context, status int, label, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": label, "message": message})
}

// Login authenticates a member by email/password and issues a session pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed_request", err.Error())
		return
	}
	m, err := h.membersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Errorf("member authentication lookup failed: %v", err)
		respondError(c, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	if m == nil {
		// unknown email and wrong password answer identically
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if !m.Active {
		respondError(c, http.StatusUnauthorized, "inactive_member", "member is inactive")
		return
	}
	pair, err := h.authSvc.IssueSession(c.Request.Context(), m)
	if err != nil {
		logger.Errorf("failed to issue session: %v", err)
		respondError(c, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}
	// camelCase response to match the frontend LoginResponse shape
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"member":       m,
		"expiresIn":    int(h.authSvc.AccessTTL().Seconds()),
	})
}

// Refresh consumes a refresh token once and returns a brand-new token pair.
// This handler is the only place internal renewal outcomes are translated
// into HTTP statuses.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed_request", err.Error())
		return
	}
	pair, err := h.authSvc.Renew(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenRevoked):
			respondError(c, http.StatusUnauthorized, "revoked_token", "invalid or expired token")
		case errors.Is(err, auth.ErrTokenInvalid):
			respondError(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		case errors.Is(err, auth.ErrMemberInactive):
			respondError(c, http.StatusUnauthorized, "inactive_member", "member is inactive")
		case errors.Is(err, auth.ErrMemberNotFound):
			respondError(c, http.StatusNotFound, "member_not_found", "member not found")
		default:
			logger.Errorf("renewal failed: %v", err)
			respondError(c, http.StatusInternalServerError, "internal", "renewal failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    int(h.authSvc.AccessTTL().Seconds()),
	})
}

// Logout revokes the refresh token and shadows the presented access token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed_request", err.Error())
		return
	}
	access := middleware.BearerToken(c.Request)
	if err := h.authSvc.Logout(c.Request.Context(), req.RefreshToken, access); err != nil {
		logger.Errorf("logout failed: %v", err)
		respondError(c, http.StatusInternalServerError, "internal", "logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
