package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/service"
)

// AuthHandler exposes the credential-verification entry point.
type AuthHandler struct {
	Auth       *service.AuthService
	Reconciler *service.Reconciler
	Logger     *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, reconciler *service.Reconciler, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Reconciler: reconciler, Logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccountID   int64  `json:"account_id"`
	LoginName   string `json:"login_name"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Profile     string `json:"profile"`
}

// Login verifies a credential pair against the routed directory profile and
// returns the reconciled local account. Every failure path produces the same
// generic message; which stage failed is visible only in internal logs.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectLogin(c)
		return
	}

	result := h.Auth.Authenticate(c.Request.Context(), nil, req.Username, req.Password)
	if !result.Authenticated() {
		h.rejectLogin(c)
		return
	}

	account, err := h.Reconciler.Reconcile(c.Request.Context(), result.Record, req.Password, result.ProfileName)
	if err != nil {
		h.Logger.Error("account reconciliation failed",
			zap.String("profile", result.ProfileName), zap.Error(err))
		h.rejectLogin(c)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccountID:   account.ID,
		LoginName:   account.LoginName,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        account.Role,
		Profile:     result.ProfileName,
	})
}

func (h *AuthHandler) rejectLogin(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_login",
		"error_description": "Invalid username or password.",
	})
}
