package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/repository"
	"github.com/ffarras/multi-ad-login/internal/service"
)

// ProfileHandler exposes the admin CRUD surface over directory profiles.
type ProfileHandler struct {
	Profiles *service.ProfileService
	Logger   *zap.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Logger: logger}
}

type profileRequest struct {
	ProfileName       string   `json:"profile_name"`
	IsDefault         bool     `json:"is_default"`
	DomainIdentifier  string   `json:"domain_identifier"`
	BaseDN            string   `json:"base_dn"`
	DomainControllers []string `json:"domain_controllers"`
	Port              int      `json:"port"`
	UseTLS            bool     `json:"use_tls"`
	UseSSL            bool     `json:"use_ssl"`
	AllowSelfSigned   bool     `json:"allow_self_signed"`
	NetworkTimeout    int      `json:"network_timeout"`
	AccountSuffixes   []string `json:"account_suffixes"`
	BindUsername      string   `json:"bind_username"`
	BindPassword      string   `json:"bind_password"`
	ClearBindPassword bool     `json:"clear_bind_password"`
}

type profileResponse struct {
	ID                int64    `json:"id"`
	ProfileName       string   `json:"profile_name"`
	IsDefault         bool     `json:"is_default"`
	DomainIdentifier  string   `json:"domain_identifier,omitempty"`
	BaseDN            string   `json:"base_dn"`
	DomainControllers []string `json:"domain_controllers"`
	Port              int      `json:"port"`
	UseTLS            bool     `json:"use_tls"`
	UseSSL            bool     `json:"use_ssl"`
	AllowSelfSigned   bool     `json:"allow_self_signed"`
	NetworkTimeout    int      `json:"network_timeout"`
	AccountSuffixes   []string `json:"account_suffixes,omitempty"`
	BindUsername      string   `json:"bind_username,omitempty"`
	HasBindPassword   bool     `json:"has_bind_password"`
}

func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.Profiles.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	p, err := h.Profiles.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

func (h *ProfileHandler) Create(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}
	id, err := h.Profiles.Add(c.Request.Context(), toProfile(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.Profiles.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(p))
}

func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}
	if err := h.Profiles.Update(c.Request.Context(), id, toProfile(req), req.ClearBindPassword); err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.Profiles.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Profiles.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Profile id must be a positive integer."})
		return 0, false
	}
	return id, true
}

func (h *ProfileHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile", "error_description": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Profile not found."})
	default:
		h.Logger.Error("profile operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Profile store failure."})
	}
}

func toProfile(req profileRequest) domain.Profile {
	return domain.Profile{
		ProfileName:       req.ProfileName,
		IsDefault:         req.IsDefault,
		DomainIdentifier:  req.DomainIdentifier,
		BaseDN:            req.BaseDN,
		DomainControllers: req.DomainControllers,
		Port:              req.Port,
		UseTLS:            req.UseTLS,
		UseSSL:            req.UseSSL,
		AllowSelfSigned:   req.AllowSelfSigned,
		NetworkTimeout:    req.NetworkTimeout,
		AccountSuffixes:   req.AccountSuffixes,
		BindUsername:      req.BindUsername,
		BindPassword:      req.BindPassword,
	}
}

func toResponse(p domain.Profile) profileResponse {
	return profileResponse{
		ID:                p.ID,
		ProfileName:       p.ProfileName,
		IsDefault:         p.IsDefault,
		DomainIdentifier:  p.DomainIdentifier,
		BaseDN:            p.BaseDN,
		DomainControllers: p.DomainControllers,
		Port:              p.Port,
		UseTLS:            p.UseTLS,
		UseSSL:            p.UseSSL,
		AllowSelfSigned:   p.AllowSelfSigned,
		NetworkTimeout:    p.NetworkTimeout,
		AccountSuffixes:   p.AccountSuffixes,
		BindUsername:      p.BindUsername,
		HasBindPassword:   p.BindPassword != "",
	}
}
