package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/requests"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/responses"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// TokenService is the part of actiontoken.Service used over HTTP.
type TokenService interface {
	Issue(ctx context.Context) (*actiontoken.Issued, error)
	IsEnabled(ctx context.Context, id string) (bool, error)
	Enable(ctx context.Context, id, secret string) (*actiontoken.ActionToken, error)
}

// TokenHandler exposes the action token registry.
type TokenHandler struct {
	service TokenService
	log     zerolog.Logger
}

func NewTokenHandler(service TokenService, log zerolog.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		log:     log.With().Str("component", "token-handler").Logger(),
	}
}

func (h *TokenHandler) Issue(c *gin.Context) {
	issued, err := h.service.Issue(c.Request.Context())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, responses.TokenIssuedResponse{
		ID:        issued.ID,
		Secret:    issued.Secret,
		ExpiresAt: issued.ExpiresAt,
	})
}

func (h *TokenHandler) Status(c *gin.Context) {
	id := c.Param("id")
	enabled, err := h.service.IsEnabled(c.Request.Context(), id)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.TokenStatusResponse{ID: id, Enabled: enabled})
}

// Enable switches a token on. Enabling an already enabled token succeeds with
// already_enabled set.
func (h *TokenHandler) Enable(c *gin.Context) {
	var req requests.EnableTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	id := c.Param("id")
	token, err := h.service.Enable(c.Request.Context(), id, req.Secret)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.TokenEnabledResponse{
		ID:             id,
		Enabled:        true,
		AlreadyEnabled: token == nil,
	})
}
