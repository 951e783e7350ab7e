package handlers

import (
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

// Provider wires HTTP handlers.
type Provider struct {
	Patches *PatchHandler
	Tokens  *TokenHandler
	Health  *HealthHandler
}

func NewProvider(cfg *config.Config, patches PatchService, tokens TokenService, checks map[string]HealthCheck, log zerolog.Logger) *Provider {
	return &Provider{
		Patches: NewPatchHandler(cfg, patches, log),
		Tokens:  NewTokenHandler(tokens, log),
		Health:  NewHealthHandler(checks, log),
	}
}
