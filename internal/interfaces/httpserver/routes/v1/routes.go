package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	tokens := group.Group("/action-tokens")
	tokens.POST("", r.handlers.Tokens.Issue)
	tokens.GET("/:id", r.handlers.Tokens.Status)
	tokens.POST("/:id/enable", r.handlers.Tokens.Enable)

	patches := group.Group("/patches")
	patches.POST("", r.handlers.Patches.Submit)
	patches.GET("/:uuid", r.handlers.Patches.Get)
	patches.POST("/:uuid/moderation", r.handlers.Patches.Moderate)
}

// RegisterFiles attaches the unversioned file download route.
func (r *Routes) RegisterFiles(router gin.IRouter) {
	router.GET("/files/:uuid/:name", r.handlers.Patches.File)
}
