// Package router assembles the gin.Engine: global middleware followed
// by route registration, mirroring gpt-load's internal/router (one
// NewRouter constructor, one register* function per route group)
// trimmed to this proxy's endpoint set and without gpt-load's
// embedded frontend.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/handler"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/middleware"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/proxy"
)

// New builds the gin.Engine serving every route this proxy exposes.
func New(router *proxy.Router, h *handler.Handler, config *configstore.Service) *gin.Engine {
	engine := gin.New()

	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Auth(func() string { return config.GetProxySettings().APIKey }))

	registerSystemRoutes(engine, h)
	registerChatRoutes(engine, router)
	registerConfigRoutes(engine, h)

	return engine
}

func registerSystemRoutes(engine *gin.Engine, h *handler.Handler) {
	engine.GET("/health", h.Health)
	engine.GET("/v1/models", h.ListModels)
	engine.GET("/v1/thinking/stream", h.ThinkingStream)
}

func registerChatRoutes(engine *gin.Engine, router *proxy.Router) {
	engine.POST("/v1/chat/completions", router.HandleChatCompletions)
}

func registerConfigRoutes(engine *gin.Engine, h *handler.Handler) {
	cfg := engine.Group("/v1/config")
	{
		cfg.GET("/reasoning/types", h.ReasoningTypes)

		cfg.GET("/proxy", h.GetProxySettings)
		cfg.PUT("/proxy", h.PutProxySettings)

		cfg.GET("/profiles", h.ListProfiles)
		cfg.POST("/profiles", h.CreateProfile)
		cfg.POST("/profiles/test", h.TestProfile)
		cfg.GET("/profiles/:id", h.GetProfile)
		cfg.PUT("/profiles/:id", h.PutProfile)
		cfg.DELETE("/profiles/:id", h.DeleteProfile)

		cfg.PUT("/default-profile", h.PutDefaultProfile)

		cfg.GET("/export", h.Export)
		cfg.POST("/import", h.Import)
	}
}
