// Package container wires every component's dig providers together,
// mirroring gpt-load's internal/container.BuildContainer but scoped to
// this proxy's dependency graph: no database, no Redis, no
// master/slave split, just bootstrap config, the persisted
// configuration store, the thinking bus, the upstream HTTP client, the
// proxy router, the REST handler, the gin engine and the App.
package container

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/dig"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/app"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/config"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/encryption"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/handler"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/proxy"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/router"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/thinkingbus"
)

// BuildContainer constructs and returns a dig.Container with every
// provider registered. It does not invoke anything or bring up the
// HTTP listener; callers Invoke the dependencies they need.
func BuildContainer() (*dig.Container, error) {
	c := dig.New()

	providers := []any{
		config.Load,
		provideEncryption,
		provideConfigStore,
		thinkingbus.New,
		provideHTTPClient,
		proxy.New,
		handler.New,
		provideEngine,
		app.New,
	}

	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func provideEncryption(cfg *config.Config) (encryption.Service, error) {
	return encryption.NewService(cfg.EncryptionKey)
}

func provideConfigStore(cfg *config.Config, enc encryption.Service) *configstore.Service {
	return configstore.New(cfg.ConfigPath, enc)
}

func provideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.UpstreamTimeout}
}

func provideEngine(r *proxy.Router, h *handler.Handler, store *configstore.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return router.New(r, h, store)
}
