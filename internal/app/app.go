// Package app provides the application lifecycle: wiring the HTTP
// server to the gin engine and coordinating startup/graceful shutdown,
// mirroring gpt-load's internal/app.App but trimmed to this proxy's
// single HTTP listener and dig-free of gpt-load's database/cache
// lifecycle (this proxy has no DB or Redis to migrate or close).
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/config"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
)

// BindError wraps a failure to acquire the listening socket, so main
// can map it to a distinct exit code for bind failures.
type BindError struct{ err error }

func (e *BindError) Error() string { return fmt.Sprintf("app: failed to bind: %v", e.err) }
func (e *BindError) Unwrap() error { return e.err }

// App owns the HTTP server and its graceful shutdown.
type App struct {
	engine     *gin.Engine
	config     *config.Config
	store      *configstore.Service
	httpServer *http.Server
}

// Params defines App's dig-injected dependencies.
type Params struct {
	dig.In
	Engine *gin.Engine
	Config *config.Config
	Store  *configstore.Service
}

// New is App's dig constructor.
func New(p Params) *App {
	return &App{engine: p.Engine, config: p.Config, store: p.Store}
}

// Start loads the persisted configuration document and brings the
// HTTP listener up in a background goroutine. It is non-blocking.
func (a *App) Start() error {
	if err := a.store.Load(); err != nil {
		return fmt.Errorf("app: failed to load configuration: %w", err)
	}

	port := a.config.Port
	if proxyPort := a.store.GetProxySettings().Port; proxyPort != 0 {
		port = proxyPort
	}

	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{err: err}
	}

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: a.config.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logrus.Infof("proxy listening on %s", addr)
		if err := a.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	return nil
}

// Stop gracefully shuts the HTTP server down, forcing it closed if ctx
// expires first.
func (a *App) Stop(ctx context.Context) {
	logrus.Info("shutting down server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("graceful shutdown timed out, forcing close")
		if closeErr := a.httpServer.Close(); closeErr != nil {
			logrus.WithError(closeErr).Error("error forcing server closed")
		}
	}
	logrus.Info("server exited")
}
