// Package main provides the entry point for the proxy server.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/app"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/config"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/container"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/utils"
)

func main() {
	c, err := container.BuildContainer()
	if err != nil {
		logrus.WithError(err).Error("failed to build container")
		os.Exit(2)
	}

	if err := c.Invoke(func(cfg *config.Config) {
		utils.SetupLogger(cfg.LogConfig())
	}); err != nil {
		logrus.WithError(err).Error("failed to load configuration")
		os.Exit(2)
	}

	exitCode := 0
	if err := c.Invoke(func(application *app.App, cfg *config.Config) {
		if err := application.Start(); err != nil {
			var bindErr *app.BindError
			if errors.As(err, &bindErr) {
				logrus.WithError(err).Error("failed to bind listener")
				exitCode = 1
				return
			}
			logrus.WithError(err).Error("failed to start application")
			exitCode = 2
			return
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		sig := <-quit
		logrus.Infof("received signal: %v, shutting down...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			application.Stop(shutdownCtx)
			close(done)
		}()

		select {
		case <-done:
			logrus.Info("graceful shutdown completed")
		case <-quit:
			logrus.Warn("second interrupt received, forcing exit")
			exitCode = 1
		case <-shutdownCtx.Done():
			logrus.Warn("shutdown timeout exceeded, forcing exit")
			exitCode = 1
		}
	}); err != nil {
		logrus.WithError(err).Error("failed to run application")
		exitCode = 2
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
