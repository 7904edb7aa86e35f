// Package middleware provides the gin middleware chain: recovery,
// structured request logging, and proxy-key auth, mirroring gpt-load's
// internal/middleware (Auth, Recovery, Logger) trimmed to this proxy's
// single bearer-token auth model ("Authorization: Bearer <proxy_api_key>")
// instead of gpt-load's per-group key pool.
package middleware

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Silver-Larry/droid-byok-unleashed/internal/errors"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/response"
)

// monitoringPaths bypass auth so uptime checks don't need a key.
var monitoringPaths = map[string]bool{"/health": true}

// Auth enforces the proxy's bearer-token contract: if apiKey is
// empty, every request is allowed; otherwise the Authorization header
// must carry "Bearer <apiKey>" exactly.
func Auth(apiKey func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if monitoringPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := apiKey()
		if key == "" {
			c.Next()
			return
		}

		provided := extractBearer(c.GetHeader("Authorization"))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return ""
}

// Recovery converts a panic anywhere downstream into a canonical 500
// instead of tearing down the server.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logrus.WithField("panic", recovered).Error("panic recovered")
		response.Error(c, apperrors.ErrInternal)
		c.Abort()
	})
}

// Logger logs one line per request at a level chosen by status code,
// after the handler runs so a later-set model/profile context field
// is available.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if monitoringPaths[path] && c.Writer.Status() < 400 {
			return
		}

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if model, ok := c.Get("resolved_model"); ok {
			fields["model"] = model
		}
		if profileID, ok := c.Get("resolved_profile_id"); ok {
			fields["profile_id"] = profileID
		}

		entry := logrus.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}
