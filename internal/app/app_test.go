package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/config"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/configstore"
	"github.com/Silver-Larry/droid-byok-unleashed/internal/encryption"
)

func newTestApp(t *testing.T, port int) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	enc, err := encryption.NewService("")
	require.NoError(t, err)
	store := configstore.New(filepath.Join(t.TempDir(), "proxy_config.json"), enc)
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	cfg := &config.Config{Host: "127.0.0.1", Port: port, UpstreamTimeout: time.Minute}
	return New(Params{Engine: engine, Config: cfg, Store: store})
}

func TestStartThenStop_ServesRequests(t *testing.T) {
	a := newTestApp(t, 0)
	require.NoError(t, a.Start())

	// Start binds the store's persisted proxy port whenever it is
	// non-zero; a fresh store defaults it to 8080, so that port is bound
	// here rather than Config.Port. The test only checks that Start and
	// Stop succeed.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.Stop(ctx)
}

func TestStart_BindFailureReturnsBindError(t *testing.T) {
	a1 := newTestApp(t, 18181)
	require.NoError(t, a1.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a1.Stop(ctx)
	}()

	a2 := newTestApp(t, 18181)
	err := a2.Start()
	require.Error(t, err)
	var bindErr *BindError
	assert.ErrorAs(t, err, &bindErr)
}
