package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrkit/internal/api"
	"github.com/sells-group/addrkit/internal/config"
	"github.com/sells-group/addrkit/internal/provider"
	"github.com/sells-group/addrkit/internal/widget"
)

func TestResolvePort_FlagSet(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
}

func TestResolvePort_FlagZero(t *testing.T) {
	assert.Equal(t, 8080, resolvePort(0, 8080))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := testEnv(t, sampleDirectory())
	handler := api.New(api.Deps{
		Catalog:  env.Catalog,
		Detector: env.Detector,
		Registry: env.Registry,
		Region:   config.RegionConfig{AutoDetect: true},
	}).Router()

	// Find a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, handler, port)
	}()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err, "server did not become ready in time")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestWarmUp_LoadsCatalogAndScript(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("/* postcode */"))
	}))
	defer cdn.Close()

	env := testEnv(t, sampleDirectory())
	deps := env.Registry.Deps()
	deps.Loader = widget.NewLoader(nil)
	deps.ScriptURL = cdn.URL
	env.Registry = provider.NewRegistry(deps)

	warmUp(context.Background(), env)

	assert.NotEmpty(t, env.Catalog.Countries())
	assert.True(t, deps.Loader.Loaded(cdn.URL))
}

func TestWarmUp_FailuresAreNotFatal(t *testing.T) {
	dir := sampleDirectory()
	dir.err = fmt.Errorf("directory down")
	env := testEnv(t, dir)

	assert.NotPanics(t, func() { warmUp(context.Background(), env) })
	assert.Empty(t, env.Catalog.Countries())
	assert.NotEmpty(t, env.Catalog.Err())
}
