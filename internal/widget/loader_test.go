package widget

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "window.daum = {};")
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	url := srv.URL + "/postcode.v2.js"

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := l.Load(context.Background(), url)
			assert.NoError(t, err)
			assert.Equal(t, "window.daum = {};", string(body))
		}()
	}
	wg.Wait()

	_, err := l.Load(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, l.Loaded(url))
}

func TestLoad_FailureIsRememberedUntilForget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	l := NewLoader(nil)
	url := srv.URL + "/script.js"

	_, err := l.Load(context.Background(), url)
	require.Error(t, err)
	_, err = l.Load(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "no automatic retry")
	assert.False(t, l.Loaded(url))

	l.Forget(url)
	body, err := l.Load(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestLoad_CanceledCallerDoesNotPoisonResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(srv.Client())
	body, err := l.Load(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestLoad_OversizedScriptFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := maxScriptBytes
		if r.URL.Path == "/big.js" {
			size++
		}
		_, _ = io.WriteString(w, strings.Repeat("a", size))
	}))
	defer srv.Close()

	l := NewLoader(nil)

	_, err := l.Load(context.Background(), srv.URL+"/big.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
	assert.False(t, l.Loaded(srv.URL+"/big.js"))

	body, err := l.Load(context.Background(), srv.URL+"/exact.js")
	require.NoError(t, err)
	assert.Len(t, body, maxScriptBytes)
}
