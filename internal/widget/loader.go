// Package widget loads third-party widget scripts once per process.
package widget

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/addrkit/internal/metrics"
	"github.com/sells-group/addrkit/internal/resilience"
)

// maxScriptBytes caps the size of a fetched script.
const maxScriptBytes = 4 << 20

type result struct {
	body []byte
	err  error
}

// Loader fetches scripts by URL. Concurrent callers for the same URL share
// one request, and the outcome (success or failure) is remembered until
// Forget is called. A failed load is never retried on its own.
type Loader struct {
	httpClient *http.Client
	group      singleflight.Group

	mu   sync.RWMutex
	done map[string]result
}

// NewLoader creates a Loader. A nil client gets a 10 second timeout.
func NewLoader(hc *http.Client) *Loader {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Loader{httpClient: hc, done: make(map[string]result)}
}

// Load returns the script body at url, fetching it at most once.
func (l *Loader) Load(ctx context.Context, url string) ([]byte, error) {
	if r, ok := l.cached(url); ok {
		return r.body, r.err
	}

	v, _, _ := l.group.Do(url, func() (any, error) {
		if r, ok := l.cached(url); ok {
			return r, nil
		}
		// The shared fetch must not die with whichever caller started it.
		body, err := l.fetch(context.WithoutCancel(ctx), url)
		r := result{body: body, err: err}
		if err != nil {
			metrics.WidgetLoads.WithLabelValues("error").Inc()
			zap.L().Error("widget: script load failed", zap.String("url", url), zap.Error(err))
		} else {
			metrics.WidgetLoads.WithLabelValues("ok").Inc()
			zap.L().Debug("widget: script loaded", zap.String("url", url), zap.Int("bytes", len(body)))
		}
		l.mu.Lock()
		l.done[url] = r
		l.mu.Unlock()
		return r, nil
	})
	r := v.(result)
	return r.body, r.err
}

// Loaded reports whether url has been loaded successfully.
func (l *Loader) Loaded(url string) bool {
	r, ok := l.cached(url)
	return ok && r.err == nil
}

// Forget drops the remembered outcome for url so the next Load fetches again.
func (l *Loader) Forget(url string) {
	l.mu.Lock()
	delete(l.done, url)
	l.mu.Unlock()
}

func (l *Loader) cached(url string) (result, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.done[url]
	return r, ok
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "widget: build request")
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "widget: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrap(resilience.StatusError("widget", resp.StatusCode), "widget: load")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "widget: read body")
	}
	if len(body) > maxScriptBytes {
		return nil, eris.Errorf("widget: script exceeds %d bytes", maxScriptBytes)
	}
	return body, nil
}
