package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrkit/internal/catalog"
	"github.com/sells-group/addrkit/internal/config"
	"github.com/sells-group/addrkit/internal/provider"
	"github.com/sells-group/addrkit/internal/region"
	"github.com/sells-group/addrkit/internal/resilience"
	"github.com/sells-group/addrkit/internal/store"
	"github.com/sells-group/addrkit/internal/widget"
	"github.com/sells-group/addrkit/pkg/geoip"
	"github.com/sells-group/addrkit/pkg/restcountries"
)

// appEnv holds the services shared by every command.
type appEnv struct {
	Cache    store.Cache
	Catalog  *catalog.Catalog
	Detector *region.Detector
	Breaker  *resilience.CircuitBreaker
	Loader   *widget.Loader
	Registry *provider.Registry
}

// Close releases the cache backend.
func (e *appEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// initEnv validates cfg for mode and wires the cache, upstream clients,
// catalog, detector and provider registry. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	cache, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}

	var dirOpts []restcountries.Option
	if c.Countries.BaseURL != "" {
		dirOpts = append(dirOpts, restcountries.WithBaseURL(c.Countries.BaseURL))
	}
	if c.Countries.TimeoutSecs > 0 {
		dirOpts = append(dirOpts, restcountries.WithTimeout(seconds(c.Countries.TimeoutSecs)))
	}
	if c.Countries.RateLimit > 0 {
		dirOpts = append(dirOpts, restcountries.WithRateLimit(c.Countries.RateLimit))
	}
	dir := restcountries.NewClient(dirOpts...)
	cat := catalog.New(dir, cache,
		catalog.WithPriority(c.Countries.Priority),
		catalog.WithCacheKey(c.Countries.CacheKey),
		catalog.WithTTL(time.Duration(c.Countries.CacheTTLHours)*time.Hour),
	)

	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfigFromGeoIP(c.GeoIP))
	geoOpts := []geoip.Option{geoip.WithCircuitBreaker(breaker)}
	if c.GeoIP.BaseURL != "" {
		geoOpts = append(geoOpts, geoip.WithBaseURL(c.GeoIP.BaseURL))
	}
	if c.GeoIP.TimeoutSecs > 0 {
		geoOpts = append(geoOpts, geoip.WithTimeout(seconds(c.GeoIP.TimeoutSecs)))
	}
	if c.GeoIP.RateLimit > 0 {
		geoOpts = append(geoOpts, geoip.WithRateLimit(c.GeoIP.RateLimit))
	}
	locator := geoip.NewClient(geoOpts...)
	det := region.NewDetector(locator, region.WithThresholds(c.Region.IPThreshold, c.Region.TimezoneThreshold))

	var hc *http.Client
	if c.Postcode.TimeoutSecs > 0 {
		hc = &http.Client{Timeout: seconds(c.Postcode.TimeoutSecs)}
	}
	loader := widget.NewLoader(hc)
	reg := provider.NewRegistry(provider.Deps{
		Countries:      cat,
		DefaultCountry: c.Direct.DefaultCountry,
		Loader:         loader,
		ScriptURL:      c.Postcode.ScriptURL,
	})

	zap.L().Debug("environment ready",
		zap.String("store", c.Store.Driver),
		zap.String("countries", c.Countries.BaseURL),
		zap.String("geoip", c.GeoIP.BaseURL),
	)

	return &appEnv{
		Cache:    cache,
		Catalog:  cat,
		Detector: det,
		Breaker:  breaker,
		Loader:   loader,
		Registry: reg,
	}, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
