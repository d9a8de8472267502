package resilience

import (
	"time"

	"github.com/sells-group/addrkit/internal/config"
)

// BreakerConfigFromGeoIP builds the breaker settings guarding the IP
// geolocation service. Zero values fall back to the defaults.
func BreakerConfigFromGeoIP(cfg config.GeoIPConfig) CircuitBreakerConfig {
	out := DefaultCircuitBreakerConfig()
	out.Name = "geoip"
	if cfg.FailureThreshold > 0 {
		out.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		out.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	return out
}
