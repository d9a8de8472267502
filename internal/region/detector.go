// Package region guesses whether a caller should be offered Korean or
// international address entry.
package region

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/sells-group/addrkit/internal/metrics"
	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/pkg/geoip"
)

// MsgDetectionFailed is shown when the IP lookup failed and a weaker signal
// was used instead.
const MsgDetectionFailed = "Automatic region detection failed. Please select your region manually."

const (
	ipConfidence         = 0.9
	koreaTZConfidence    = 0.7
	otherTZConfidence    = 0.3
	koreanLangConfidence = 0.6
	otherLangConfidence  = 0.2
)

// Default thresholds a signal's confidence must exceed to end the cascade.
const (
	DefaultIPThreshold       = 0.8
	DefaultTimezoneThreshold = 0.6
)

var koreanTimezones = map[string]bool{
	"Asia/Seoul":     true,
	"Asia/Pyongyang": true,
}

var koreanCountries = map[string]bool{
	"KR": true,
	"KP": true,
}

// Signals are the inputs available about a caller.
type Signals struct {
	// IP is looked up when set.
	IP string
	// LookupSelf asks the geolocation service about the calling host when IP
	// is empty.
	LookupSelf bool
	// Timezone is an IANA zone name.
	Timezone string
	// Languages holds language tags or Accept-Language header values in
	// preference order.
	Languages []string
}

// Option configures a Detector.
type Option func(*Detector)

// WithThresholds overrides the IP and timezone acceptance thresholds.
func WithThresholds(ip, timezone float64) Option {
	return func(d *Detector) {
		d.ipThreshold = ip
		d.tzThreshold = timezone
	}
}

// Detector runs the IP, timezone, language cascade.
type Detector struct {
	locator     geoip.Locator
	ipThreshold float64
	tzThreshold float64
}

// NewDetector creates a Detector. A nil locator skips the IP step.
func NewDetector(locator geoip.Locator, opts ...Option) *Detector {
	d := &Detector{
		locator:     locator,
		ipThreshold: DefaultIPThreshold,
		tzThreshold: DefaultTimezoneThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cascade returns the first detection whose confidence clears its step's
// threshold, ending with the language step which always succeeds. The
// returned error reports a failed IP lookup; the detection is still valid.
func (d *Detector) Cascade(ctx context.Context, sig Signals) (model.Detection, error) {
	det, ipErr := d.byIP(ctx, sig)
	if ipErr == nil && det.Confidence > d.ipThreshold {
		return d.accept(det), nil
	}
	if ipErr != nil {
		zap.L().Warn("region: ip lookup failed, using weaker signals",
			zap.String("ip", sig.IP), zap.Error(ipErr))
	}

	det = byTimezone(sig.Timezone)
	if det.Confidence > d.tzThreshold {
		return d.accept(det), ipErr
	}
	zap.L().Debug("region: timezone below threshold",
		zap.String("timezone", sig.Timezone), zap.Float64("confidence", det.Confidence))

	return d.accept(byLanguage(sig.Languages)), ipErr
}

func (d *Detector) accept(det model.Detection) model.Detection {
	metrics.RegionDetections.WithLabelValues(string(det.Method), string(det.Region)).Inc()
	return det
}

// byIP returns a zero detection when the step does not apply.
func (d *Detector) byIP(ctx context.Context, sig Signals) (model.Detection, error) {
	if d.locator == nil || (sig.IP == "" && !sig.LookupSelf) {
		return model.Detection{}, nil
	}
	loc, err := d.locator.Lookup(ctx, sig.IP)
	if err != nil {
		return model.Detection{}, err
	}
	code := strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	if code == "" {
		return model.Detection{}, nil
	}
	r := model.RegionGlobal
	if koreanCountries[code] {
		r = model.RegionKorea
	}
	return model.Detection{Region: r, Country: code, Confidence: ipConfidence, Method: model.MethodIP}, nil
}

func byTimezone(tz string) model.Detection {
	if koreanTimezones[strings.TrimSpace(tz)] {
		return model.Detection{Region: model.RegionKorea, Country: "KR", Confidence: koreaTZConfidence, Method: model.MethodTimezone}
	}
	return model.Detection{Region: model.RegionGlobal, Country: model.UnknownCountry, Confidence: otherTZConfidence, Method: model.MethodTimezone}
}

func byLanguage(langs []string) model.Detection {
	if hasKorean(langs) {
		return model.Detection{Region: model.RegionKorea, Country: "KR", Confidence: koreanLangConfidence, Method: model.MethodLanguage}
	}
	return model.Detection{Region: model.RegionGlobal, Country: model.UnknownCountry, Confidence: otherLangConfidence, Method: model.MethodLanguage}
}

var koreanBase = language.MustParseBase("ko")

func hasKorean(langs []string) bool {
	for _, raw := range langs {
		tags, _, err := language.ParseAcceptLanguage(raw)
		if err != nil {
			// Unparseable entries still count when they name Korean.
			v := strings.ToLower(strings.TrimSpace(raw))
			if v == "ko" || strings.HasPrefix(v, "ko-") || strings.HasPrefix(v, "ko_") {
				return true
			}
			continue
		}
		for _, tag := range tags {
			if base, _ := tag.Base(); base == koreanBase {
				return true
			}
		}
	}
	return false
}
