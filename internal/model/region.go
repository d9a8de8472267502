package model

import "strings"

// Region is the coarse classification that decides which address entry
// strategy is offered.
type Region string

const (
	RegionKorea  Region = "korea"
	RegionGlobal Region = "global"
)

// ParseRegion maps a user-supplied string onto a Region.
func ParseRegion(s string) (Region, bool) {
	switch Region(strings.ToLower(strings.TrimSpace(s))) {
	case RegionKorea:
		return RegionKorea, true
	case RegionGlobal:
		return RegionGlobal, true
	default:
		return "", false
	}
}

// DetectionMethod records which signal produced a Detection.
type DetectionMethod string

const (
	MethodIP       DetectionMethod = "ip"
	MethodTimezone DetectionMethod = "timezone"
	MethodLanguage DetectionMethod = "language"
	MethodManual   DetectionMethod = "manual"
)

// UnknownCountry is reported when no signal could name a country.
const UnknownCountry = "unknown"

// Detection is the outcome of one region detection pass. Detections are
// replaced wholesale, never patched.
type Detection struct {
	Region     Region          `json:"region" yaml:"region"`
	Country    string          `json:"country" yaml:"country"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Method     DetectionMethod `json:"method" yaml:"method"`
}

// ManualDetection returns the fixed-confidence detection used for forced and
// user-selected regions.
func ManualDetection(r Region) Detection {
	country := UnknownCountry
	if r == RegionKorea {
		country = "KR"
	}
	return Detection{Region: r, Country: country, Confidence: 1.0, Method: MethodManual}
}
