package region

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/resilience"
	"github.com/sells-group/addrkit/pkg/geoip"
)

type mockLocator struct {
	mock.Mock
}

func (m *mockLocator) Lookup(ctx context.Context, ip string) (*geoip.Location, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geoip.Location), args.Error(1)
}

func TestCascade_IPWinsOverOtherSignals(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "203.0.113.1").Return(&geoip.Location{CountryCode: "US"}, nil)

	d := NewDetector(loc)
	det, err := d.Cascade(context.Background(), Signals{
		IP:        "203.0.113.1",
		Timezone:  "Asia/Seoul",
		Languages: []string{"ko-KR"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Detection{Region: model.RegionGlobal, Country: "US", Confidence: 0.9, Method: model.MethodIP}, det)
	loc.AssertExpectations(t)
}

func TestCascade_IPKorea(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "211.1.1.1").Return(&geoip.Location{CountryCode: "kr"}, nil)

	det, err := NewDetector(loc).Cascade(context.Background(), Signals{IP: "211.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, model.RegionKorea, det.Region)
	assert.Equal(t, "KR", det.Country)
	assert.Equal(t, model.MethodIP, det.Method)
}

func TestCascade_IPFailureFallsBackToTimezone(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "203.0.113.1").Return(nil, errors.New("geoip: request: connection refused"))

	det, err := NewDetector(loc).Cascade(context.Background(), Signals{
		IP:        "203.0.113.1",
		Timezone:  "Asia/Seoul",
		Languages: []string{"en-US"},
	})
	require.Error(t, err)
	assert.Equal(t, model.Detection{Region: model.RegionKorea, Country: "KR", Confidence: 0.7, Method: model.MethodTimezone}, det)
}

func TestCascade_IPFailureFallsBackToLanguage(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, mock.Anything).Return(nil, resilience.ErrCircuitOpen)

	det, err := NewDetector(loc).Cascade(context.Background(), Signals{
		IP:        "203.0.113.1",
		Timezone:  "Europe/Berlin",
		Languages: []string{"de-DE", "ko;q=0.5"},
	})
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, model.Detection{Region: model.RegionKorea, Country: "KR", Confidence: 0.6, Method: model.MethodLanguage}, det)
}

func TestCascade_NoCountryCodeSkipsIP(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "").Return(&geoip.Location{}, nil)

	det, err := NewDetector(loc).Cascade(context.Background(), Signals{LookupSelf: true, Timezone: "Asia/Pyongyang"})
	require.NoError(t, err)
	assert.Equal(t, model.MethodTimezone, det.Method)
	assert.Equal(t, model.RegionKorea, det.Region)
}

func TestCascade_SkipsIPWithoutAddress(t *testing.T) {
	loc := new(mockLocator)

	det, err := NewDetector(loc).Cascade(context.Background(), Signals{Timezone: "America/New_York"})
	require.NoError(t, err)
	assert.Equal(t, model.Detection{Region: model.RegionGlobal, Country: model.UnknownCountry, Confidence: 0.2, Method: model.MethodLanguage}, det)
	loc.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestCascade_NilLocator(t *testing.T) {
	det, err := NewDetector(nil).Cascade(context.Background(), Signals{IP: "1.1.1.1", LookupSelf: true})
	require.NoError(t, err)
	assert.Equal(t, model.MethodLanguage, det.Method)
}

func TestCascade_Thresholds(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "1.1.1.1").Return(&geoip.Location{CountryCode: "US"}, nil)

	// An IP threshold above 0.9 rejects the IP step.
	d := NewDetector(loc, WithThresholds(0.95, 0.5))
	det, err := d.Cascade(context.Background(), Signals{IP: "1.1.1.1", Timezone: "Asia/Seoul"})
	require.NoError(t, err)
	assert.Equal(t, model.MethodTimezone, det.Method)
}

func TestHasKorean(t *testing.T) {
	tests := []struct {
		langs []string
		want  bool
	}{
		{nil, false},
		{[]string{"en-US", "en"}, false},
		{[]string{"ko"}, true},
		{[]string{"ko-KR"}, true},
		{[]string{"en-US,en;q=0.9,ko;q=0.8"}, true},
		{[]string{"ko_KR"}, true},
		{[]string{"kok"}, false},
		{[]string{"ja-JP"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hasKorean(tt.langs), "%v", tt.langs)
	}
}
