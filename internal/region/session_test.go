package region

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/pkg/geoip"
)

func TestDetect_Forced(t *testing.T) {
	loc := new(mockLocator)
	s := NewDetector(loc).Detect(context.Background(), model.RegionKorea, true, Signals{IP: "1.1.1.1"})

	assert.Equal(t, model.Detection{Region: model.RegionKorea, Country: "KR", Confidence: 1.0, Method: model.MethodManual}, s.Detection())
	assert.Equal(t, s.Detection(), s.Redetect(context.Background()))
	loc.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestDetect_AutoDetectDisabled(t *testing.T) {
	loc := new(mockLocator)
	s := NewDetector(loc).Detect(context.Background(), "", false, Signals{IP: "1.1.1.1", Languages: []string{"ko"}})

	want := model.Detection{Region: model.RegionGlobal, Country: model.UnknownCountry, Confidence: 0, Method: model.MethodLanguage}
	assert.Equal(t, want, s.Detection())
	assert.Equal(t, want, s.Redetect(context.Background()))
	assert.False(t, s.IsLoading())
	loc.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestDetect_RunsCascade(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "1.1.1.1").Return(&geoip.Location{CountryCode: "JP"}, nil).Once()

	s := NewDetector(loc).Detect(context.Background(), "", true, Signals{IP: "1.1.1.1"})
	assert.Equal(t, "JP", s.Detection().Country)
	assert.Empty(t, s.Err())
	assert.False(t, s.IsLoading())
	loc.AssertExpectations(t)
}

func TestSession_ErrorThenRecovery(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "1.1.1.1").Return(nil, errors.New("i/o timeout")).Once()
	loc.On("Lookup", mock.Anything, "1.1.1.1").Return(&geoip.Location{CountryCode: "KR"}, nil).Once()

	s := NewDetector(loc).Detect(context.Background(), "", true, Signals{IP: "1.1.1.1", Timezone: "UTC"})
	assert.Equal(t, MsgDetectionFailed, s.Err())
	assert.Equal(t, model.MethodLanguage, s.Detection().Method)

	det := s.Redetect(context.Background())
	assert.Equal(t, model.MethodIP, det.Method)
	assert.Equal(t, model.RegionKorea, det.Region)
	assert.Empty(t, s.Err())
	loc.AssertExpectations(t)
}

func TestSession_SetRegion(t *testing.T) {
	s := NewDetector(nil).Detect(context.Background(), "", true, Signals{Languages: []string{"ko"}})
	assert.Equal(t, model.RegionKorea, s.Detection().Region)

	s.SetRegion(model.RegionGlobal)
	assert.Equal(t, model.ManualDetection(model.RegionGlobal), s.Detection())
}

func TestSession_SetRegionClearsDetectionError(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Lookup", mock.Anything, "1.1.1.1").Return(nil, errors.New("i/o timeout")).Once()

	s := NewDetector(loc).Detect(context.Background(), "", true, Signals{IP: "1.1.1.1"})
	assert.Equal(t, MsgDetectionFailed, s.Err())

	s.SetRegion(model.RegionKorea)
	assert.Empty(t, s.Err())
	assert.Equal(t, model.ManualDetection(model.RegionKorea), s.Detection())
	loc.AssertExpectations(t)
}

// blockingLocator parks Lookup until released so a manual override can land
// while the cascade is in flight.
type blockingLocator struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLocator) Lookup(context.Context, string) (*geoip.Location, error) {
	close(b.entered)
	<-b.release
	return &geoip.Location{CountryCode: "US"}, nil
}

func TestSession_SetRegionSupersedesInflightCascade(t *testing.T) {
	d := NewDetector(nil)
	s := d.Detect(context.Background(), "", true, Signals{})

	bl := &blockingLocator{entered: make(chan struct{}), release: make(chan struct{})}
	d.locator = bl
	s.signals = Signals{IP: "1.1.1.1"}

	done := make(chan model.Detection)
	go func() { done <- s.Redetect(context.Background()) }()

	<-bl.entered
	assert.True(t, s.IsLoading())
	s.SetRegion(model.RegionKorea)
	close(bl.release)

	<-done
	assert.Equal(t, model.ManualDetection(model.RegionKorea), s.Detection())
	assert.False(t, s.IsLoading())
}
