package region

import (
	"context"
	"sync"

	"github.com/sells-group/addrkit/internal/model"
)

// Session holds one caller's detection state. It is safe for concurrent use.
type Session struct {
	detector   *Detector
	signals    Signals
	force      model.Region
	autoDetect bool

	mu        sync.RWMutex
	detection model.Detection
	loading   bool
	errMsg    string
	gen       uint64
}

// Detect resolves a region for sig. A non-empty force fixes the region with
// manual confidence. With autoDetect false the session starts at global
// with zero confidence. Otherwise the cascade runs before Detect returns.
func (d *Detector) Detect(ctx context.Context, force model.Region, autoDetect bool, sig Signals) *Session {
	s := &Session{
		detector:   d,
		signals:    sig,
		force:      force,
		autoDetect: autoDetect,
	}
	switch {
	case force != "":
		s.detection = model.ManualDetection(force)
	case !autoDetect:
		s.detection = model.Detection{
			Region:     model.RegionGlobal,
			Country:    model.UnknownCountry,
			Confidence: 0,
			Method:     model.MethodLanguage,
		}
	default:
		s.Redetect(ctx)
	}
	return s
}

// Detection returns the current detection.
func (s *Session) Detection() model.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detection
}

// IsLoading reports whether a cascade is running.
func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the user-facing error of the last cascade, or "".
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// SetRegion overrides the detection manually without running the cascade
// and clears any detection failure. A cascade still in flight is discarded
// when it finishes.
func (s *Session) SetRegion(r model.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.detection = model.ManualDetection(r)
	s.loading = false
	s.errMsg = ""
}

// Redetect reruns the cascade unless the region is forced or automatic
// detection is off. It returns the resulting detection.
func (s *Session) Redetect(ctx context.Context) model.Detection {
	if s.force != "" || !s.autoDetect {
		return s.Detection()
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	det, err := s.detector.Cascade(ctx, s.signals)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return s.detection
	}
	s.detection = det
	s.loading = false
	s.errMsg = ""
	if err != nil {
		s.errMsg = MsgDetectionFailed
	}
	return det
}
