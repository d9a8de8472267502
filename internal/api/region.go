package api

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/region"
)

type regionResponse struct {
	Detection model.Detection `json:"detection"`
	Kind      model.Kind      `json:"kind"`
	Error     string          `json:"error,omitempty"`
}

// handleRegion detects the caller's region. Upstream failures only degrade
// the detection and never fail the request.
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r, r.URL.Query().Get("tz"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	det := session.Detection()
	writeJSON(w, http.StatusOK, regionResponse{
		Detection: det,
		Kind:      model.KindForRegion(det.Region),
		Error:     session.Err(),
	})
}

// session runs detection for r. The query parameters force and auto
// override the configured defaults.
func (s *Server) session(r *http.Request, tz string) (*region.Session, error) {
	q := r.URL.Query()

	force := model.Region("")
	if f := strings.TrimSpace(s.deps.Region.Force); f != "" {
		force = model.Region(f)
	}
	if f := q.Get("force"); f != "" {
		parsed, ok := model.ParseRegion(f)
		if !ok {
			return nil, errBadParam("force", f)
		}
		force = parsed
	}

	auto := s.deps.Region.AutoDetect
	if a := q.Get("auto"); a != "" {
		v, err := strconv.ParseBool(a)
		if err != nil {
			return nil, errBadParam("auto", a)
		}
		auto = v
	}

	return s.deps.Detector.Detect(r.Context(), force, auto, signals(r, tz)), nil
}

// signals collects detection inputs from a request. Private and loopback
// addresses are not sent to the geolocation service.
func signals(r *http.Request, tz string) region.Signals {
	if tz == "" {
		tz = r.Header.Get("X-Timezone")
	}
	var langs []string
	if al := r.Header.Get("Accept-Language"); al != "" {
		langs = []string{al}
	}
	return region.Signals{
		IP:        publicIP(r.RemoteAddr),
		Timezone:  strings.TrimSpace(tz),
		Languages: langs,
	}
}

func publicIP(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return ""
	}
	return addr.String()
}
