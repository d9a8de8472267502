package api

import (
	"net/http"

	"github.com/sells-group/addrkit/internal/provider"
)

// handlePostcodeScript serves the postcode widget script from the
// process-wide loader. A failed load stays failed until restart.
func (s *Server) handlePostcodeScript(w http.ResponseWriter, r *http.Request) {
	deps := s.deps.Registry.Deps()
	if deps.Loader == nil {
		writeError(w, http.StatusNotFound, "postcode search is not configured")
		return
	}

	k := provider.NewKoreaInput(deps, nil, provider.Callbacks{})
	if err := k.Prepare(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, k.Err())
		return
	}
	body, err := deps.Loader.Load(r.Context(), deps.WidgetURL())
	if err != nil {
		writeError(w, http.StatusBadGateway, provider.MsgScriptFailed)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
