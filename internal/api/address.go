package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/provider"
	"github.com/sells-group/addrkit/internal/unified"
)

// handleAddress feeds a raw provider payload through the provider for the
// path kind. The body is null when the provider withholds emission.
func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	kind := model.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, "unknown address kind")
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := s.deps.Registry.New(kind, nil, provider.Callbacks{})
	if err != nil {
		zap.L().Error("api: build provider", zap.String("kind", string(kind)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "provider unavailable")
		return
	}
	if err := in.Apply(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAddress(w, r, in.Value())
}

type resolveRequest struct {
	Kind     model.Kind      `json:"kind"`
	Timezone string          `json:"timezone"`
	Payload  json.RawMessage `json:"payload"`
}

type resolveResponse struct {
	Status  unified.Status `json:"status"`
	Address *model.Address `json:"address"`
}

// handleResolve detects the caller's region, picks the provider the way the
// unified input does, and applies the payload to it. An explicit kind
// overrides the detection.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.session(r, req.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := unified.New(session, s.deps.Registry, nil, provider.Callbacks{})
	if err != nil {
		zap.L().Error("api: build unified input", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "provider unavailable")
		return
	}
	if req.Kind != "" {
		if err := u.Select(req.Kind); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		if err := u.Active().Apply(req.Payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, resolveResponse{Status: u.Status(), Address: u.Value()})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, eris.New("api: request body too large")
		}
		return nil, eris.Wrap(err, "api: read body")
	}
	return body, nil
}

// writeAddress writes a or, with ?format=geojson, a GeoJSON feature of it.
func writeAddress(w http.ResponseWriter, r *http.Request, a *model.Address) {
	if a == nil || r.URL.Query().Get("format") != "geojson" {
		writeJSON(w, http.StatusOK, a)
		return
	}
	f, err := model.Feature(a)
	if err != nil {
		zap.L().Error("api: encode feature", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode feature")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(f); err != nil {
		zap.L().Debug("api: encode feature response", zap.Error(err))
	}
}
