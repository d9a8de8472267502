package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/addrkit/internal/catalog"
	"github.com/sells-group/addrkit/internal/model"
)

type countriesResponse struct {
	Countries []model.Country `json:"countries"`
	Error     string          `json:"error,omitempty"`
}

// handleCountries lists the catalog. ?major=true returns the pinned
// countries only and ?q= searches; neither includes the separator.
func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Catalog.Ensure(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, countriesResponse{Countries: []model.Country{}, Error: catalog.MsgLoadFailed})
		return
	}

	q := r.URL.Query()
	if m := q.Get("major"); m != "" {
		major, perr := strconv.ParseBool(m)
		if perr != nil {
			writeError(w, http.StatusBadRequest, errBadParam("major", m).Error())
			return
		}
		if major {
			list = s.deps.Catalog.Major()
		}
	}
	if _, ok := q["q"]; ok {
		list = s.deps.Catalog.Search(q.Get("q"))
	}
	writeJSON(w, http.StatusOK, countriesResponse{Countries: list})
}

func (s *Server) handleRefreshCountries(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Catalog.ForceRefresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, countriesResponse{Countries: []model.Country{}, Error: catalog.MsgLoadFailed})
		return
	}
	writeJSON(w, http.StatusOK, countriesResponse{Countries: list})
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Catalog.Ensure(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, catalog.MsgLoadFailed)
		return
	}
	code := chi.URLParam(r, "code")
	c, ok := s.deps.Catalog.ByCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, "country not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
