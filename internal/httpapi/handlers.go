package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// TacticsResponse is the tracked tactic order
type TacticsResponse struct {
	Prepare []string `json:"prepare"`
	Act     []string `json:"act"`
	Total   []string `json:"total"`
}

// TechniquesResponse lists the techniques matching a filter
type TechniquesResponse struct {
	Domain     model.Domain      `json:"domain"`
	Tactic     string            `json:"tactic,omitempty"`
	Platform   string            `json:"platform,omitempty"`
	Query      string            `json:"q,omitempty"`
	Count      int               `json:"count"`
	Techniques []model.Technique `json:"techniques"`
}

// TechniqueResponse is one technique with its sub-techniques
type TechniqueResponse struct {
	Technique     model.Technique   `json:"technique"`
	Subtechniques []model.Technique `json:"subtechniques"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// tactics handles GET /api/v1/tactics
func (s *Server) tactics(w http.ResponseWriter, r *http.Request) {
	tracker, err := s.client.TacticOrder(r.Context(), false)
	if err != nil {
		s.respondFetchError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, TacticsResponse{
		Prepare: nonNil(tracker.Prepare()),
		Act:     nonNil(tracker.Act()),
		Total:   nonNil(tracker.Total()),
	})
}

// techniques handles GET /api/v1/domains/{domain}/techniques
func (s *Server) techniques(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMatrix(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	resp := TechniquesResponse{
		Domain:   m.Domain,
		Tactic:   q.Get("tactic"),
		Platform: q.Get("platform"),
		Query:    q.Get("q"),
	}
	resp.Techniques = m.Filter(resp.Tactic, resp.Platform, resp.Query)
	resp.Count = len(resp.Techniques)
	s.respondJSON(w, http.StatusOK, resp)
}

// technique handles GET /api/v1/domains/{domain}/techniques/{id}
func (s *Server) technique(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMatrix(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	t, found := m.Find(id)
	if !found {
		s.respondError(w, http.StatusNotFound, "technique not found", fmt.Errorf("%s is not in the %s matrix", id, m.Domain))
		return
	}

	resp := TechniqueResponse{Technique: t, Subtechniques: []model.Technique{}}
	if !t.IsSubtechnique {
		prefix := t.TechniqueID + "."
		for _, st := range m.Techniques {
			if strings.HasPrefix(st.TechniqueID, prefix) {
				resp.Subtechniques = append(resp.Subtechniques, st)
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// matrix handles GET /api/v1/domains/{domain}/matrix
func (s *Server) matrix(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMatrix(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

// stats handles GET /api/v1/domains/{domain}/stats
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMatrix(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, m.Stats())
}

// layer handles GET /api/v1/domains/{domain}/layer. The same filters as the
// techniques listing narrow the layer.
func (s *Server) layer(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMatrix(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	tactic, platform, query := q.Get("tactic"), q.Get("platform"), q.Get("q")

	name := q.Get("name")
	if name == "" {
		name = "attack-tui " + m.Domain.String()
	}
	desc := describeFilter(tactic, platform, query)

	var layer *matrix.Layer
	if tactic == "" && platform == "" && query == "" {
		layer = m.Layer(name, desc)
	} else {
		list := m.Filter(tactic, platform, query)
		ids := make([]string, 0, len(list))
		for _, t := range list {
			ids = append(ids, t.TechniqueID)
		}
		var platforms []string
		if platform != "" {
			platforms = []string{platform}
		}
		layer = matrix.NewLayer(name, desc, m.Domain, ids, platforms)
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(m.Domain)+"_layer.json"))
	s.respondJSON(w, http.StatusOK, layer)
}

// refresh handles POST /api/v1/refresh
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.client.Refresh(r.Context()); err != nil {
		s.respondFetchError(w, err)
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("datasets refreshed")
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "refreshed",
		"duration": time.Since(start).String(),
	})
}

// loadMatrix resolves the {domain} parameter and fetches its matrix, writing
// the error reply itself when it fails
func (s *Server) loadMatrix(w http.ResponseWriter, r *http.Request) (matrix.Matrix, bool) {
	raw := chi.URLParam(r, "domain")
	domain, ok := model.ParseDomain(raw)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "unknown domain", fmt.Errorf("%w: %q", api.ErrUnknownDomain, raw))
		return matrix.Matrix{}, false
	}
	m, err := s.client.Matrix(r.Context(), domain, false)
	if err != nil {
		s.respondFetchError(w, err)
		return matrix.Matrix{}, false
	}
	return m, true
}

func describeFilter(tactic, platform, query string) string {
	var parts []string
	if tactic != "" {
		parts = append(parts, "tactic="+tactic)
	}
	if platform != "" {
		parts = append(parts, "platform="+platform)
	}
	if query != "" {
		parts = append(parts, "q="+query)
	}
	if len(parts) == 0 {
		return "All techniques"
	}
	return "Techniques with " + strings.Join(parts, ", ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// respondFetchError maps a dataset error onto a status code
func (s *Server) respondFetchError(w http.ResponseWriter, err error) {
	var statusErr *api.StatusError
	switch {
	case errors.Is(err, api.ErrUnknownDomain):
		s.respondError(w, http.StatusBadRequest, "unknown domain", err)
	case errors.As(err, &statusErr):
		s.respondError(w, http.StatusBadGateway, "dataset unavailable", err)
	default:
		s.respondError(w, http.StatusInternalServerError, "failed to load dataset", err)
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		s.logger.Warn().Err(err).Int("status", status).Msg(message)
	}
	s.respondJSON(w, status, resp)
}
