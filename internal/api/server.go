package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"shortcircuit/internal/config"
	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
	"shortcircuit/internal/navigation"
	"shortcircuit/internal/version"
)

const autocompleteLimit = 15

// Server is the local HTTP API in front of the navigator.
type Server struct {
	cfg   *config.Config
	nav   *navigation.Navigator
	mu    sync.RWMutex
	ready bool

	checkVersion func(ctx context.Context, url string) (*version.Release, error)
}

// NewServer creates a Server. Route endpoints answer 503 until SetNavigator is
// called.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{cfg: cfg, checkVersion: version.Check}
}

// SetNavigator is called when the reference data finishes loading.
func (s *Server) SetNavigator(nav *navigation.Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav = nav
	s.ready = nav != nil
}

func (s *Server) navigator() *navigation.Navigator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil
	}
	return s.nav
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/systems/autocomplete", s.handleAutocomplete)
	mux.HandleFunc("POST /api/route", s.handleRoute)
	mux.HandleFunc("POST /api/route/weighted", s.handleRouteWeighted)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// --- Handlers ---

type feedStatus struct {
	Name  string `json:"name"`
	Count int    `json:"count"` // -1 when the feed failed
	Error string `json:"error,omitempty"`
}

type refreshResponse struct {
	Feeds      []feedStatus   `json:"feeds"`
	Counts     map[string]int `json:"counts"`
	Published  bool           `json:"published"`
	DurationMS int64          `json:"duration_ms"`
	Wormholes  int            `json:"wormholes"`
}

func newRefreshResponse(res *navigation.RefreshResult, g *graph.Graph) refreshResponse {
	out := refreshResponse{
		Feeds:      make([]feedStatus, 0, len(res.Feeds)),
		Counts:     make(map[string]int, len(res.Feeds)),
		Published:  res.Published,
		DurationMS: res.Duration.Milliseconds(),
		Wormholes:  g.WormholeCount(),
	}
	for _, f := range res.Feeds {
		fs := feedStatus{Name: f.Name, Count: res.Count(f.Name)}
		if f.Err != nil {
			fs.Error = f.Err.Error()
		}
		out.Feeds = append(out.Feeds, fs)
		out.Counts[f.Name] = fs.Count
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	nav := s.navigator()
	result := map[string]interface{}{
		"ready":   nav != nil,
		"version": version.Current,
	}
	if nav != nil {
		g := nav.Graph()
		result["systems"] = len(nav.Data().Systems)
		result["gates"] = len(nav.Data().Gates)
		result["wormholes"] = g.WormholeCount()
		result["generation"] = nav.Generation()
		result["feeds"] = nav.Sources()
		if last := nav.LastRefresh(); last != nil {
			result["last_refresh"] = newRefreshResponse(last, g)
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	nav := s.navigator()
	if q == "" || nav == nil {
		writeJSON(w, map[string][]string{"systems": {}})
		return
	}
	result := nav.Data().Search(q, autocompleteLimit)
	if result == nil {
		result = []string{}
	}
	writeJSON(w, map[string][]string{"systems": result})
}

type routeRequest struct {
	Source         string                `json:"source"`
	Destination    string                `json:"destination"`
	Avoid          []string              `json:"avoid"`
	Sizes          []string              `json:"sizes"` // omitted = all sizes
	IgnoreEOL      bool                  `json:"ignore_eol"`
	IgnoreMassCrit bool                  `json:"ignore_masscrit"`
	AgeThreshold   float64               `json:"age_threshold"` // hours, 0 = any age
	Risk           *navigation.RiskTable `json:"risk"`
}

func (req routeRequest) toRequest() (navigation.Request, error) {
	out := navigation.Request{
		Source:      req.Source,
		Destination: req.Destination,
		Avoid:       req.Avoid,
		Restrictions: graph.Restrictions{
			Sizes:          graph.AllSizes,
			IgnoreEOL:      req.IgnoreEOL,
			IgnoreMassCrit: req.IgnoreMassCrit,
			AgeThreshold:   req.AgeThreshold,
		},
	}
	if req.Sizes != nil {
		sizes := make([]graph.Size, 0, len(req.Sizes))
		for _, name := range req.Sizes {
			sz, ok := graph.ParseSize(name)
			if !ok {
				return out, fmt.Errorf("unknown size %q", name)
			}
			sizes = append(sizes, sz)
		}
		out.Restrictions.Sizes = graph.NewSizeSet(sizes...)
	}
	if req.AgeThreshold < 0 {
		return out, errors.New("age_threshold must be >= 0")
	}
	return out, nil
}

func (s *Server) decodeRoute(w http.ResponseWriter, r *http.Request) (*navigation.Navigator, *routeRequest, navigation.Request, bool) {
	var body routeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid json")
		return nil, nil, navigation.Request{}, false
	}
	nav := s.navigator()
	if nav == nil {
		writeError(w, 503, "reference data not loaded yet")
		return nil, nil, navigation.Request{}, false
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, 400, err.Error())
		return nil, nil, navigation.Request{}, false
	}
	return nav, &body, req, true
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	nav, _, req, ok := s.decodeRoute(w, r)
	if !ok {
		return
	}
	route, err := nav.Route(req)
	if err != nil {
		writeRouteError(w, err)
		return
	}
	writeJSON(w, route)
}

func (s *Server) handleRouteWeighted(w http.ResponseWriter, r *http.Request) {
	nav, body, req, ok := s.decodeRoute(w, r)
	if !ok {
		return
	}
	risk := s.cfg.Risk
	if body.Risk != nil {
		risk = *body.Risk
	}
	route, err := nav.RouteWeighted(req, risk)
	if err != nil {
		writeRouteError(w, err)
		return
	}
	writeJSON(w, route)
}

func writeRouteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, navigation.ErrUnknownSystem), errors.Is(err, navigation.ErrNoRoute):
		writeError(w, 404, err.Error())
	case errors.Is(err, navigation.ErrInvalidRisk):
		writeError(w, 400, err.Error())
	default:
		logger.Error("API", fmt.Sprintf("Route failed: %v", err))
		writeError(w, 500, err.Error())
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	nav := s.navigator()
	if nav == nil {
		writeError(w, 503, "reference data not loaded yet")
		return
	}
	// The build is shared with concurrent callers, so it must outlive this
	// request; the feed timeouts bound it.
	res := nav.Refresh(context.WithoutCancel(r.Context()))
	writeJSON(w, newRefreshResponse(res, nav.Graph()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	nav := s.navigator()
	if nav == nil {
		writeError(w, 503, "reference data not loaded yet")
		return
	}
	nav.Reset()
	logger.Info("API", "Chain reset to gates only")
	writeJSON(w, map[string]interface{}{"generation": nav.Generation(), "wormholes": 0})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	rel, err := s.checkVersion(r.Context(), s.cfg.VersionURL)
	if err != nil {
		writeError(w, 502, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{
		"current": version.Current,
		"latest":  rel.Tag,
		"url":     rel.URL,
		"newer":   rel.Newer,
	})
}

// AutoRefresh refreshes nav every interval until ctx is cancelled. A refresh
// that is still running when the next tick fires is joined, not restarted.
func AutoRefresh(ctx context.Context, nav *navigation.Navigator, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger.Info("Refresh", fmt.Sprintf("Auto-refresh every %s", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		nav.Refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
