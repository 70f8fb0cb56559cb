package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/sitelens/internal/app"
	"github.com/raysh454/sitelens/internal/history"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/sources"
)

// Server is the HTTP + WebSocket API surface.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	whois        app.WhoisLookup
	tracker      Tracker
	store        *history.Store
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// Tracker decides whether a visitor event should be recorded.
type Tracker interface {
	ShouldTrack(ctx context.Context, event *model.VisitorEvent) (*model.TrackDecision, error)
}

// NewServer wires the API around an existing orchestrator. whois, tracker
// and store may be nil; the matching endpoints then return 503.
func NewServer(cfg Config, orchestrator *app.Orchestrator, whois app.WhoisLookup, tracker Tracker, store *history.Store) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		whois:        whois,
		tracker:      tracker,
		store:        store,
		router:       chi.NewRouter(),
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/api/analyze", s.optionsHandler("GET"))
	r.Options("/api/compare", s.optionsHandler("POST"))
	r.Options("/api/track", s.optionsHandler("POST"))
	r.Options("/api/whois", s.optionsHandler("GET"))
	r.Options("/api/history", s.optionsHandler("GET"))
	r.Options("/api/leaderboard", s.optionsHandler("GET"))

	r.Get("/api/analyze", s.handleAnalyze)
	r.Post("/api/compare", s.handleCompare)
	r.Post("/api/track", s.handleTrack)
	r.Get("/api/whois", s.handleWhois)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Get("/api/health", s.handleHealth)

	r.Get("/ws/analyze", s.handleAnalyzeWS)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}
	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

// handleAnalyze godoc
// @Summary Analyze a website
// @Param url query string true "URL to analyze"
// @Param refresh query bool false "Bypass the cache and re-analyze"
// @Success 200 {object} model.AnalysisResult
// @Router /api/analyze [get]
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1" || r.URL.Query().Get("refresh") == "true"

	report, err := s.orchestrator.FullAnalysis(r.Context(), rawURL, refresh)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidURL):
			writeError(w, http.StatusBadRequest, "invalid url: only http and https are supported")
		case errors.Is(err, app.ErrTotalFailure):
			s.logger.Warn("analysis total failure", logging.Field{Key: "url", Value: rawURL})
			writeError(w, http.StatusInternalServerError, "could not analyze this URL")
		default:
			s.logger.Warn("analysis failed",
				logging.Field{Key: "url", Value: rawURL},
				logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusInternalServerError, "could not analyze this URL")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleCompare godoc
// @Summary Compare two websites
// @Success 200 {object} model.ComparisonResult
// @Router /api/compare [post]
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URLA    string `json:"urlA"`
		URLB    string `json:"urlB"`
		Refresh bool   `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URLA == "" || body.URLB == "" {
		writeError(w, http.StatusBadRequest, "both urlA and urlB are required")
		return
	}

	result, err := s.orchestrator.Compare(r.Context(), body.URLA, body.URLB, body.Refresh)
	if err != nil {
		if errors.Is(err, app.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "invalid url: only http and https are supported")
			return
		}
		s.logger.Warn("comparison failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "could not compare these URLs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleTrack godoc
// @Summary Submit a visitor event for the AI-gated tracking decision
// @Success 200 {object} model.TrackDecision
// @Router /api/track [post]
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "tracking not configured")
		return
	}

	var event model.VisitorEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if event.Timestamp == "" {
		writeError(w, http.StatusBadRequest, "timestamp is required")
		return
	}

	decision, err := s.tracker.ShouldTrack(r.Context(), &event)
	if err != nil {
		s.logger.Warn("track decision failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "try again later")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// handleWhois godoc
// @Summary WHOIS lookup for a domain
// @Param domainName query string true "Domain name"
// @Success 200 {object} model.WhoisRecord
// @Router /api/whois [get]
func (s *Server) handleWhois(w http.ResponseWriter, r *http.Request) {
	if s.whois == nil {
		writeError(w, http.StatusServiceUnavailable, "whois not configured")
		return
	}

	domain := r.URL.Query().Get("domainName")
	if domain == "" {
		writeError(w, http.StatusBadRequest, "missing domainName query parameter")
		return
	}

	result, err := s.whois.Lookup(r.Context(), domain)
	if err != nil {
		s.logger.Warn("whois lookup failed",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadGateway, sources.Sanitize(err))
		return
	}
	writeJSON(w, http.StatusOK, result.Record)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}

	limit := queryInt(r, "limit", 20)
	entries, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}

	limit := queryInt(r, "limit", 10)
	rows, err := s.store.Leaderboard(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing leaderboard", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyzeWS streams job events for a single analysis: the fast-pass
// report first, the full report when enrichment lands.
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1"

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	job := s.orchestrator.StartAnalysisJob(r.Context(), rawURL, refresh)
	s.logger.Info("started analysis job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "url", Value: rawURL})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
