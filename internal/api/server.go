// Package api provides the HTTP API for inspecting the arena.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/mini-mind/internal/agents"
	"github.com/talgya/mini-mind/internal/arena"
	"github.com/talgya/mini-mind/internal/engine"
	"github.com/talgya/mini-mind/internal/persistence"
)

const (
	defaultDecisionLimit = 50
	maxDecisionLimit     = 500
)

// Server serves arena state over HTTP.
type Server struct {
	Sim      *arena.Simulation
	Loop     *engine.Loop
	Journal  *persistence.Journal // optional; journal endpoints return 503 without it
	AdminKey string               // Bearer token for POST endpoints. Empty = POST disabled.

	limiter *RateLimiter
	router  chi.Router
	started time.Time
}

// New creates a server and builds its routes.
func New(sim *arena.Simulation, loop *engine.Loop, journal *persistence.Journal, adminKey string) *Server {
	s := &Server{
		Sim:      sim,
		Loop:     loop,
		Journal:  journal,
		AdminKey: adminKey,
		limiter:  NewRateLimiter(60, time.Minute),
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/agents", s.handleAgents)
		r.Get("/agent/{id}", s.handleAgent)
		r.Get("/memory", s.handleMemory)
		r.Get("/runs", s.handleRuns)
		r.With(s.limiter.Middleware).Get("/decisions", s.handleDecisions)

		r.Get("/speed", s.handleSpeed)
		r.With(s.adminOnly).Post("/speed", s.handleSpeed)
	})

	s.router = r
}

// Start serves the API on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no ARENA_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sum := s.Sim.Summary()
	writeJSON(w, map[string]any{
		"name":     "mini-mind",
		"run":      s.Sim.RunID,
		"frame":    sum.Frame,
		"sim_time": engine.SimTime(sum.Frame, s.Loop.Interval).Seconds(),
		"speed":    s.Loop.Speed(),
		"running":  s.Loop.Running(),
		"uptime":   time.Since(s.started).Seconds(),
		"journal":  s.Journal != nil,
		"summary":  sum,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	views := s.Sim.Agents()

	if state := r.URL.Query().Get("state"); state != "" {
		want, err := agents.ParseState(state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filtered := views[:0]
		for _, v := range views {
			if v.State == want {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}
	writeJSON(w, views)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	view, ok := s.Sim.Agent(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	resp := struct {
		arena.AgentView
		History []persistence.Record `json:"history,omitempty"`
	}{AgentView: view}

	if s.Journal != nil {
		history, err := s.Journal.DecisionsForAgent(id, 20)
		if err != nil {
			slog.Error("agent history query failed", "agent", id, "error", err)
		}
		resp.History = history
	}
	writeJSON(w, resp)
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	global := s.Sim.Engine.GlobalMemory()
	writeJSON(w, map[string]any{
		"decay_rate": global.Rate(),
		"entries":    global.Snapshot(),
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return
	}

	limit := defaultDecisionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxDecisionLimit)
	}

	var (
		records []persistence.Record
		err     error
	)
	if v := r.URL.Query().Get("agent"); v != "" {
		id, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			http.Error(w, "invalid agent id", http.StatusBadRequest)
			return
		}
		records, err = s.Journal.DecisionsForAgent(id, limit)
	} else {
		records, err = s.Journal.RecentDecisions(limit)
	}
	if err != nil {
		slog.Error("decision query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []persistence.Record{}
	}
	writeJSON(w, records)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.Journal.Runs()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Loop.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Loop.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
