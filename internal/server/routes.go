package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scythe504/mafia-backend/internal/game"
	"github.com/scythe504/mafia-backend/internal/sessions"
	"github.com/scythe504/mafia-backend/internal/utils"
	ws "github.com/scythe504/mafia-backend/internal/websocket"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	inviteSize        = 256
	defaultGamesLimit = 20
	maxGamesLimit     = 100
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet, http.MethodOptions)

	r.Handle("/ws", ws.NewHandler(s.hub, s.registry, s.logger.Named("ws")))

	r.HandleFunc("/rooms/{code}", s.roomHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/{code}/invite.png", s.inviteHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/sessions/{token}", s.sessionHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/games/recent", s.recentGamesHandler).Methods(http.MethodGet, http.MethodOptions)

	r.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS Headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Wildcard allows all origins
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false") // Credentials not allowed with wildcard origins

		// If it's a websocket upgrade, skip further CORS checks
		if isUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upgrades need the raw writer for hijacking; the socket logs its own lifecycle.
		if isUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)))
	})
}

func isUpgrade(r *http.Request) bool {
	return strings.ToLower(r.Header.Get("Upgrade")) == "websocket"
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":      "ok",
		"rooms":       s.registry.Len(),
		"connections": s.hub.Len(),
	}
	status := http.StatusOK
	if s.db != nil {
		dbHealth := s.db.Health()
		resp["database"] = dbHealth
		if dbHealth["status"] != "up" {
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) roomHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	snap, err := s.registry.Snapshot(code)
	if errors.Is(err, game.ErrRoomNotFound) {
		s.writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		s.logger.Error("[roomHandler] snapshot failed", zap.String("room", code), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) inviteHandler(w http.ResponseWriter, r *http.Request) {
	code := utils.NormalizeRoomCode(mux.Vars(r)["code"])
	if s.registry.Lookup(code) == nil {
		s.writeError(w, http.StatusNotFound, "room not found")
		return
	}

	link := strings.TrimRight(s.cfg.PublicURL, "/") + "/?room=" + code
	png, err := qrcode.Encode(link, qrcode.Medium, inviteSize)
	if err != nil {
		s.logger.Error("[inviteHandler] qr encode failed", zap.String("room", code), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

type sessionResponse struct {
	RoomCode string    `json:"room_code"`
	IssuedAt time.Time `json:"issued_at"`
	Live     bool      `json:"live"`
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	entry, err := s.directory.Get(r.Context(), token)
	if errors.Is(err, sessions.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("[sessionHandler] directory lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{
		RoomCode: entry.RoomCode,
		IssuedAt: entry.IssuedAt,
		Live:     s.registry.Lookup(entry.RoomCode) != nil,
	})
}

func (s *Server) recentGamesHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "game archive is not configured")
		return
	}

	limit := defaultGamesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxGamesLimit)
	}

	games, err := s.db.RecentGames(r.Context(), limit)
	if err != nil {
		s.logger.Error("[recentGamesHandler] query failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, games)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("[writeJSON] encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
