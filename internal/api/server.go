package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"campushub/internal/directory"
	"campushub/internal/room"
	"campushub/pkg/types"
)

// Server exposes the hub's read-only projections over HTTP: a health
// probe, the room selector list and runtime counters. No business logic
// lives here, only HTTP handling and JSON serialization.
type Server struct {
	rooms     *room.Registry
	directory *directory.Directory
	origin    string
	router    *http.ServeMux
}

func NewServer(rooms *room.Registry, dir *directory.Directory, allowedOrigin string) *Server {
	s := &Server{
		rooms:     rooms,
		directory: dir,
		origin:    allowedOrigin,
		router:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/rooms", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleRooms))))
	s.router.Handle("/api/stats", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleStats))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleRooms serves GET /api/rooms with an optional ?category= filter.
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		category := r.URL.Query().Get("category")

		var rooms []*types.RoomSummary
		if category == "" {
			rooms = s.rooms.List()
		} else if types.IsValidCategory(category) {
			rooms = s.rooms.ListByCategory(category)
		} else {
			s.sendError(w, "Unknown category", http.StatusBadRequest)
			return
		}
		if rooms == nil {
			rooms = []*types.RoomSummary{}
		}

		s.sendJSON(w, map[string]any{"rooms": rooms}, http.StatusOK)

	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)

	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStats serves GET /api/stats with directory and room counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]int{}
	for k, v := range s.directory.Stats() {
		stats[k] = v
	}
	for k, v := range s.rooms.Stats() {
		stats[k] = v
	}

	s.sendJSON(w, stats, http.StatusOK)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}, http.StatusOK)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, status int) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode API response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, map[string]string{"error": message}, status)
}
