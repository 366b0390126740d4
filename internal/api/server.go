// Package api provides the HTTP API for observing the pack.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/sim"
	"github.com/avaley/petpack/internal/social"
	"github.com/avaley/petpack/internal/statestore"
)

// Server serves the pack state over HTTP.
type Server struct {
	Runner   *sim.Runner
	Clock    *sim.Clock
	Store    statestore.Store
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	startedAt time.Time
}

// Handler builds the full route tree. Split out from Start so tests can
// drive the API through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	// Saving writes the whole world to the backing store, so it gets a
	// rate limiter even behind admin auth.
	saveLimiter := NewRateLimiter(12, time.Minute)

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Public endpoints (GET, read-only — anyone can check in on the pack).
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/pets", s.handlePets).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{id}", s.handlePetDetail).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{id}/relationships", s.handleRelationships).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{id}/jealousy", s.handleJealousy).Methods(http.MethodGet)
	v1.HandleFunc("/pets/{id}/teaching", s.handleTeaching).Methods(http.MethodGet)
	v1.HandleFunc("/hierarchy", s.handleHierarchy).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	// Admin endpoints (POST, require bearer token).
	v1.HandleFunc("/speed", s.adminOnly(s.handleSpeed)).Methods(http.MethodGet, http.MethodPost)
	v1.HandleFunc("/save", RateLimitMiddleware(saveLimiter, s.adminOnly(s.handleSave))).Methods(http.MethodPost)

	return corsMiddleware(router)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.startedAt = time.Now()
	handler := s.Handler()

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set PETPACK_CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("PETPACK_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
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

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no PETPACK_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tick := s.Runner.CurrentTick()
	stats := s.Runner.Stats()

	status := map[string]any{
		"name":            "petpack",
		"tick":            tick,
		"sim_time":        sim.SimTime(tick),
		"speed":           s.Clock.Speed(),
		"running":         s.Clock.Running(),
		"pets":            stats.Pets,
		"avg_friendship":  stats.AvgFriendship,
		"best_friends":    stats.BestFriends,
		"rivalries":       stats.Rivalries,
		"jealous_pets":    stats.JealousPets,
		"stability":       stats.Stability,
		"tricks_known":    stats.TricksKnown,
		"tricks_mastered": stats.TricksMastered,
	}
	if !s.startedAt.IsZero() {
		status["started"] = humanize.Time(s.startedAt)
	}
	writeJSON(w, status)
}

func (s *Server) handlePets(w http.ResponseWriter, r *http.Request) {
	type petSummary struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Species string `json:"species"`
		Size    string `json:"size"`
		AgeDays int    `json:"age_days"`
		Rank    string `json:"rank"`
		Tricks  int    `json:"tricks"`
	}

	now := s.Runner.SimNow(s.Runner.CurrentTick())
	summaries := make([]petSummary, 0, len(s.Runner.Pets))
	for _, p := range s.Runner.Pets {
		entry := petSummary{
			ID:      p.ID,
			Name:    p.Name,
			Species: p.Species,
			Size:    pets.SizeName(p.Size),
			AgeDays: p.AgeDays(now),
			Tricks:  len(p.Tricks),
		}
		if rank, ok := s.Runner.Pack.RankOf(p.ID); ok {
			entry.Rank = social.RankName(rank)
		}
		summaries = append(summaries, entry)
	}

	writeJSON(w, map[string]any{"pets": summaries})
}

func (s *Server) handlePetDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pet, ok := s.Runner.Index[id]
	if !ok {
		http.Error(w, "pet not found", http.StatusNotFound)
		return
	}

	now := s.Runner.SimNow(s.Runner.CurrentTick())
	detail := map[string]any{
		"pet":      pet,
		"age_days": pet.AgeDays(now),
	}
	if rank, ok := s.Runner.Pack.RankOf(id); ok {
		detail["rank"] = social.RankName(rank)
	}
	if friend, ok := s.Runner.Pack.BestFriendOf(id); ok {
		detail["best_friend"] = map[string]string{
			"id":   friend,
			"name": s.Runner.Pack.PetName(friend),
		}
	}
	if want, err := s.Runner.Pack.WantsSocialInteraction(id); err == nil {
		detail["wants_company"] = want
	}
	if jealous, err := s.Runner.Pack.IsJealous(id); err == nil {
		detail["jealous"] = jealous
	}

	writeJSON(w, detail)
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.Runner.Pack.LedgerSnapshotOf(id)
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return
	}

	type relEntry struct {
		social.RelationshipSnapshot
		OtherName string `json:"other_name"`
	}
	rels := make([]relEntry, 0, len(snap.Relationships))
	for _, rel := range snap.Relationships {
		rels = append(rels, relEntry{
			RelationshipSnapshot: rel,
			OtherName:            s.Runner.Pack.PetName(rel.OtherID),
		})
	}

	out := map[string]any{
		"id":            id,
		"name":          s.Runner.Pack.PetName(id),
		"relationships": rels,
	}
	if snap.SocialEnergy != nil {
		out["social_energy"] = *snap.SocialEnergy
	}
	if friend, ok := s.Runner.Pack.BestFriendOf(id); ok {
		out["best_friend"] = friend
	}
	writeJSON(w, out)
}

func (s *Server) handleJealousy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.Runner.Pack.JealousySnapshotOf(id)
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return
	}

	type record struct {
		RivalID   string  `json:"rival_id"`
		RivalName string  `json:"rival_name"`
		Intensity float64 `json:"intensity"`
		Level     string  `json:"level"`
	}
	records := make([]record, 0, len(snap.Records))
	for rival, intensity := range snap.Records {
		records = append(records, record{
			RivalID:   rival,
			RivalName: s.Runner.Pack.PetName(rival),
			Intensity: intensity,
			Level:     social.LevelName(social.LevelForIntensity(intensity)),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Intensity != records[j].Intensity {
			return records[i].Intensity > records[j].Intensity
		}
		return records[i].RivalID < records[j].RivalID
	})

	writeJSON(w, map[string]any{
		"id":        id,
		"name":      s.Runner.Pack.PetName(id),
		"records":   records,
		"rivalries": snap.Rivalries,
	})
}

func (s *Server) handleTeaching(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.Runner.Pack.TeachingSnapshotOf(id)
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return
	}

	out := map[string]any{
		"id":           id,
		"name":         s.Runner.Pack.PetName(id),
		"skill":        snap.Skill,
		"taught":       snap.Taught,
		"learned_from": snap.LearnedFrom,
		"observed":     snap.Observed,
	}
	if pet, ok := s.Runner.Index[id]; ok {
		out["tricks"] = pet.Tricks
	}
	writeJSON(w, out)
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	type memberEntry struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Rank   string  `json:"rank"`
		Score  float64 `json:"score"`
		Wins   int     `json:"wins"`
		Losses int     `json:"losses"`
	}

	members := s.Runner.Pack.HierarchyMembers()
	entries := make([]memberEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, memberEntry{
			ID:     m.ID,
			Name:   s.Runner.Pack.PetName(m.ID),
			Rank:   social.RankName(m.Rank),
			Score:  m.Score,
			Wins:   m.Wins,
			Losses: m.Losses,
		})
	}

	writeJSON(w, map[string]any{
		"stability":     s.Runner.Pack.Stability(),
		"feeding_order": s.Runner.Pack.ResourcePriority(),
		"members":       entries,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	events := s.Runner.Pack.Events(0)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]social.Event, 0, len(events))
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if len(events) > limit {
		events = events[len(events)-limit:]
	}

	writeJSON(w, map[string]any{"events": events})
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
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Clock.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Clock.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	savedAt := time.Now()
	ws := s.Runner.WorldState(savedAt)
	if err := s.Store.SaveWorld(r.Context(), ws); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}

	slog.Info("world saved", "trigger", "api", "tick", ws.Tick, "pets", len(ws.Pets))
	writeJSON(w, map[string]any{
		"saved_at": savedAt,
		"tick":     ws.Tick,
		"pets":     len(ws.Pets),
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
