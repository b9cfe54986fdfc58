// Package api exposes a small operational HTTP surface: health check
// and recent copy jobs. It is read-only; all user interaction happens
// through the bot.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/models"
	"github.com/blockedby/copygram/internal/repository"
)

// Server is the operational HTTP server.
type Server struct {
	http *http.Server
	jobs *repository.JobsRepository
	log  *logger.Logger

	startedAt time.Time
}

// NewServer creates the server on the given port.
func NewServer(port int, jobs *repository.JobsRepository) *Server {
	s := &Server{
		jobs:      jobs,
		log:       logger.Get(),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/api/v1/jobs/recent", s.recentJobs)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("api: listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})
}

type jobView struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	SourceChannel string    `json:"source_channel"`
	TargetChannel string    `json:"target_channel"`
	Status        string    `json:"status"`
	Copied        int       `json:"copied"`
	Failed        int       `json:"failed"`
	Total         int       `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) recentJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.Recent(r.Context(), 50)
	if err != nil {
		s.log.Error().Err(err).Msg("api: recent jobs query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, toView(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func toView(j *models.CopyJob) jobView {
	return jobView{
		ID:            j.ID.String(),
		UserID:        j.UserID,
		SourceChannel: j.SourceChannel,
		TargetChannel: j.TargetChannel,
		Status:        j.Status,
		Copied:        j.Copied,
		Failed:        j.Failed,
		Total:         j.Total(),
		CreatedAt:     j.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
