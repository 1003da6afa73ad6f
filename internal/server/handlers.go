package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/jobs"
	"github.com/naka-gawa/github-star-classifier/internal/report"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "GitHub Star Classifier API",
		"version": Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.opts.Now(),
	})
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	categories := s.opts.Taxonomy
	if categories == nil {
		categories = domain.Taxonomy{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[jobs.Request](r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errValidation) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		req.Token = s.opts.DefaultToken
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "GitHub token is required")
		return
	}

	job, err := s.opts.Manager.Submit(r.Context(), req)
	if err != nil {
		s.opts.Logger.Error().Err(err).Msg("Failed to submit job")
		writeError(w, http.StatusInternalServerError, "failed to start classification")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Manager.Jobs(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": list})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.opts.Manager.Job(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleDeleteJob is idempotent: deleting an unknown job succeeds.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	err := s.opts.Manager.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, jobs.ErrNotFound) {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted"})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Manager.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.resultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.opts.Manager.Result(r.Context(), id)

	var buf bytes.Buffer
	switch {
	case errors.Is(err, jobs.ErrNotReady):
		err = report.ProcessingPage(&buf, id)
	case err != nil:
		s.resultError(w, err)
		return
	default:
		err = report.RenderHTML(&buf, &domain.Result{
			Repos:       res.Repos,
			Stats:       res.Stats,
			CompletedAt: res.CompletedAt,
		}, s.opts.Now())
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) resultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, jobs.ErrNotReady):
		writeError(w, http.StatusAccepted, "Job still processing")
	case errors.Is(err, jobs.ErrNoResult):
		writeError(w, http.StatusNotFound, "No results available")
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.opts.Logger.Error().Err(err).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
