// Package api serves analysis previews, badges and document downloads over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-analysis/internal/activity"
	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/badge"
	"github.com/p-n-ai/pai-analysis/internal/course"
	"github.com/p-n-ai/pai-analysis/internal/export"
	"github.com/p-n-ai/pai-analysis/internal/render"
)

const (
	maxPreviewBody = 1 << 20
	readyTimeout   = 2 * time.Second
)

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config wires the server's collaborators. Events and Checks are optional.
type Config struct {
	Courses  course.Source
	Resolver *analysis.Resolver
	Exporter *export.Exporter
	Events   activity.EventLogger
	Checks   map[string]HealthChecker
}

// Server holds the HTTP handlers.
type Server struct {
	courses  course.Source
	resolver *analysis.Resolver
	exporter *export.Exporter
	events   activity.EventLogger
	checks   map[string]HealthChecker
}

// NewServer creates a server from cfg.
func NewServer(cfg Config) *Server {
	s := &Server{
		courses:  cfg.Courses,
		resolver: cfg.Resolver,
		exporter: cfg.Exporter,
		events:   cfg.Events,
		checks:   cfg.Checks,
	}
	if s.events == nil {
		s.events = activity.NopEventLogger{}
	}
	return s
}

// Handler returns the routed handler with request id, logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/courses/{id}/analysis", s.handleCourseAnalysis)
	mux.HandleFunc("GET /api/courses/{id}/badge", s.handleCourseBadge)
	mux.HandleFunc("GET /api/courses/{id}/export/{format}", s.handleExport)
	mux.HandleFunc("POST /api/analysis/preview", s.handlePreview)

	return requestID(logRequests(recoverPanics(mux)))
}

// analysisResponse is what the preview dialog and course viewer draw. View is null
// when no document resolved; Status says why.
type analysisResponse struct {
	CourseID          string            `json:"courseId,omitempty"`
	Title             string            `json:"title"`
	Badge             badge.Badge       `json:"badge"`
	Mode              render.Mode       `json:"mode"`
	Status            string            `json:"status"`
	View              *render.View      `json:"view"`
	AnalysisMaterials []course.Material `json:"analysisMaterials"`
}

type previewRequest struct {
	Title      string `json:"title"`
	Curriculum string `json:"curriculum"`
	Mode       string `json:"mode"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleCourseAnalysis(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}

	mode := render.ParseMode(r.URL.Query().Get("mode"))
	res := s.resolver.Resolve(r.Context(), c.Curriculum)

	resp := analysisResponse{
		CourseID:          c.ID,
		Title:             c.Title,
		Badge:             badge.Classify(c.Title, c.Curriculum),
		Mode:              mode,
		Status:            res.Status.String(),
		AnalysisMaterials: c.AnalysisMaterials,
	}
	if resp.AnalysisMaterials == nil {
		resp.AnalysisMaterials = []course.Material{}
	}
	if res.Document != nil {
		v := render.Render(res.Document, mode)
		resp.View = &v
	}

	activity.Log(r.Context(), s.events, activity.Event{
		CourseID:  c.ID,
		RequestID: RequestIDFrom(r.Context()),
		EventType: activity.TypePreviewed,
		Data:      map[string]any{"mode": string(mode), "status": resp.Status},
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object with title, curriculum and mode")
		return
	}

	mode := render.ParseMode(req.Mode)
	res := s.resolver.Resolve(r.Context(), req.Curriculum)

	resp := analysisResponse{
		Title:             req.Title,
		Badge:             badge.Classify(req.Title, req.Curriculum),
		Mode:              mode,
		Status:            res.Status.String(),
		AnalysisMaterials: []course.Material{},
	}
	if res.Document != nil {
		v := render.Render(res.Document, mode)
		resp.View = &v
	}

	activity.Log(r.Context(), s.events, activity.Event{
		RequestID: RequestIDFrom(r.Context()),
		EventType: activity.TypePreviewed,
		Data:      map[string]any{"mode": string(mode), "status": resp.Status, "unsaved": true},
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCourseBadge(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, badge.Classify(c.Title, c.Curriculum))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported_format", err.Error())
		return
	}

	c, ok := s.course(w, r)
	if !ok {
		return
	}

	res := s.resolver.Resolve(r.Context(), c.Curriculum)
	switch res.Status {
	case analysis.StatusResolved:
	case analysis.StatusCorrupt:
		writeError(w, http.StatusUnprocessableEntity, "corrupt_analysis_data", "the analysis data for this course could not be read")
		return
	default:
		writeError(w, http.StatusNotFound, "no_preview_data", "this course has no analysis data to export")
		return
	}

	etag := s.exporter.ETag(res.Document, c.Title, format)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	file, err := s.exporter.Export(r.Context(), res.Document, c.Title, format)
	if err != nil {
		slog.Error("export failed",
			"course_id", c.ID,
			"format", string(format),
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "export_failed", "the document could not be generated")
		return
	}

	activity.Log(r.Context(), s.events, activity.Event{
		CourseID:  c.ID,
		RequestID: RequestIDFrom(r.Context()),
		EventType: activity.TypeExported,
		Data:      map[string]any{"format": string(format), "bytes": len(file.Data)},
	})

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// course loads the {id} path course, writing the error response when it cannot.
func (s *Server) course(w http.ResponseWriter, r *http.Request) (*course.Course, bool) {
	id := r.PathValue("id")
	c, err := s.courses.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course_not_found", "no course with id "+id)
			return nil, false
		}
		slog.Error("failed to load course", "course_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "the course could not be loaded")
		return nil, false
	}
	return c, true
}
