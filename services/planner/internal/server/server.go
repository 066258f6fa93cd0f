package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"biblepace/internal/ratelimit"
	"biblepace/internal/util"
	"biblepace/pkg/domain"
	"biblepace/pkg/progress"
	"biblepace/services/planner/internal/app"
	"biblepace/services/planner/internal/workerclient"
)

const maxBodyBytes = 1 << 16

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	AllowedOrigin string
	// Limiter throttles calculation and reminder requests per client IP.
	// Nil disables throttling.
	Limiter *ratelimit.FixedWindowLimiter
	// TrustedProxies may set X-Forwarded-For for rate limit keys.
	TrustedProxies *util.TrustedProxies
}

// Server exposes the catalog, pace calculation and reminder endpoints.
type Server struct {
	app            *app.App
	allowedOrigin  string
	limiter        *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:            cfg.App,
		allowedOrigin:  cfg.AllowedOrigin,
		limiter:        cfg.Limiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("planner", util.WithCORS(s.allowedOrigin, util.WithSecurityHeaders(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.HandleFunc("/api/catalog", s.handleCatalog)
	s.mux.HandleFunc("/api/catalog/books/", s.handleBook)
	s.mux.HandleFunc("/api/progress", s.handleProgress)
	s.mux.HandleFunc("/api/reminder", s.handleReminder)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Catalog())
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/catalog/books/")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := s.app.Book(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var in domain.CalculationInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	res, err := s.app.Calculate(in, lang)
	if err != nil {
		var verr *progress.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type reminderRequest struct {
	Time string `json:"time"`
}

func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		if !s.allowRate(w, r) {
			return
		}
		var req reminderRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.app.SetReminder(r.Context(), req.Time); err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "time": strings.TrimSpace(req.Time)})
	case http.MethodDelete:
		if !s.allowRate(w, r) {
			return
		}
		if err := s.app.ClearReminder(r.Context()); err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request) bool {
	ip := util.ClientIP(r, s.trustedProxies)
	if s.limiter.Allow(r.Context(), r.URL.Path+"|"+ip) {
		return true
	}
	slog.Warn("rate_limited", "path", r.URL.Path, "method", r.Method, "ip", ip)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorDetail struct {
	Reason     string `json:"reason"`
	MaxChapter int    `json:"maxChapter,omitempty"`
}

type errorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	RequestID string        `json:"requestId,omitempty"`
	Details   []errorDetail `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, details ...errorDetail) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForPlanner(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
		Details:   details,
	})
}

// writeValidationError keeps the reader-facing message and derives the code
// from the rejection reason.
func writeValidationError(w http.ResponseWriter, verr *progress.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error:     verr.Message,
		Code:      validationCode(verr.Reason),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
		Details:   []errorDetail{{Reason: string(verr.Reason), MaxChapter: verr.MaxChapter}},
	})
}

func writeReminderError(w http.ResponseWriter, err error) {
	var apiErr *workerclient.APIError
	switch {
	case errors.Is(err, app.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid time of day", errorDetail{Reason: err.Error()})
	case errors.Is(err, app.ErrNoPublisher):
		writeError(w, http.StatusServiceUnavailable, "reminder delivery not configured")
	case errors.As(err, &apiErr):
		writeError(w, apiErr.Status, apiErr.Message)
	default:
		slog.Error("reminder publish failed", "err", err)
		writeError(w, http.StatusBadGateway, "worker unavailable")
	}
}

func validationCode(reason progress.Reason) string {
	switch reason {
	case progress.ReasonSelectionRequired:
		return "PROGRESS_SELECTION_REQUIRED"
	case progress.ReasonDateRequired:
		return "PROGRESS_DATE_REQUIRED"
	case progress.ReasonDateInvalid:
		return "PROGRESS_DATE_INVALID"
	case progress.ReasonBookNotFound:
		return "PROGRESS_BOOK_NOT_FOUND"
	case progress.ReasonChapterOutOfRange:
		return "PROGRESS_CHAPTER_OUT_OF_RANGE"
	default:
		return "PROGRESS_INVALID_INPUT"
	}
}

func errorCodeForPlanner(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "invalid time of day":
		return "REMINDER_INVALID_TIME"
	case message == "reminder delivery not configured":
		return "REMINDER_UNAVAILABLE"
	case message == "worker unavailable":
		return "REMINDER_WORKER_UNAVAILABLE"
	case message == "invalid book id":
		return "CATALOG_INVALID_BOOK_ID"
	case message == "book not found":
		return "CATALOG_BOOK_NOT_FOUND"
	case message == "invalid json body":
		return "PLANNER_INVALID_REQUEST"
	case message == "too many requests":
		return "SYSTEM_RATE_LIMITED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	}

	switch status {
	case http.StatusBadRequest:
		return "PLANNER_INVALID_REQUEST"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
