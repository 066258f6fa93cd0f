package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"biblepace/internal/servicetoken"
	"biblepace/internal/util"
	"biblepace/pkg/domain"
	"biblepace/services/worker/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	Origin        *url.URL
	AllowedOrigin string
	// Verifier guards /messages; nil leaves it open.
	Verifier *servicetoken.Verifier
}

// Server exposes the worker message endpoints and the asset proxy.
type Server struct {
	app           *app.App
	origin        *url.URL
	allowedOrigin string
	verifier      *servicetoken.Verifier
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.Origin == nil {
		return nil, errors.New("origin URL required")
	}
	s := &Server{
		app:           cfg.App,
		origin:        cfg.Origin,
		allowedOrigin: cfg.AllowedOrigin,
		verifier:      cfg.Verifier,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("worker", util.WithCORS(s.allowedOrigin, s.mux)))
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", api(s.handleHealth))
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.Handle("/messages", api(s.handleMessages))
	s.mux.Handle("/clients", api(s.handleClients))
	s.mux.Handle("/clients/", api(s.handleClientByID))
	s.mux.Handle("/notifications", api(s.handleNotifications))
	s.mux.Handle("/notifications/click", api(s.handleNotificationClick))

	// everything else is an intercepted asset request
	s.mux.Handle("/", util.WithAssetSecurityHeaders(http.HandlerFunc(s.handleAsset)))
}

func api(h http.HandlerFunc) http.Handler {
	return util.WithSecurityHeaders(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	lc := s.app.Lifecycle()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"state":   lc.State().String(),
		"version": lc.Version(),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.verifier.Authorize(r); err != nil {
		slog.Warn("security_event", "event", "messages", "outcome", "denied", "err", err)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var cmd domain.ReminderCommand
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.HandleMessage(r.Context(), cmd); err != nil {
		writeAppError(w, err)
		return
	}
	resp := map[string]any{"status": "accepted", "type": cmd.Type}
	if at, next, armed := s.app.Scheduler().Next(); armed {
		resp["time"] = at.String()
		resp["next"] = next
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.app.Clients().List())
	case http.MethodPost:
		var win domain.ClientWindow
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&win); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		writeJSON(w, http.StatusCreated, s.app.Clients().Register(win))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleClientByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/clients/"))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.app.Clients().Remove(id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Notifications())
}

type clickRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) handleNotificationClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req clickRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.app.HandleNotificationClick(r.Context(), req.Tag))
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	target := s.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	out := r.Clone(r.Context())
	out.URL = target
	out.RequestURI = ""

	resp, err := s.app.Fetch(r.Context(), out)
	if err != nil {
		var ferr *app.FetchError
		if !errors.As(err, &ferr) && r.Context().Err() != nil {
			return
		}
		writeError(w, http.StatusBadGateway, "asset unavailable")
		return
	}
	h := w.Header()
	for k, v := range resp.Header {
		h[k] = append([]string(nil), v...)
	}
	if resp.Source == app.SourceCache {
		h.Set(util.CacheStatusHeader, "HIT")
	} else {
		h.Set(util.CacheStatusHeader, "MISS")
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
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
		Code:      errorCodeForWorker(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
		Details:   details,
	})
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid time of day", errorDetail{Reason: err.Error()})
	case errors.Is(err, app.ErrUnknownCommand):
		writeError(w, http.StatusBadRequest, "unknown command")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "client not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func errorCodeForWorker(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "invalid time of day":
		return "REMINDER_INVALID_TIME"
	case message == "unknown command":
		return "REMINDER_UNKNOWN_COMMAND"
	case message == "client not found":
		return "WORKER_CLIENT_NOT_FOUND"
	case message == "asset unavailable":
		return "WORKER_FETCH_FAILED"
	case message == "invalid json body":
		return "WORKER_INVALID_REQUEST"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	case message == "unauthorized":
		return "SYSTEM_UNAUTHORIZED"
	}

	switch status {
	case http.StatusBadRequest:
		return "WORKER_INVALID_REQUEST"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
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
