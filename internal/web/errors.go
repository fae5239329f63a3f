package web

// errors.go provides unified error responses for the web layer.
//
// Every error is logged with its technical details and the request ID,
// then mapped through core.MapError and returned either as JSON (API
// routes, Accept: application/json) or as an HTML alert.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status of an operation error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrUnknownDefinition):
		return http.StatusNotFound
	case errors.Is(err, application.ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSourceUnreadable),
		errors.Is(err, core.ErrMalformedSource),
		errors.Is(err, core.ErrUnresolvedReader):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := s.logError(r, err)

	if wantsJSON(r) {
		writeJSON(w, r, status, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := templates.Page("Error", templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code))
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

// logError logs the technical error with request context and returns its
// user-facing message.
func (s *Server) logError(r *http.Request, err error) core.UserMessage {
	userMsg := core.MapError(err)
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusFor(err),
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)
	return userMsg
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
