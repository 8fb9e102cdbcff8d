package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged server-side with the request id and answered with
// the message from core.MapError: JSON for /api routes and clients asking
// for it, an HTML page otherwise.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/postventa/internal/core"
	"github.com/JonMunkholm/postventa/internal/ingest"
	"github.com/JonMunkholm/postventa/internal/logging"
	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/web/templates"
)

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
	errInvalidForm  = errors.New("invalid multipart form")
	errInvalidLimit = errors.New("invalid limit")
)

// ErrorResponse is the JSON body of API errors.
// Code is machine-readable, Message and Action are for people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status of an error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoFile), errors.Is(err, errInvalidForm), errors.Is(err, errInvalidLimit),
		errors.Is(err, store.ErrInvalidDimension):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrIngestBusy):
		return http.StatusServiceUnavailable
	case core.IsInputError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= http.StatusInternalServerError && statusCode != http.StatusServiceUnavailable {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		writeJSONStatus(w, statusCode, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	page := templates.Layout(s.renderer.Title(), templates.ErrorPage(msg.Message, msg.Action, msg.Code))
	if err := page.Render(r.Context(), w); err != nil {
		logger.Error("render error page", "error", err)
	}
}

// wantsJSON reports whether the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
