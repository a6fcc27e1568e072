package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/middleware"
	"github.com/imuii-id/imuii-portal/pkg/storage"
)

// ErrorBody is the JSON shape of every error answer.
type ErrorBody struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	LoginURL  string            `json:"login_url,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, ErrorBody{Error: errorCode, Message: message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// Responder writes service results and maps service errors onto HTTP.
// A 401 from anywhere clears the token cookie and carries the login URL.
type Responder struct {
	login  auth.LoginRedirect
	cookie auth.TokenCookie
	logger *zap.Logger
}

// NewResponder creates a Responder.
func NewResponder(login auth.LoginRedirect, cookie auth.TokenCookie, logger *zap.Logger) *Responder {
	return &Responder{login: login, cookie: cookie, logger: logger}
}

// JSON writes data with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, statusCode int, data any) {
	if err := WriteJSON(w, statusCode, data); err != nil {
		rs.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Fail writes an error response with a fixed code.
func (rs *Responder) Fail(w http.ResponseWriter, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		rs.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// Error maps err onto a status and writes it. action names the operation
// in server-side logs.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error, action string) {
	body, status := classify(err)
	logFields := []zap.Field{
		zap.String("action", action),
		zap.String("request_id", middleware.RequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if claims, ok := auth.GetClaims(r.Context()); ok && claims.Subject != "" {
		logFields = append(logFields, zap.String("subject", claims.Subject))
	}

	switch {
	case status == 0:
		// the client is gone or the result was superseded
		rs.logger.Debug("Dropped response", logFields...)
		return
	case status == http.StatusUnauthorized:
		rs.cookie.Clear(w)
		body.LoginURL = rs.login.LoginURL(auth.ReturnPathFromReferer(r))
		rs.logger.Debug("Request unauthorized", logFields...)
	case status >= 500:
		rs.logger.Error("Request failed", logFields...)
	default:
		rs.logger.Debug("Request rejected", logFields...)
	}

	if werr := WriteJSON(w, status, body); werr != nil {
		rs.logger.Error("Failed to write error response", zap.Error(werr))
	}
}

// classify returns the body and status for err. Status 0 means write nothing.
func classify(err error) (ErrorBody, int) {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		return ErrorBody{Error: "validation_failed", Message: "Please fix the highlighted fields", Fields: validation.Fields}, http.StatusBadRequest
	}

	switch {
	case errors.Is(err, apperrors.ErrStale), errors.Is(err, context.Canceled):
		return ErrorBody{}, 0
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorBody{Error: "timeout", Message: "The request took too long - please try again", Retryable: true}, http.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrUnauthorized):
		return ErrorBody{Error: "unauthorized", Message: apperrors.ErrUnauthorized.Error()}, http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return ErrorBody{Error: "forbidden", Message: "You do not have access to this item"}, http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorBody{Error: "not_found", Message: "Not found"}, http.StatusNotFound
	case errors.Is(err, apperrors.ErrEventEnded):
		return ErrorBody{Error: "event_ended", Message: apperrors.ErrEventEnded.Error()}, http.StatusConflict
	case errors.Is(err, apperrors.ErrAlreadyJoined):
		return ErrorBody{Error: "already_joined", Message: apperrors.ErrAlreadyJoined.Error()}, http.StatusConflict
	case errors.Is(err, apperrors.ErrNotJoined):
		return ErrorBody{Error: "not_joined", Message: apperrors.ErrNotJoined.Error()}, http.StatusConflict
	case errors.Is(err, apperrors.ErrActionInFlight):
		return ErrorBody{Error: "action_in_flight", Message: apperrors.ErrActionInFlight.Error(), Retryable: true}, http.StatusConflict
	case errors.Is(err, apperrors.ErrRateLimited):
		return ErrorBody{Error: "rate_limited", Message: apperrors.ErrRateLimited.Error(), Retryable: true}, http.StatusTooManyRequests
	case errors.Is(err, storage.ErrObjectExists):
		return ErrorBody{Error: "conflict", Message: "A file with this name already exists - please try again", Retryable: true}, http.StatusConflict
	case errors.Is(err, apperrors.ErrTransport):
		return ErrorBody{Error: "network_error", Message: apperrors.ErrTransport.Error(), Retryable: true}, http.StatusBadGateway
	}

	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Error()
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests {
			return ErrorBody{Error: "upstream_error", Message: msg, Retryable: true}, http.StatusBadGateway
		}
		if apiErr.StatusCode >= 400 {
			return ErrorBody{Error: "request_rejected", Message: msg}, apiErr.StatusCode
		}
		return ErrorBody{Error: "upstream_error", Message: msg}, http.StatusBadGateway
	}

	return ErrorBody{Error: "internal_error", Message: "Something went wrong"}, http.StatusInternalServerError
}
