package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeDuplicatePlayerID = "DUPLICATE_PLAYER_ID"
	CodeRateLimited       = "RATE_LIMITED"
	CodeGrantFailed       = "GRANT_FAILED"
	CodeUpstreamTimeout   = "UPSTREAM_TIMEOUT"
	CodeUpstreamAuth      = "UPSTREAM_AUTH"
	CodeUpstreamFailure   = "UPSTREAM_FAILURE"
	CodeLinkNotFound      = "LINK_NOT_FOUND"
	CodeVipNotFound       = "VIP_NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Typed errors carry useful detail in their messages
	var dup *model.DuplicateIDError
	if errors.As(err, &dup) {
		return &httpError{http.StatusConflict, APIError{CodeDuplicatePlayerID, dup.Error()}}
	}
	var rl *model.RateLimitError
	if errors.As(err, &rl) {
		return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, rl.Error()}}
	}
	var ge *model.GrantError
	if errors.As(err, &ge) {
		return &httpError{http.StatusBadGateway, APIError{CodeGrantFailed, ge.Error()}}
	}

	// Map model sentinels
	switch {
	case errors.Is(err, model.ErrDuplicateID):
		return &httpError{http.StatusConflict, APIError{CodeDuplicatePlayerID, "Player id is already linked to another account"}}
	case errors.Is(err, model.ErrRateLimited):
		return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Weekly grant limit reached"}}
	case errors.Is(err, model.ErrGrantFailed):
		return &httpError{http.StatusBadGateway, APIError{CodeGrantFailed, "Grant failed on all transports"}}
	case errors.Is(err, model.ErrTimeout):
		return &httpError{http.StatusGatewayTimeout, APIError{CodeUpstreamTimeout, "Game server did not respond in time"}}
	case errors.Is(err, model.ErrAuth):
		return &httpError{http.StatusBadGateway, APIError{CodeUpstreamAuth, "Game server rejected our credentials"}}
	case errors.Is(err, model.ErrProtocol), errors.Is(err, model.ErrTransport):
		return &httpError{http.StatusBadGateway, APIError{CodeUpstreamFailure, "Game server connection failed"}}
	case errors.Is(err, model.ErrLinkNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeLinkNotFound, "Player link not found"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewVipNotFoundError creates a VIP status miss error
func NewVipNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeVipNotFound, "Player has no active VIP grant"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
