package handler

import (
	"net/http"

	"github.com/gbone001/hall-frontline-pass/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// Re-export error codes
const (
	CodeInvalidRequest    = apierr.CodeInvalidRequest
	CodeUnauthorized      = apierr.CodeUnauthorized
	CodeDuplicatePlayerID = apierr.CodeDuplicatePlayerID
	CodeRateLimited       = apierr.CodeRateLimited
	CodeGrantFailed       = apierr.CodeGrantFailed
	CodeUpstreamTimeout   = apierr.CodeUpstreamTimeout
	CodeUpstreamAuth      = apierr.CodeUpstreamAuth
	CodeUpstreamFailure   = apierr.CodeUpstreamFailure
	CodeLinkNotFound      = apierr.CodeLinkNotFound
	CodeVipNotFound       = apierr.CodeVipNotFound
	CodeInternalError     = apierr.CodeInternalError
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// NewVipNotFoundError creates a VIP status miss error
func NewVipNotFoundError() error {
	return apierr.NewVipNotFoundError()
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return apierr.NewInternalError()
}
