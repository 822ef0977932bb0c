package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	lerrors "github.com/lacunae/lacuna/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrorCodeInvalidBeam     ErrorCode = "INVALID_BEAM_CONFIGURATION"
	ErrorCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrorCodeRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"
	ErrorCodeModelUntrained  ErrorCode = "MODEL_UNTRAINED"
	ErrorCodeNoCandidates    ErrorCode = "NO_CANDIDATES"

	// Server Error Codes (5xx)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a standardized API error response
type APIError struct {
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string) {
	c.JSON(statusCode, APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		RequestID: requestID(c),
	})
}

// SendInvalidJSONError reports an unreadable body, or one over the size limit.
func SendInvalidJSONError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge, err.Error())
		return
	}
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON in request body: "+err.Error())
}

// SendEngineError maps a lacuna error onto status and code.
func SendEngineError(c *gin.Context, operation string, err error) {
	switch {
	case lerrors.IsInvalidBeamConfiguration(err):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidBeam, err.Error())
	case lerrors.IsUntrained(err):
		SendError(c, http.StatusConflict, ErrorCodeModelUntrained, err.Error())
	case errors.Is(err, lerrors.ErrNoCandidates):
		SendError(c, http.StatusUnprocessableEntity, ErrorCodeNoCandidates, err.Error())
	default:
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
			"Internal error during "+operation+": "+err.Error())
	}
}
