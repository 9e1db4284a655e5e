package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

// InternalErrorMessage is returned to clients in place of internal error detail
const InternalErrorMessage = "Something went wrong!"

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorCode writes an error body with a machine-readable code
func WriteErrorCode(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message, Error: code})
}

// WriteAppError renders err using its apperr classification. Unclassified
// errors are Internal; their message is hidden unless devMode is set.
func WriteAppError(w http.ResponseWriter, err error, devMode bool) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(InternalErrorMessage, err)
	}

	message := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		message = InternalErrorMessage
		if devMode {
			message = appErr.Error()
		}
	}

	WriteErrorCode(w, appErr.Kind.HTTPStatus(), appErr.Code, message)
}

// WriteCreated writes a successful creation response (201 Created)
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK)
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteBadRequest writes a validation error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusBadRequest, apperr.CodeValidationFailed, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusNotFound, apperr.CodeNotFound, message)
}

// WriteUnauthorized writes an unauthorized error (401) with a sub-code
func WriteUnauthorized(w http.ResponseWriter, code, message string) {
	WriteErrorCode(w, http.StatusUnauthorized, code, message)
}

// WriteForbidden writes a forbidden error (403) with a sub-code
func WriteForbidden(w http.ResponseWriter, code, message string) {
	WriteErrorCode(w, http.StatusForbidden, code, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusTooManyRequests, apperr.CodeRateLimited, message)
}

// WriteMethodNotAllowed writes a 405 for a known path with the wrong method
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteErrorCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}
