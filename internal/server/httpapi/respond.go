package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/validation"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

const unexpectedErrorMessage = "Unexpected Error, are you sure all fields are correct?"

// errorStyle selects the failure envelope of an endpoint family.
type errorStyle int

const (
	// {"success": false, "message": "..."}
	styleMessage errorStyle = iota
	// {"auth_success": false, "error": "..."}
	styleAuth
	// {"success": false, "error": "..."}
	styleError
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(style errorStyle, msg string) map[string]any {
	switch style {
	case styleAuth:
		return map[string]any{"auth_success": false, "error": msg}
	case styleError:
		return map[string]any{"success": false, "error": msg}
	default:
		return map[string]any{"success": false, "message": msg}
	}
}

func writeError(w http.ResponseWriter, style errorStyle, status int, msg string) {
	writeJSON(w, status, errorBody(style, msg))
}

// statusFor maps service errors to an HTTP status and a client-safe message.
// Anything it does not recognise is a 500 with a generic message.
func statusFor(err error) (int, string) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Session token expired"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Authentication credentials were not provided or are invalid"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "Permission denied"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, common.ErrorQuotaExceeded):
		return http.StatusRequestEntityTooLarge, "Quota exceeded"
	case errors.Is(err, common.ErrorInvalidApp):
		return http.StatusBadRequest, "Invalid app id"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	default:
		return http.StatusInternalServerError, unexpectedErrorMessage
	}
}

// fail writes err through statusFor and logs server faults.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, style errorStyle, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, style, status, msg)
}

var errInvalidJSON = fmt.Errorf("%w: Invalid JSON format in request body", common.ErrorValidation)

// decodeJSON reads a JSON body into v and validates it. Malformed bodies
// yield errInvalidJSON.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return errInvalidJSON
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errInvalidJSON
	}
	return validation.ValidateStruct(v)
}
