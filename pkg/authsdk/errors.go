package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
)

// Error codes used in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest  = "invalid_request"
	ErrorCodeInvalidGrant    = "invalid_grant"
	ErrorCodeInvalidToken    = "invalid_token"
	ErrorCodeInvalidSSOToken = "invalid_sso_token"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeValidation      = "validation_failed"
	ErrorCodeServerError     = "server_error"
)

// APIError is an error response from the gateway. Servers use it to write
// responses, clients get it back from every SDK call that fails.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`

	// Validation is only set for registration failures.
	Validation []ValidationError `json:"-"`
}

func (e *APIError) Error() string {
	if len(e.Validation) > 0 {
		descs := make([]string, 0, len(e.Validation))
		for _, v := range e.Validation {
			descs = append(descs, v.Description)
		}
		return fmt.Sprintf("%s: %s", e.Code, strings.Join(descs, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches two APIErrors by status and code so callers can use errors.Is
// with the predefined values below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if len(e.Validation) > 0 {
		httpx.WriteJSON(w, e.StatusCode, ValidationErrorResponse{Errors: e.Validation})
		return
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials never says whether the username or the password
	// was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid username or password",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	// ErrSubjectNotFound is returned by /sso/issue when a valid access token
	// names no user.
	ErrSubjectNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "invalid token",
	}

	// ErrInvalidSSOToken covers unknown, used, expired and orphaned SSO
	// tokens alike.
	ErrInvalidSSOToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidSSOToken,
		Description: "invalid or expired SSO token",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewValidationError builds the 400 returned for a rejected registration.
func NewValidationError(errs []ValidationError) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeValidation,
		Description: "registration failed",
		Validation:  errs,
	}
}

// IsValidationError reports whether err is a registration validation failure.
func IsValidationError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && len(apiErr.Validation) > 0
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && len(valErr.Errors) > 0 {
		return NewValidationError(valErr.Errors)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
