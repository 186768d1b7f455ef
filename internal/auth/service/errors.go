package service

import (
	"errors"
	"strings"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMissingSubject     = errors.New("missing_subject")
	ErrSSORejected        = errors.New("sso_rejected")
	ErrInvalidUser        = errors.New("invalid_user")
)

// RejectedError is returned when an SSO token cannot be redeemed. It matches
// ErrSSORejected, and ErrInvalidUser too when the token named a user that no
// longer exists.
type RejectedError struct {
	Reason domain.RejectReason
}

func (e *RejectedError) Error() string {
	return "sso token rejected: " + string(e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	switch target {
	case ErrSSORejected:
		return true
	case ErrInvalidUser:
		return e.Reason == domain.RejectInvalidUser
	}
	return false
}

func rejected(reason domain.RejectReason) error {
	return &RejectedError{Reason: reason}
}

// RejectReason extracts the internal reason from err.
func RejectReason(err error) (domain.RejectReason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// ValidationError lists every registration rule the request broke. Issues
// are reported to the caller verbatim.
type ValidationError struct {
	Issues []domain.ValidationIssue
}

func (e *ValidationError) Error() string {
	codes := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		codes = append(codes, i.Code)
	}
	return "validation failed: " + strings.Join(codes, ", ")
}
