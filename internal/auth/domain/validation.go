package domain

import (
	"net/mail"
	"unicode"
)

// Registration limits.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 64
	PasswordMinLength = 8
	EmailMaxLength    = 254
)

// ValidationIssue is one broken registration rule.
type ValidationIssue struct {
	Code        string
	Description string
}

var (
	IssueUsernameRequired = ValidationIssue{"InvalidUserName", "Username is required."}
	IssueUsernameLength   = ValidationIssue{"InvalidUserNameLength", "Username must be between 3 and 64 characters."}
	IssueUsernameChars    = ValidationIssue{"InvalidUserName", "Username can only contain letters, digits and . _ @ + -"}
	IssueDuplicateUser    = ValidationIssue{"DuplicateUserName", "Username is already taken."}
	IssueEmailRequired    = ValidationIssue{"InvalidEmail", "Email is required."}
	IssueEmailInvalid     = ValidationIssue{"InvalidEmail", "Email is invalid."}
	IssueDuplicateEmail   = ValidationIssue{"DuplicateEmail", "Email is already taken."}
	IssuePasswordShort    = ValidationIssue{"PasswordTooShort", "Passwords must be at least 8 characters."}
	IssuePasswordUpper    = ValidationIssue{"PasswordRequiresUpper", "Passwords must have at least one uppercase ('A'-'Z')."}
	IssuePasswordLower    = ValidationIssue{"PasswordRequiresLower", "Passwords must have at least one lowercase ('a'-'z')."}
	IssuePasswordDigit    = ValidationIssue{"PasswordRequiresDigit", "Passwords must have at least one digit ('0'-'9')."}
	IssuePasswordSymbol   = ValidationIssue{"PasswordRequiresNonAlphanumeric", "Passwords must have at least one non alphanumeric character."}
)

// ValidateRegistration checks the shape of a registration request. Uniqueness
// is checked separately against the store.
func ValidateRegistration(username, email, password string) []ValidationIssue {
	var issues []ValidationIssue
	issues = append(issues, validateUsername(username)...)
	issues = append(issues, validateEmail(email)...)
	issues = append(issues, validatePassword(password)...)
	return issues
}

func validateUsername(username string) []ValidationIssue {
	if username == "" {
		return []ValidationIssue{IssueUsernameRequired}
	}

	n := len([]rune(username))
	if n < UsernameMinLength || n > UsernameMaxLength {
		return []ValidationIssue{IssueUsernameLength}
	}

	for _, r := range username {
		if r > unicode.MaxASCII {
			return []ValidationIssue{IssueUsernameChars}
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '.', '_', '@', '+', '-':
			continue
		}
		return []ValidationIssue{IssueUsernameChars}
	}
	return nil
}

func validateEmail(email string) []ValidationIssue {
	if email == "" {
		return []ValidationIssue{IssueEmailRequired}
	}
	if len(email) > EmailMaxLength {
		return []ValidationIssue{IssueEmailInvalid}
	}

	// Bare address only, no display name
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return []ValidationIssue{IssueEmailInvalid}
	}
	return nil
}

func validatePassword(password string) []ValidationIssue {
	var issues []ValidationIssue
	if len([]rune(password)) < PasswordMinLength {
		issues = append(issues, IssuePasswordShort)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	if !upper {
		issues = append(issues, IssuePasswordUpper)
	}
	if !lower {
		issues = append(issues, IssuePasswordLower)
	}
	if !digit {
		issues = append(issues, IssuePasswordDigit)
	}
	if !symbol {
		issues = append(issues, IssuePasswordSymbol)
	}
	return issues
}
