package util

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes, so longer inputs are refused.
	MaxPasswordBytes = 72
	MinNameLength    = 2
	minPhoneDigits   = 10
	maxPhoneDigits   = 15
)

var allowedGenders = map[string]struct{}{
	"male":   {},
	"female": {},
	"other":  {},
}

func ValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// PhoneDigits strips everything but ASCII digits.
func PhoneDigits(phone string) string {
	builder := strings.Builder{}
	for _, char := range phone {
		if char >= '0' && char <= '9' {
			builder.WriteRune(char)
		}
	}
	return builder.String()
}

func ValidPhone(phone string) bool {
	n := len(PhoneDigits(phone))
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

// PasswordStrengthErrors applies the registration rules and returns every
// violated one.
func PasswordStrengthErrors(password string) []string {
	errs := make([]string, 0, 2)
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordBytes {
		errs = append(errs, "Password must be at most 72 bytes long")
	}

	var lower, upper, digit bool
	for _, char := range password {
		switch {
		case char >= 'a' && char <= 'z':
			lower = true
		case char >= 'A' && char <= 'Z':
			upper = true
		case char >= '0' && char <= '9':
			digit = true
		}
	}
	if !lower || !upper || !digit {
		errs = append(errs, "Password must contain at least one uppercase letter, one lowercase letter, and one number")
	}

	return errs
}

func ValidName(name string) bool {
	return utf8.RuneCountInString(name) >= MinNameLength
}

func ParseDate(value string) (time.Time, bool) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func ValidGender(value string) bool {
	_, ok := allowedGenders[strings.ToLower(strings.TrimSpace(value))]
	return ok
}
