package service

import (
	"fmt"
	"strings"
	"time"

	"ikiraha-api/internal/model"
	"ikiraha-api/internal/util"
)

const (
	msgInvalidEmail  = "Invalid email format"
	msgInvalidPhone  = "Invalid phone number format"
	msgInvalidDate   = "Date of birth must be a valid date (YYYY-MM-DD)"
	msgInvalidGender = "Gender must be one of: male, female, other"
)

// validateRegistration collects every violated rule. Fields that are
// missing only report "is required".
func validateRegistration(in model.RegisterRequest) (*time.Time, []string) {
	errs := make([]string, 0)

	required := []struct {
		label string
		value string
	}{
		{"First name", in.FirstName},
		{"Last name", in.LastName},
		{"Email", in.Email},
		{"Phone", in.Phone},
		{"Password", in.Password},
	}
	for _, field := range required {
		if field.value == "" {
			errs = append(errs, field.label+" is required")
		}
	}

	if in.Email != "" && !util.ValidEmail(in.Email) {
		errs = append(errs, msgInvalidEmail)
	}
	if in.Phone != "" && !util.ValidPhone(in.Phone) {
		errs = append(errs, msgInvalidPhone)
	}
	if in.Password != "" {
		errs = append(errs, util.PasswordStrengthErrors(in.Password)...)
	}
	if in.FirstName != "" && !util.ValidName(in.FirstName) {
		errs = append(errs, "First name must be at least 2 characters long")
	}
	if in.LastName != "" && !util.ValidName(in.LastName) {
		errs = append(errs, "Last name must be at least 2 characters long")
	}

	var dob *time.Time
	if in.DateOfBirth != "" {
		if parsed, ok := util.ParseDate(in.DateOfBirth); ok {
			dob = &parsed
		} else {
			errs = append(errs, msgInvalidDate)
		}
	}
	if in.Gender != "" && !util.ValidGender(in.Gender) {
		errs = append(errs, msgInvalidGender)
	}

	return dob, errs
}

var profileFields = []string{"first_name", "last_name", "phone", "date_of_birth", "gender"}

// buildProfileUpdate keeps only whitelisted, non-empty string fields and
// validates each of them.
func buildProfileUpdate(input map[string]any) (model.ProfileUpdate, []string) {
	var update model.ProfileUpdate
	errs := make([]string, 0)

	for _, field := range profileFields {
		raw, present := input[field]
		if !present || raw == nil {
			continue
		}

		str, ok := raw.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be a string", field))
			continue
		}

		value := util.SanitizeText(str)
		if value == "" {
			continue
		}

		switch field {
		case "first_name":
			if !util.ValidName(value) {
				errs = append(errs, "First name must be at least 2 characters long")
				continue
			}
			update.FirstName = &value
		case "last_name":
			if !util.ValidName(value) {
				errs = append(errs, "Last name must be at least 2 characters long")
				continue
			}
			update.LastName = &value
		case "phone":
			if !util.ValidPhone(value) {
				errs = append(errs, msgInvalidPhone)
				continue
			}
			update.Phone = &value
		case "date_of_birth":
			parsed, ok := util.ParseDate(value)
			if !ok {
				errs = append(errs, msgInvalidDate)
				continue
			}
			update.DateOfBirth = &parsed
		case "gender":
			gender := strings.ToLower(value)
			if !util.ValidGender(gender) {
				errs = append(errs, msgInvalidGender)
				continue
			}
			update.Gender = &gender
		}
	}

	return update, errs
}
