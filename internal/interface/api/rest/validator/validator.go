package validator

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"user-registry-api/internal/domain/user"
	dto "user-registry-api/internal/interface/api/rest/dto/user"
)

const (
	minNameLen     = 3
	maxNameLen     = 100
	maxEmailLen    = 320
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt safe
	minAge         = 18
)

var (
	phoneRe   = regexp.MustCompile(`^\(\d{2}\) \d{5}-\d{4}$`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	errBadID  = errors.New("user_id must be a positive integer")
	nowUTC    = func() time.Time { return time.Now().UTC() }
	nameRules = []Rule[string]{
		NotBlank("name is required"),
		MinRunes(minNameLen, "name must have at least 3 characters"),
		MaxRunes(maxNameLen, "name must have at most 100 characters"),
	}
	emailRules = []Rule[string]{
		NotBlank("email is required"),
		MaxRunes(maxEmailLen, "email must have at most 320 characters"),
		Email("email must be a valid address"),
	}
	passwordRules = []Rule[string]{
		NotBlank("password is required"),
		MinRunes(minPasswordLen, "password must have at least 6 characters"),
		MaxBytes(maxPasswordLen, "password must have at most 72 bytes"),
		Matches(upperRe, "password must contain at least one uppercase letter"),
		Matches(lowerRe, "password must contain at least one lowercase letter"),
		Matches(digitRe, "password must contain at least one digit"),
	}
	phoneRules = []Rule[string]{
		When(func(v string) bool { return v != "" },
			Matches(phoneRe, "phone must match the format (XX) XXXXX-XXXX")),
	}
)

func birthDateRules(today func() time.Time) []Rule[string] {
	return []Rule[string]{
		NotBlank("birthDate is required"),
		Date("birthDate must be a date in YYYY-MM-DD format"),
		MinAge(minAge, today, "user must be at least 18 years old"),
	}
}

func ParseID(s string) (user.ID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return user.ID(id), nil
}

// ValidateCreate returns every violation in field order, or nil.
func ValidateCreate(r dto.CreateRequest) []string {
	return validateCreate(r, nowUTC)
}

func validateCreate(r dto.CreateRequest, today func() time.Time) []string {
	var errs []string
	errs = Check(errs, r.Name, nameRules...)
	errs = Check(errs, r.Email, emailRules...)
	errs = Check(errs, r.Password, passwordRules...)
	errs = Check(errs, r.BirthDate, birthDateRules(today)...)
	errs = Check(errs, deref(r.Phone), phoneRules...)

	return errs
}

// ValidateUpdate is ValidateCreate without the password. Email uniqueness
// against other users is left to the service.
func ValidateUpdate(r dto.UpdateRequest) []string {
	return validateUpdate(r, nowUTC)
}

func validateUpdate(r dto.UpdateRequest, today func() time.Time) []string {
	var errs []string
	errs = Check(errs, r.Name, nameRules...)
	errs = Check(errs, r.Email, emailRules...)
	errs = Check(errs, r.BirthDate, birthDateRules(today)...)
	errs = Check(errs, deref(r.Phone), phoneRules...)

	return errs
}

// ValidateEmail applies the email rules alone, for lookups by address.
func ValidateEmail(email string) []string {
	return Check(nil, email, emailRules...)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
