package user

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	ID   int64
	User struct {
		ID           ID
		Name         string
		Email        string
		PasswordHash string
		BirthDate    time.Time
		Phone        *string
		Active       bool

		CreatedAt time.Time
		UpdatedAt *time.Time
	}
	Users []*User

	// Registration is the input of a create. Password is plaintext and
	// must not outlive the create call.
	Registration struct {
		Name      string
		Email     string
		Password  string
		BirthDate time.Time
		Phone     *string
	}

	// Changes is the input of an update. A nil Active keeps the stored flag.
	Changes struct {
		Name      string
		Email     string
		BirthDate time.Time
		Phone     *string
		Active    *bool
	}
)

var emailCaser = cases.Lower(language.Und)

// NormalizeEmail trims and lower-cases an address so that comparisons and
// the unique index agree.
func NormalizeEmail(email string) string {
	return emailCaser.String(strings.TrimSpace(email))
}

func SameEmail(a, b string) bool { return NormalizeEmail(a) == NormalizeEmail(b) }
