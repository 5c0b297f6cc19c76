package user

import (
	"time"
)

type (
	// View is the public shape of a user. It has no password field and
	// omits updatedAt.
	View struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		BirthDate string    `json:"birthDate"`
		Phone     *string   `json:"phone"`
		Active    bool      `json:"active"`
		CreatedAt time.Time `json:"createdAt"`
	}
	Views []View

	ValidationErrors struct {
		Errors []string `json:"errors"`
	}
	Message struct {
		Message string `json:"message"`
	}
	EmailExists struct {
		Email  string `json:"email"`
		Exists bool   `json:"exists"`
	}
)
