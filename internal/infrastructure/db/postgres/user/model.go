package user

import (
	"time"
)

type (
	User struct {
		ID           int64
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
)
