package ports

import (
	"context"

	"user-registry-api/internal/domain/user"
)

// UserService returns user.ErrUserNotFound and user.ErrEmailAlreadyExists
// for the recoverable failures; anything else is unexpected.
type UserService interface {
	ListUsers(ctx context.Context) (user.Users, error)
	FindUserByID(ctx context.Context, id user.ID) (*user.User, error)
	CreateUser(ctx context.Context, r user.Registration) (*user.User, error)
	UpdateUser(ctx context.Context, id user.ID, ch user.Changes) (*user.User, error)
	DeleteUser(ctx context.Context, id user.ID) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
