package user

import (
	"context"
	"time"
)

// Repository is the persistence gateway for users. Fetch methods return
// (nil, nil) when no row matches. Create and Update return
// ErrEmailAlreadyExists when the store rejects a duplicate address.
type Repository interface {
	FetchUsers(ctx context.Context) (Users, error)
	FetchUserByID(ctx context.Context, id ID) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u User) (*User, error)
	UpdateUser(ctx context.Context, u User) (*User, error)
	DeactivateUser(ctx context.Context, id ID, at time.Time) (*User, error)
}
