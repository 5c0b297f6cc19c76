// Package user is an in-process user store for local runs and tests. It
// mirrors the Postgres repository: ids are never reused and email
// uniqueness is case-insensitive.
package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"user-registry-api/internal/domain/user"
)

type Repository struct {
	mu     sync.RWMutex
	nextID user.ID
	rows   map[user.ID]user.User
}

func NewRepository() *Repository {
	return &Repository{
		nextID: 1,
		rows:   make(map[user.ID]user.User),
	}
}

func (r *Repository) FetchUsers(ctx context.Context) (user.Users, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	us := make(user.Users, 0, len(r.rows))
	for _, row := range r.rows {
		u := row
		us = append(us, &u)
	}
	sort.Slice(us, func(i, j int) bool { return us[i].ID < us[j].ID })

	return us, nil
}

func (r *Repository) FetchUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}

	return &row, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.emailTaken(email, 0), nil
}

func (r *Repository) CreateUser(ctx context.Context, req user.User) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(req.Email, 0) {
		return nil, user.ErrEmailAlreadyExists
	}

	req.ID = r.nextID
	r.nextID++
	r.rows[req.ID] = req

	return &req, nil
}

func (r *Repository) UpdateUser(ctx context.Context, req user.User) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[req.ID]
	if !ok {
		return nil, nil
	}
	if r.emailTaken(req.Email, req.ID) {
		return nil, user.ErrEmailAlreadyExists
	}

	// password_hash and created_at are not writable through an update.
	row.Name = req.Name
	row.Email = req.Email
	row.BirthDate = req.BirthDate
	row.Phone = req.Phone
	row.Active = req.Active
	row.UpdatedAt = notBefore(req.UpdatedAt, row.CreatedAt)
	r.rows[row.ID] = row

	return &row, nil
}

func (r *Repository) DeactivateUser(ctx context.Context, id user.ID, at time.Time) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	row.Active = false
	row.UpdatedAt = notBefore(&at, row.CreatedAt)
	r.rows[id] = row

	return &row, nil
}

// emailTaken must be called with mu held.
func (r *Repository) emailTaken(email string, except user.ID) bool {
	for id, row := range r.rows {
		if id != except && user.SameEmail(row.Email, email) {
			return true
		}
	}
	return false
}

// notBefore clamps updated_at so it never precedes created_at.
func notBefore(at *time.Time, createdAt time.Time) *time.Time {
	if at == nil || !at.Before(createdAt) {
		return at
	}
	c := createdAt
	return &c
}
