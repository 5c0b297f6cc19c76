package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	domain "user-registry-api/internal/domain/user"
	memuser "user-registry-api/internal/infrastructure/db/memory/user"
	"user-registry-api/internal/infrastructure/hasher"
	"user-registry-api/internal/infrastructure/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) PublishUserEvent(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// countingRepository wraps a repository and counts writes.
type countingRepository struct {
	domain.Repository
	writes int
	err    error
}

func (r *countingRepository) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	r.writes++
	if r.err != nil {
		return nil, r.err
	}
	return r.Repository.CreateUser(ctx, u)
}

func (r *countingRepository) UpdateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	r.writes++
	if r.err != nil {
		return nil, r.err
	}
	return r.Repository.UpdateUser(ctx, u)
}

func (r *countingRepository) DeactivateUser(ctx context.Context, id domain.ID, at time.Time) (*domain.User, error) {
	u, err := r.Repository.DeactivateUser(ctx, id, at)
	if u != nil {
		r.writes++
	}
	return u, err
}

type fixture struct {
	svc     *UserService
	repo    *countingRepository
	events  *recordingPublisher
	counter *prometheus.CounterVec
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:    &countingRepository{Repository: memuser.NewRepository()},
		events:  &recordingPublisher{},
		counter: metrics.NewCounter(prometheus.NewRegistry()),
		clock:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewUserService(f.repo, hasher.NewBcrypt(bcrypt.MinCost), f.events, f.counter, zap.NewNop()).(*UserService)
	f.svc.now = func() time.Time { return f.clock }

	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func registration(email string) domain.Registration {
	return domain.Registration{
		Name:      "Ana Silva",
		Email:     email,
		Password:  "Abc123",
		BirthDate: time.Date(2006, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestUserService_CreateThenGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.True(t, created.Active)
	assert.Equal(t, f.clock, created.CreatedAt)
	assert.Nil(t, created.UpdatedAt)
	assert.NotEqual(t, "Abc123", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("Abc123")))

	got, err := f.svc.FindUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana Silva", got.Name)
	assert.Equal(t, "ana@mail.com", got.Email)
	assert.True(t, got.Active)

	assert.Equal(t, 1, f.repo.writes)
	assert.Equal(t, []domain.EventKind{domain.EventCreated}, f.events.kinds())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.counter.WithLabelValues(metrics.UserCreated)))
}

func TestUserService_CreateDuplicateEmailIgnoresCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.NoError(t, err)

	_, err = f.svc.CreateUser(ctx, registration("ANA@Mail.com"))
	require.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	assert.Contains(t, err.Error(), "ANA@Mail.com")

	assert.Equal(t, 1, f.repo.writes, "conflict must be detected before the insert")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.counter.WithLabelValues(metrics.EmailConflict)))
}

func TestUserService_CreateConflictsWithInactiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.NoError(t, err)
	ok, err := f.svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

// raceRepository reports the email as free and then rejects the insert,
// the way the unique index does when a concurrent create wins.
type raceRepository struct {
	domain.Repository
}

func (raceRepository) EmailExists(context.Context, string) (bool, error) { return false, nil }
func (raceRepository) CreateUser(context.Context, domain.User) (*domain.User, error) {
	return nil, domain.ErrEmailAlreadyExists
}

func TestUserService_CreateStoreConflictIsConflict(t *testing.T) {
	svc := NewUserService(
		raceRepository{},
		hasher.NewBcrypt(bcrypt.MinCost),
		&recordingPublisher{},
		metrics.NewCounter(prometheus.NewRegistry()),
		zap.NewNop(),
	)

	_, err := svc.CreateUser(context.Background(), registration("ana@mail.com"))
	require.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestUserService_CreateUnexpectedError(t *testing.T) {
	f := newFixture(t)
	f.repo.err = errors.New("connection refused")

	_, err := f.svc.CreateUser(context.Background(), registration("ana@mail.com"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrEmailAlreadyExists)
	assert.Empty(t, f.events.kinds())
}

func TestUserService_CreateSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	u, err := f.svc.CreateUser(context.Background(), registration("ana@mail.com"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.counter.WithLabelValues(metrics.EventPublishFail)))
}

func TestUserService_Update(t *testing.T) {
	active := false

	tests := []struct {
		name       string
		id         func(existing domain.ID) domain.ID
		changes    domain.Changes
		seedOther  bool
		wantErr    error
		wantWrites int
		check      func(t *testing.T, f *fixture, u *domain.User)
	}{
		{
			name:       "not found",
			id:         func(domain.ID) domain.ID { return 999 },
			changes:    domain.Changes{Name: "Ana Souza", Email: "ana@mail.com"},
			wantErr:    domain.ErrUserNotFound,
			wantWrites: 1,
		},
		{
			name:       "same email only other fields",
			id:         func(id domain.ID) domain.ID { return id },
			changes:    domain.Changes{Name: "Ana Souza", Email: "ana@mail.com", BirthDate: time.Date(2000, 2, 2, 0, 0, 0, 0, time.UTC)},
			seedOther:  true,
			wantWrites: 3,
			check: func(t *testing.T, f *fixture, u *domain.User) {
				assert.Equal(t, "Ana Souza", u.Name)
				assert.True(t, u.Active, "missing active keeps the stored flag")
				require.NotNil(t, u.UpdatedAt)
				assert.Equal(t, f.clock, *u.UpdatedAt)
				assert.True(t, !u.UpdatedAt.Before(u.CreatedAt))
			},
		},
		{
			name:       "email taken by another user",
			id:         func(id domain.ID) domain.ID { return id },
			changes:    domain.Changes{Name: "Ana Silva", Email: "bruno@mail.com"},
			seedOther:  true,
			wantErr:    domain.ErrEmailAlreadyExists,
			wantWrites: 2,
		},
		{
			name:       "new free email and active flag",
			id:         func(id domain.ID) domain.ID { return id },
			changes:    domain.Changes{Name: "Ana Silva", Email: "ana.silva@mail.com", Active: &active},
			wantWrites: 2,
			check: func(t *testing.T, f *fixture, u *domain.User) {
				assert.Equal(t, "ana.silva@mail.com", u.Email)
				assert.False(t, u.Active)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			existing, err := f.svc.CreateUser(ctx, registration("ana@mail.com"))
			require.NoError(t, err)
			if tt.seedOther {
				_, err = f.svc.CreateUser(ctx, registration("bruno@mail.com"))
				require.NoError(t, err)
			}
			f.advance(time.Hour)

			u, err := f.svc.UpdateUser(ctx, tt.id(existing.ID), tt.changes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				require.NotNil(t, u)
				assert.Equal(t, existing.PasswordHash, u.PasswordHash, "update never touches the password")
				assert.Equal(t, existing.CreatedAt, u.CreatedAt)
				tt.check(t, f, u)
			}
			assert.Equal(t, tt.wantWrites, f.repo.writes)
		})
	}
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.NoError(t, err)
	f.advance(time.Minute)

	ok, err := f.svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.svc.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "soft delete keeps the row")
	assert.False(t, got.Active)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, f.clock, *got.UpdatedAt)

	all, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "inactive users are still listed")

	assert.Equal(t, []domain.EventKind{domain.EventCreated, domain.EventDeactivated}, f.events.kinds())
}

func TestUserService_DeleteMissing(t *testing.T) {
	f := newFixture(t)

	ok, err := f.svc.DeleteUser(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, f.repo.writes)
	assert.Empty(t, f.events.kinds())
}

func TestUserService_ListOrderedByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, e := range []string{"c@mail.com", "a@mail.com", "b@mail.com"} {
		_, err := f.svc.CreateUser(ctx, registration(e))
		require.NoError(t, err)
	}

	us, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, us, 3)
	for i := 1; i < len(us); i++ {
		assert.Less(t, us[i-1].ID, us[i].ID)
	}
}

func TestUserService_EmailExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.svc.EmailExists(ctx, "ana@mail.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.NoError(t, err)

	ok, err = f.svc.EmailExists(ctx, "ana@mail.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserService_EventsCarryCommittedTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateUser(ctx, registration("ana@mail.com"))
	require.NoError(t, err)

	// a clock behind created_at gets clamped by the store
	f.advance(-time.Hour)
	updated, err := f.svc.UpdateUser(ctx, created.ID, domain.Changes{
		Name:      "Ana Lima",
		Email:     "ana@mail.com",
		BirthDate: created.BirthDate,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, created.CreatedAt, *updated.UpdatedAt)

	f.advance(-time.Hour)
	deleted, err := f.svc.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	stored, err := f.svc.FindUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.UpdatedAt)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 3)
	assert.Equal(t, created.CreatedAt, f.events.events[0].At)
	assert.Equal(t, *updated.UpdatedAt, f.events.events[1].At)
	assert.Equal(t, *stored.UpdatedAt, f.events.events[2].At)
	assert.NotEqual(t, f.clock, f.events.events[2].At)
}
