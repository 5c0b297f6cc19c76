package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"user-registry-api/internal/application/ports"
	domain "user-registry-api/internal/domain/user"
	"user-registry-api/internal/infrastructure/metrics"
)

// publishTimeout bounds an event publish that outlives its request.
const publishTimeout = 3 * time.Second

type UserService struct {
	userRepository domain.Repository
	hasher         ports.PasswordHasher
	events         ports.UserEventPublisher
	mCounter       *prometheus.CounterVec
	logger         *zap.Logger
	now            func() time.Time
}

func NewUserService(
	userRepository domain.Repository,
	hasher ports.PasswordHasher,
	events ports.UserEventPublisher,
	mCounter *prometheus.CounterVec,
	logger *zap.Logger,
) ports.UserService {
	return &UserService{
		userRepository: userRepository,
		hasher:         hasher,
		events:         events,
		mCounter:       mCounter,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (us *UserService) ListUsers(ctx context.Context) (domain.Users, error) {
	users, err := us.userRepository.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (us *UserService) FindUserByID(ctx context.Context, id domain.ID) (*domain.User, error) {
	u, err := us.userRepository.FetchUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return u, nil
}

func (us *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	return us.userRepository.EmailExists(ctx, email)
}

func (us *UserService) CreateUser(ctx context.Context, r domain.Registration) (*domain.User, error) {
	exists, err := us.userRepository.EmailExists(ctx, r.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, us.emailConflict(r.Email)
	}

	hash, err := us.hasher.Hash(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := us.now()
	u, err := us.userRepository.CreateUser(ctx, domain.User{
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: hash,
		BirthDate:    r.BirthDate,
		Phone:        r.Phone,
		Active:       true,
		CreatedAt:    now,
	})
	if err != nil {
		// lost the race against a concurrent insert of the same address
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, us.emailConflict(r.Email)
		}
		return nil, err
	}

	us.publish(ctx, domain.EventCreated, u)
	us.mCounter.WithLabelValues(metrics.UserCreated).Inc()

	return u, nil
}

func (us *UserService) UpdateUser(ctx context.Context, id domain.ID, ch domain.Changes) (*domain.User, error) {
	current, err := us.userRepository.FetchUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrUserNotFound
	}

	if !domain.SameEmail(current.Email, ch.Email) {
		exists, err := us.userRepository.EmailExists(ctx, ch.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if exists {
			return nil, us.emailConflict(ch.Email)
		}
	}

	now := us.now()
	next := *current
	next.Name = ch.Name
	next.Email = ch.Email
	next.BirthDate = ch.BirthDate
	next.Phone = ch.Phone
	if ch.Active != nil {
		next.Active = *ch.Active
	}
	next.UpdatedAt = &now

	u, err := us.userRepository.UpdateUser(ctx, next)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, us.emailConflict(ch.Email)
		}
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	us.publish(ctx, domain.EventUpdated, u)
	us.mCounter.WithLabelValues(metrics.UserUpdated).Inc()

	return u, nil
}

// DeleteUser flips the active flag. The row is kept; false means no such id.
func (us *UserService) DeleteUser(ctx context.Context, id domain.ID) (bool, error) {
	now := us.now()
	u, err := us.userRepository.DeactivateUser(ctx, id, now)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}

	us.publish(ctx, domain.EventDeactivated, u)
	us.mCounter.WithLabelValues(metrics.UserDeactivated).Inc()

	return true, nil
}

func (us *UserService) emailConflict(email string) error {
	us.mCounter.WithLabelValues(metrics.EmailConflict).Inc()
	return fmt.Errorf("%w: %s", domain.ErrEmailAlreadyExists, email)
}

// publish runs after the commit, so a failure is only logged. The event is
// stamped with the committed timestamp of the row.
func (us *UserService) publish(ctx context.Context, kind domain.EventKind, u *domain.User) {
	at := u.CreatedAt
	if kind != domain.EventCreated && u.UpdatedAt != nil {
		at = *u.UpdatedAt
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := us.events.PublishUserEvent(ctx, domain.Event{Kind: kind, At: at, User: *u}); err != nil {
		us.mCounter.WithLabelValues(metrics.EventPublishFail).Inc()
		us.logger.Warn("user event publish failed",
			zap.String("event", string(kind)),
			zap.Int64("user_id", int64(u.ID)),
			zap.Error(err),
		)
	}
}
