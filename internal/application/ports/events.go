package ports

import (
	"context"

	"user-registry-api/internal/domain/user"
)

type UserEventPublisher interface {
	PublishUserEvent(ctx context.Context, e user.Event) error
}
