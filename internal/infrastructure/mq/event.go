package mq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"user-registry-api/internal/domain/user"
)

type (
	// Envelope is the JSON body of a published user event. The payload
	// never carries the password hash.
	Envelope struct {
		ID      uuid.UUID   `json:"event_id"`
		TS      time.Time   `json:"time_stamp"`
		Action  string      `json:"event_action"`
		UserID  int64       `json:"user_id"`
		Payload UserPayload `json:"user_payload"`
	}
	UserPayload struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		Email     string     `json:"email"`
		BirthDate string     `json:"birthDate"`
		Phone     *string    `json:"phone"`
		Active    bool       `json:"active"`
		CreatedAt time.Time  `json:"createdAt"`
		UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	}
)

func newEnvelope(id uuid.UUID, e user.Event) Envelope {
	u := e.User
	return Envelope{
		ID:     id,
		TS:     e.At,
		Action: string(e.Kind),
		UserID: int64(u.ID),
		Payload: UserPayload{
			ID:        int64(u.ID),
			Name:      u.Name,
			Email:     u.Email,
			BirthDate: u.BirthDate.Format(time.DateOnly),
			Phone:     u.Phone,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
	}
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishUserEvent(context.Context, user.Event) error { return nil }
