package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// usersSchema is idempotent. The lower(email) index is the authoritative
// uniqueness guard; application checks only give a friendlier early answer.
const usersSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name          VARCHAR(100) NOT NULL,
		email         VARCHAR(320) NOT NULL,
		password_hash TEXT         NOT NULL,
		birth_date    DATE         NOT NULL,
		phone         VARCHAR(15),
		active        BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ  NOT NULL,
		updated_at    TIMESTAMPTZ,
		CONSTRAINT users_updated_after_created CHECK (updated_at IS NULL OR updated_at >= created_at)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email));
`

func EnsureSchema(ctx context.Context, logger *zap.Logger, db DB) error {
	if _, err := db.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}

	logger.Info("users schema ensured")

	return nil
}
