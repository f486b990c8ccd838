package directory

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/pg"
)

// Migrations holds the schema, applied with pg.Migrate(ctx, pool, Migrations, MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the SQL files.
const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool the directory uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Directory resolves users and their devices from PostgreSQL.
type Directory struct {
	db DB
}

// New creates a directory over db.
func New(db DB) *Directory {
	return &Directory{db: db}
}

const (
	selectRecipient = `SELECT email, name FROM users WHERE id = $1`

	upsertRecipient = `
INSERT INTO users (id, email, name) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()`

	upsertDeviceToken = `
INSERT INTO device_tokens (token, user_id, platform) VALUES ($1, $2, $3)
ON CONFLICT (token) DO UPDATE
SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, active = TRUE, updated_at = now()`

	selectActiveTokens = `SELECT token FROM device_tokens WHERE user_id = $1 AND active ORDER BY created_at`

	deactivateTokens = `UPDATE device_tokens SET active = FALSE, updated_at = now() WHERE token = ANY($1) AND active`
)

// Recipient returns the email identity of userID.
func (d *Directory) Recipient(ctx context.Context, userID string) (notifications.Recipient, error) {
	var r notifications.Recipient
	if err := d.db.QueryRow(ctx, selectRecipient, userID).Scan(&r.Email, &r.Name); err != nil {
		if pg.IsNotFoundError(err) {
			return notifications.Recipient{}, notifications.ErrRecipientNotFound
		}
		return notifications.Recipient{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return r, nil
}

// UpsertRecipient creates or updates the user's email identity.
func (d *Directory) UpsertRecipient(ctx context.Context, userID string, r notifications.Recipient) error {
	if userID == "" {
		return notifications.ErrUserIDRequired
	}
	if _, err := d.db.Exec(ctx, upsertRecipient, userID, r.Email, r.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return nil
}

// RegisterDeviceToken stores or reactivates a push token. A token already
// registered to another user moves to userID.
func (d *Directory) RegisterDeviceToken(ctx context.Context, userID, token, platform string) error {
	if userID == "" {
		return notifications.ErrUserIDRequired
	}
	if token == "" {
		return ErrTokenRequired
	}
	if _, err := d.db.Exec(ctx, upsertDeviceToken, token, userID, platform); err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return notifications.ErrRecipientNotFound
		}
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return nil
}

// ActiveDeviceTokens returns the user's active push tokens, oldest first.
func (d *Directory) ActiveDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.Query(ctx, selectActiveTokens, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return tokens, nil
}

// DeactivateDeviceTokens marks tokens inactive so they are no longer targeted.
func (d *Directory) DeactivateDeviceTokens(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := d.db.Exec(ctx, deactivateTokens, tokens); err != nil {
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return nil
}

var (
	_ notifications.RecipientDirectory = (*Directory)(nil)
	_ notifications.DeviceTokenStore   = (*Directory)(nil)
)
