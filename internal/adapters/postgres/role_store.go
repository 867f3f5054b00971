package postgres

// Package postgres persists per-user role records, the authoritative source
// for authorization decisions. Token claims may lag after an operator
// changes a role here; this table wins.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	apperrors "github.com/calluna-labs/authgate/internal/errors"
	"github.com/calluna-labs/authgate/internal/ports"
)

// RoleStore reads and writes role records over database/sql with the pgx driver.
type RoleStore struct {
	db *sql.DB
}

var _ ports.RoleStore = (*RoleStore)(nil)

// NewRoleStore creates a RoleStore over an open database handle.
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

// Lookup returns the persisted role for a subject. Unknown subjects yield
// ports.ErrRoleNotFound; transport failures are classified so callers can
// fail closed on upstream trouble.
func (s *RoleStore) Lookup(ctx context.Context, subject string) (domainauth.Role, error) {
	if subject == "" {
		return "", ports.ErrRoleNotFound
	}

	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM user_roles WHERE subject = $1`, subject,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ports.ErrRoleNotFound
		}
		return "", fmt.Errorf("lookup role for %s: %w", subject, apperrors.MapDBError(err))
	}

	if !domainauth.ValidRole(role) {
		// An unknown value in the record never elevates.
		return domainauth.RoleUser, nil
	}
	return domainauth.Role(role), nil
}

// SetRole creates or replaces the role record for a subject.
func (s *RoleStore) SetRole(ctx context.Context, subject string, role domainauth.Role) error {
	if subject == "" {
		return apperrors.Validation("subject is required")
	}
	if !domainauth.ValidRole(string(role)) {
		return apperrors.Validation(fmt.Sprintf("invalid role %q", role))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (subject, role, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (subject) DO UPDATE
		SET role = EXCLUDED.role, updated_at = now()`,
		subject, string(role),
	)
	if err != nil {
		return fmt.Errorf("set role for %s: %w", subject, apperrors.MapDBError(err))
	}
	return nil
}

// EnsureSchema creates the role table if it does not exist. Called by the
// admin CLI's migrate command.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_roles (
			subject    TEXT PRIMARY KEY,
			role       TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure user_roles schema: %w", apperrors.MapDBError(err))
	}
	return nil
}
