package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/models"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/redis"
)

// Notifier delivers an away-from-desk reminder. Implementations are
// best-effort: failures must be logged by the implementation, never returned
// into the ingestion path.
type Notifier interface {
	Notify(toAddress, displayName string)
}

// Service handles user profiles, settings, session lifecycle, and reading
// ingestion over the relational store. The cache and notifier are optional.
type Service struct {
	db       *sql.DB
	cache    *redis.Client
	notifier Notifier
}

// NewService builds a new tracker service.
func NewService(db *sql.DB, cache *redis.Client, notifier Notifier) *Service {
	return &Service{db: db, cache: cache, notifier: notifier}
}

// GetUser fetches a user profile by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, errors.New("invalid user id")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id,
	)
	var user models.User
	var name sql.NullString
	if err := row.Scan(&user.ID, &name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Name = name.String
	return &user, nil
}

// UpdateUser stores the profile fields and returns the updated record.
func (s *Service) UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error) {
	if id <= 0 {
		return nil, errors.New("invalid user id")
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ? WHERE id = ?`,
		name, email, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// The row may exist with identical values; distinguish via lookup.
		if _, err := s.GetUser(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.GetUser(ctx, id)
}
