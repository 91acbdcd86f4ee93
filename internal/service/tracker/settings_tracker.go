package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/models"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/posture"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/redis"
)

const thresholdCacheTTL = 10 * time.Minute

func thresholdCacheKey(userID int64) string {
	return fmt.Sprintf("tracker:thresholds:%d", userID)
}

// GetSettings returns the stored thresholds for the user, creating the row
// with default values on first read.
func (s *Service) GetSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, is_too_close, is_not_sitting, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, posture.DefaultTooClose, posture.DefaultNotSitting, now, now,
	)
	if err != nil {
		// A concurrent first read may have created the row already.
		if settings, selErr := s.loadSettings(ctx, userID); selErr == nil {
			return settings, nil
		}
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return s.loadSettings(ctx, userID)
}

// UpdateSettings validates and persists a threshold pair for the user.
// No partial write occurs on validation failure.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, pair posture.Thresholds) (*models.UserSettings, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_settings SET is_too_close = ?, is_not_sitting = ?, updated_at = ? WHERE user_id = ?`,
		pair.TooClose, pair.NotSitting, now, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO user_settings (user_id, is_too_close, is_not_sitting, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			userID, pair.TooClose, pair.NotSitting, now, now,
		); err != nil {
			return nil, fmt.Errorf("insert settings: %w", err)
		}
	}
	s.invalidateThresholds(ctx, userID)
	return s.loadSettings(ctx, userID)
}

// ResolveThresholds produces the effective pair used to classify a reading:
// request override, then stored settings, then defaults. Resolution never
// fails; a malformed stored pair degrades to the defaults.
func (s *Service) ResolveThresholds(ctx context.Context, userID int64, override *posture.Thresholds) posture.Thresholds {
	if override != nil {
		return *override
	}
	if cached, ok := s.cachedThresholds(ctx, userID); ok {
		return cached
	}

	effective := posture.DefaultThresholds()
	var stored posture.Thresholds
	err := s.db.QueryRowContext(ctx,
		`SELECT is_too_close, is_not_sitting FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&stored.TooClose, &stored.NotSitting)
	switch {
	case err == nil:
		if stored.Usable() {
			effective = stored
		}
	case errors.Is(err, sql.ErrNoRows):
		// No stored settings yet; keep defaults.
	default:
		log.Printf("resolve thresholds for user %d: %v", userID, err)
	}

	s.cacheThresholds(ctx, userID, effective)
	return effective
}

func (s *Service) loadSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, is_too_close, is_not_sitting, created_at, updated_at
		 FROM user_settings WHERE user_id = ?`, userID,
	)
	var settings models.UserSettings
	if err := row.Scan(&settings.UserID, &settings.IsTooClose, &settings.IsNotSitting,
		&settings.CreatedAt, &settings.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return &settings, nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return errors.New("invalid user id")
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("verify user: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Service) cachedThresholds(ctx context.Context, userID int64) (posture.Thresholds, bool) {
	if s.cache == nil {
		return posture.Thresholds{}, false
	}
	raw, err := s.cache.Get(ctx, thresholdCacheKey(userID))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("threshold cache load failed: %v", err)
		}
		return posture.Thresholds{}, false
	}
	var pair posture.Thresholds
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		log.Printf("threshold cache decode failed: %v", err)
		return posture.Thresholds{}, false
	}
	if !pair.Usable() {
		return posture.Thresholds{}, false
	}
	return pair, true
}

func (s *Service) cacheThresholds(ctx context.Context, userID int64, pair posture.Thresholds) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(pair)
	if err != nil {
		log.Printf("threshold cache marshal failed: %v", err)
		return
	}
	if err := s.cache.Set(ctx, thresholdCacheKey(userID), data, thresholdCacheTTL); err != nil {
		log.Printf("threshold cache store failed: %v", err)
	}
}

func (s *Service) invalidateThresholds(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, thresholdCacheKey(userID)); err != nil && err != redis.ErrCacheMiss {
		log.Printf("threshold cache invalidate failed: %v", err)
	}
}
