package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/models"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/posture"
)

// awayWindow is the number of most-recent readings that must all be flagged
// not-sitting before a session is considered abandoned. The unanimity check
// is recomputed from scratch on every ingestion: O(awayWindow) per call,
// which is fine at this window size.
const awayWindow = 50

// ErrNoActiveSession is returned when a reading arrives for a user without
// an active session.
var ErrNoActiveSession = errors.New("no active session for user")

// RecordReading classifies and persists one distance sample against the
// user's active session, then re-evaluates the away-notification condition.
func (s *Service) RecordReading(ctx context.Context, userID int64, distance float64, override *posture.Thresholds) (*models.Reading, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	session, err := s.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}

	thresholds := s.ResolveThresholds(ctx, userID, override)
	cls := posture.Classify(distance, thresholds)

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (session_id, distance, is_too_close, is_not_sitting, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, distance, cls.IsTooClose, cls.IsNotSitting, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading id: %w", err)
	}

	if !session.AwayNotified {
		s.maybeNotifyAway(ctx, session.ID, user)
	}

	return &models.Reading{
		ID:           id,
		SessionID:    session.ID,
		Distance:     distance,
		IsTooClose:   cls.IsTooClose,
		IsNotSitting: cls.IsNotSitting,
		Timestamp:    now,
	}, nil
}

// ListReadings returns all readings for a session ordered oldest first.
func (s *Service) ListReadings(ctx context.Context, sessionID int64) ([]models.Reading, error) {
	if sessionID <= 0 {
		return nil, errors.New("invalid session id")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, distance, is_too_close, is_not_sitting, timestamp
		 FROM readings WHERE session_id = ? ORDER BY timestamp ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Distance, &r.IsTooClose, &r.IsNotSitting, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// maybeNotifyAway fires the one-time absence reminder when the latest
// awayWindow readings are unanimously not-sitting. The away_notified flag is
// flipped with a conditional update so concurrent ingestions cannot notify
// twice; the mail itself is best-effort and happens after the flag is won.
// Evaluation errors are logged, never surfaced: the reading is already stored.
func (s *Service) maybeNotifyAway(ctx context.Context, sessionID int64, user *models.User) {
	flags, err := s.recentNotSittingFlags(ctx, sessionID, awayWindow)
	if err != nil {
		log.Printf("away evaluation for session %d: %v", sessionID, err)
		return
	}
	if len(flags) < awayWindow {
		return
	}
	for _, notSitting := range flags {
		if !notSitting {
			return
		}
	}
	if user.Email == "" {
		return
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET away_notified = 1 WHERE id = ? AND away_notified = 0`, sessionID,
	)
	if err != nil {
		log.Printf("mark session %d away-notified: %v", sessionID, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Another ingestion won the transition.
		return
	}
	if s.notifier != nil {
		s.notifier.Notify(user.Email, user.Name)
	}
}

func (s *Service) recentNotSittingFlags(ctx context.Context, sessionID int64, limit int) ([]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT is_not_sitting FROM readings WHERE session_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}
	defer rows.Close()

	flags := make([]bool, 0, limit)
	for rows.Next() {
		var notSitting bool
		if err := rows.Scan(&notSitting); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flags = append(flags, notSitting)
	}
	return flags, rows.Err()
}
