package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/models"
)

// ErrSessionActive is returned when a session start would leave a user with
// two active sessions.
var ErrSessionActive = errors.New("an active session already exists for this user")

// StartSession creates a new active session for the user. The check-and-insert
// runs inside one transaction so concurrent starts cannot both succeed.
func (s *Service) StartSession(ctx context.Context, userID int64, goalMinutes int) (*models.Session, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if goalMinutes <= 0 {
		return nil, errors.New("goalMinutes must be greater than zero")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var active bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE user_id = ? AND ended_at IS NULL)`, userID,
	).Scan(&active); err != nil {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if active {
		err = ErrSessionActive
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (user_id, goal_minutes, started_at, away_notified) VALUES (?, ?, ?, 0)`,
		userID, goalMinutes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session start: %w", err)
	}
	return &models.Session{ID: id, UserID: userID, GoalMinutes: goalMinutes, StartedAt: now}, nil
}

// EndSession stamps the end time and stores the client-supplied aggregates
// verbatim. Ending an already-ended session overwrites the previous values.
func (s *Service) EndSession(ctx context.Context, sessionID int64, focusedPerc, awayPerc *float64, postureScore *string) (*models.Session, error) {
	if sessionID <= 0 {
		return nil, errors.New("invalid session id")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, focused_perc = ?, away_perc = ?, posture_score = ? WHERE id = ?`,
		now, focusedPerc, awayPerc, postureScore, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return s.GetSession(ctx, sessionID)
}

// ActiveSession returns the most recent session for the user with no end
// time, or nil when the user has no active session.
func (s *Service) ActiveSession(ctx context.Context, userID int64) (*models.Session, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user id")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, goal_minutes, started_at, ended_at, focused_perc, away_perc, posture_score, away_notified
		 FROM sessions WHERE user_id = ? AND ended_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`, userID,
	)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return session, nil
}

// GetSession fetches a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	if sessionID <= 0 {
		return nil, errors.New("invalid session id")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, goal_minutes, started_at, ended_at, focused_perc, away_perc, posture_score, away_notified
		 FROM sessions WHERE id = ?`, sessionID,
	)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	var endedAt sql.NullTime
	var focused, away sql.NullFloat64
	var score sql.NullString
	if err := row.Scan(&session.ID, &session.UserID, &session.GoalMinutes, &session.StartedAt,
		&endedAt, &focused, &away, &score, &session.AwayNotified); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	if focused.Valid {
		v := focused.Float64
		session.FocusedPerc = &v
	}
	if away.Valid {
		v := away.Float64
		session.AwayPerc = &v
	}
	if score.Valid {
		v := score.String
		session.PostureScore = &v
	}
	return &session, nil
}
