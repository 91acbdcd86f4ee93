package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/models"
)

// DashboardSummary aggregates a user's session history for the home page:
// heatmap weights (sessions per calendar day) and today's focus, idle,
// screen-time, and posture figures.
type DashboardSummary struct {
	SessionsPerDay    map[string]int   `json:"sessions_per_day"`
	SessionsToday     []models.Session `json:"sessions_today"`
	AvgFocusedPerc    float64          `json:"avg_focused_perc"`
	AvgAwayPerc       float64          `json:"avg_away_perc"`
	ScreenTimeMinutes float64          `json:"screen_time_minutes"`
	PostureScore      string           `json:"posture_score"`
}

// Dashboard computes the summary over all of the user's sessions.
func (s *Service) Dashboard(ctx context.Context, userID int64) (*DashboardSummary, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, goal_minutes, started_at, ended_at, focused_perc, away_perc, posture_score, away_notified
		 FROM sessions WHERE user_id = ? ORDER BY started_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	summary := &DashboardSummary{
		SessionsPerDay: make(map[string]int),
		SessionsToday:  make([]models.Session, 0),
	}
	var focusedSum, awaySum, screenTime float64
	scoreCounts := make(map[string]int)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summary.SessionsPerDay[session.StartedAt.Format("2006-01-02")]++

		started := session.StartedAt.In(now.Location())
		if started.Before(dayStart) || !started.Before(dayEnd) {
			continue
		}
		summary.SessionsToday = append(summary.SessionsToday, *session)
		if session.FocusedPerc != nil {
			focusedSum += *session.FocusedPerc
		}
		if session.AwayPerc != nil {
			awaySum += *session.AwayPerc
		}
		end := now
		if session.EndedAt != nil {
			end = *session.EndedAt
		}
		screenTime += end.Sub(session.StartedAt).Minutes()
		score := "Unknown"
		if session.PostureScore != nil {
			score = *session.PostureScore
		}
		scoreCounts[score]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	count := len(summary.SessionsToday)
	if count == 0 {
		summary.PostureScore = "No sessions yet"
		return summary, nil
	}
	summary.AvgFocusedPerc = focusedSum / float64(count)
	summary.AvgAwayPerc = awaySum / float64(count)
	summary.ScreenTimeMinutes = screenTime

	best := 0
	for score, n := range scoreCounts {
		if n > best {
			best = n
			summary.PostureScore = score
		}
	}
	return summary, nil
}
