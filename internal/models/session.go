package models

import "time"

// Session is one supervised interval of screen use. EndedAt is nil while the
// session is active. The aggregate fields are supplied by the client when the
// session ends and stored verbatim.
type Session struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	GoalMinutes  int        `json:"goal_minutes"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	FocusedPerc  *float64   `json:"focused_perc"`
	AwayPerc     *float64   `json:"away_perc"`
	PostureScore *string    `json:"posture_score"`
	AwayNotified bool       `json:"away_notified"`
}

// Active reports whether the session has not been ended yet.
func (s *Session) Active() bool {
	return s != nil && s.EndedAt == nil
}
