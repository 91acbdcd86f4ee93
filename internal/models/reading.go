package models

import "time"

// Reading is a single distance-from-screen sample tied to a session.
// The two flags are derived from the thresholds in effect at ingestion time
// and are mutually exclusive; both false means acceptable posture.
type Reading struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"session_id"`
	Distance     float64   `json:"distance"`
	IsTooClose   bool      `json:"is_too_close"`
	IsNotSitting bool      `json:"is_not_sitting"`
	Timestamp    time.Time `json:"timestamp"`
}
