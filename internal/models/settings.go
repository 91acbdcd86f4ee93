package models

import "time"

// UserSettings holds the per-user distance thresholds in centimeters.
// The row is created lazily on first settings read with default values.
type UserSettings struct {
	UserID       int64     `json:"user_id"`
	IsTooClose   float64   `json:"is_too_close"`
	IsNotSitting float64   `json:"is_not_sitting"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
