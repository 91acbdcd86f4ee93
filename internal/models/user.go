package models

import "time"

// User identifies a monitored person. Accounts are created out of band;
// the API only reads and updates the profile fields.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
