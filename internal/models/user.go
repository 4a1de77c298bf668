package models

import "time"

// User represents a login principal. Accounts are created by the seeder;
// the application itself only reads them during authentication.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	CreatedAt    time.Time `json:"createdAt"`
}
