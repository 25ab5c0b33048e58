package domain

import "time"

// Principal is the authenticated subject a token set belongs to. The service
// treats the id as opaque; Active gates whether new sessions may be minted.
type Principal struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
