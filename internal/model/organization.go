package model

import "time"

// Organization is a brand tenant. Links, API keys and ingested events
// are all scoped to one.
type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}
