package models

import "time"

// Conference represents a single conference record.
type Conference struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Address      string    `json:"address"`
	Participants int       `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ConferenceInput is the submitted form payload for create and update.
// Fields are kept as strings so invalid input can be re-displayed verbatim.
type ConferenceInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Date         string `json:"date"` // expected layout: 2006-01-02
	Address      string `json:"address"`
	Participants string `json:"participants"`
}
