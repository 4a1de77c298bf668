package models

import "time"

// Session is one cookie-backed browser session. UserID is nil until the
// client authenticates. Flash holds one-shot messages, field errors and
// old form input; it is serialized as JSON text in storage and cleared
// the first time it is read.
type Session struct {
	ID        string
	UserID    *string
	Username  string
	Token     string // anti-forgery token, rotated with the session id
	Flash     FlashData
	CreatedAt time.Time
	ExpiresAt time.Time
}

// FlashData carries state that survives exactly one redirect.
type FlashData struct {
	Messages map[string]string `json:"messages,omitempty"` // e.g. "success" or "error" banners
	Errors   map[string]string `json:"errors,omitempty"`   // field name -> message
	Old      map[string]string `json:"old,omitempty"`      // submitted input for re-display
	Intended string            `json:"intended,omitempty"` // URL to return to after login
}

// Empty reports whether there is nothing to flush to the next request.
func (f FlashData) Empty() bool {
	return len(f.Messages) == 0 && len(f.Errors) == 0 && len(f.Old) == 0 && f.Intended == ""
}

// Authenticated reports whether a principal is attached to the session.
func (s *Session) Authenticated() bool {
	return s.UserID != nil
}
