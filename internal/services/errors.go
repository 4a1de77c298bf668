package services

import "errors"

// ErrNotFound is returned when an identifier does not resolve to a record.
var ErrNotFound = errors.New("record not found")

// ErrInvalidCredentials covers both an unknown username and a wrong
// password, so callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid credentials")
