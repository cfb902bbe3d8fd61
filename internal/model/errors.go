package model

import "errors"

// Operation failure taxonomy. Callers classify with errors.Is; lower-level
// store failures are wrapped in ErrStore so the engine never leaks driver
// error types upward.
var (
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrNoValidInput      = errors.New("no valid input")
	ErrAllAlreadyMembers = errors.New("all users are already members")
	ErrSelfRemoval       = errors.New("owner cannot remove self")
	ErrStore             = errors.New("store failure")
)
