package models

import "errors"

// Errors returned by store implementations.
var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPlayerAtOtherTable  = errors.New("player is seated at another table")
	ErrPlayerNotSeated     = errors.New("player is not seated at this table")
)
