package alarm

import "errors"

var (
	// ErrDuplicateID is returned when a Start request reuses a pending alarm id.
	ErrDuplicateID = errors.New("alarm id already exists")
	// ErrNotFound is returned when a request targets an alarm that is not pending.
	ErrNotFound = errors.New("alarm not found")
	// ErrInvalidField is returned when a request carries an out-of-range field.
	ErrInvalidField = errors.New("invalid field")
)
