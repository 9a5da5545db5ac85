package database

import "errors"

var (
	// ErrInvalidScheduleAction indicates a cron toggle action other than
	// enable or disable.
	ErrInvalidScheduleAction = errors.New("invalid schedule action")
)
