package repository

import "errors"

// ErrDBNotReady is returned when a repository is used before the database
// connection has been injected.
var ErrDBNotReady = errors.New("database not ready")
