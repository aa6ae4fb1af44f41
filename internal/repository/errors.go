package repository

import "errors"

// ErrNotFound is returned when a keyed lookup matches no row. Postgres
// implementations map pgx.ErrNoRows onto it so callers never depend on the
// driver.
var ErrNotFound = errors.New("repository: not found")
