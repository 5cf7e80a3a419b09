package domain

import "errors"

// ErrNotFound is returned when an operation targets a record that does
// not exist. Callers report "not found" to the user instead of failing.
var ErrNotFound = errors.New("not found")
