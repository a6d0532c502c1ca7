// Package repository holds the persistence adapters of the platform: the
// MySQL credential store and the session revocation list.  The sentinel
// errors below let the service layer tell lookup misses and uniqueness
// violations apart from infrastructure failures.
package repository

import "errors"

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by Create when the email is already taken.
var ErrEmailExists = errors.New("email already exists")
