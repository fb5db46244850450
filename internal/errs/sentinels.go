// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCodeTaken indicates a join-code collision on household creation.
	ErrCodeTaken = errors.New("join code taken")

	// ErrNoRemote indicates a household operation on an engine configured
	// without a remote store.
	ErrNoRemote = errors.New("remote store not configured")
)
