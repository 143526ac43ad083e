// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCredentialRequired indicates no password was supplied and no usable session is stored.
	ErrCredentialRequired = errors.New("credential required")

	// ErrInvalidCredentials indicates the upstream rejected the username/password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUpstreamUnavailable indicates a network or 5xx failure talking to the upstream.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStorage indicates a persistent-store read/write failure.
	ErrStorage = errors.New("storage failure")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
