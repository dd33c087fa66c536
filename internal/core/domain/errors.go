package domain

import "errors"

var (
	// ErrNotFound is returned when the asset API has no such resource.
	ErrNotFound = errors.New("not found")
	// ErrUpstream is returned when the asset API answers with an error.
	ErrUpstream = errors.New("asset api error")
	// ErrUpstreamUnavailable is returned while calls to the asset API are
	// short-circuited.
	ErrUpstreamUnavailable = errors.New("asset api unavailable")
)
