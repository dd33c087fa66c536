package usecases

import "errors"

var (
	// ErrSessionNotFound is returned when a results session ID is unknown or reaped.
	ErrSessionNotFound = errors.New("results session not found")
	// ErrStaleResponse is returned when a response arrives for a query or
	// offset that is no longer current.
	ErrStaleResponse = errors.New("stale response discarded")
	// ErrNoThumbnailSource is returned when an item has no file in a
	// thumbnail-capable format.
	ErrNoThumbnailSource = errors.New("no file suitable for a thumbnail")
	// ErrNoScheduler is returned by Schedule when no durable job runner is configured.
	ErrNoScheduler = errors.New("thumbnail scheduler not configured")
	// ErrInvalidRegion is returned for a region without a usable geometry.
	ErrInvalidRegion = errors.New("invalid search region")
	// ErrUnknownField is returned when a range is set on a field without a slider.
	ErrUnknownField = errors.New("unknown filter field")
	// ErrInvalidRange is returned when a range is empty or falls outside its bounds.
	ErrInvalidRange = errors.New("invalid filter range")
	// ErrInvalidSavedSearch is returned when a saved search has no name.
	ErrInvalidSavedSearch = errors.New("invalid saved search")
	// ErrSavedSearchNotFound is returned when a saved search does not exist.
	ErrSavedSearchNotFound = errors.New("saved search not found")
)
