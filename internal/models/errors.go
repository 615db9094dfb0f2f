package models

import "errors"

var (
	// ErrInvalidInput is returned when a request parameter is malformed or out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable means the upstream catalog could not produce data.
	// Callers should treat it as "no data", not as a server fault.
	ErrUpstreamUnavailable = errors.New("upstream catalog unavailable")

	// ErrNotFound is returned when a user, movie or interaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an interaction already exists for a (user, movie) pair.
	ErrConflict = errors.New("already exists")

	// ErrRatingOutOfRange is returned for ratings that are not integers in [MinRating, MaxRating].
	ErrRatingOutOfRange = errors.New("rating must be an integer between 1 and 10")
)
