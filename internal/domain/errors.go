package domain

import "errors"

// Error taxonomy shared by stores and services. The delivery layer maps
// ErrUnauthorized to the same response as ErrNotFound so that a non-owner
// cannot probe whether a comment exists.
var (
	// ErrNotFound means the article or comment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was malformed: content out of bounds,
	// token too short, bad selection offsets.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidParent means the parent comment is missing or belongs to
	// a different article.
	ErrInvalidParent = errors.New("invalid parent comment")

	// ErrUnauthorized means the supplied author token does not match.
	ErrUnauthorized = errors.New("unauthorized")
)
