package models

import "errors"

var (
	// ErrInvalidConfiguration reports invalid chunking or scoring parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidArgument reports a malformed call, such as a non-positive top_k or a candidate without distance.
	ErrInvalidArgument = errors.New("invalid argument")
)
