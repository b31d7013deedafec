package warmup

import "errors"

// Sentinel errors for the warmup service layer.
var (
	ErrNotFound          = errors.New("dedicated ip state not found")
	ErrInvalidTransition = errors.New("invalid dedicated ip transition")
)
