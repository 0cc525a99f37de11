package lifecycle

import "errors"

var (
	ErrLocationRequired = errors.New("location service is required")
	ErrGateRequired     = errors.New("size gate is required")
	ErrOpenerRequired   = errors.New("storage opener is required")
	ErrInvalidPoolSize  = errors.New("disposer pool size must be positive")
)
