package wheel

import "errors"

var (
	ErrEmptySelection    = errors.New("wheel: no items to select from")
	ErrNoWeight          = errors.New("wheel: total weight must be positive")
	ErrWeightOverflow    = errors.New("wheel: total weight is not finite")
	ErrAlreadySpinning   = errors.New("wheel: spin already in progress")
	ErrClosed            = errors.New("wheel: controller closed")
	ErrInvalidTrajectory = errors.New("wheel: invalid trajectory request")
)
