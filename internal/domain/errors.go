package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownGame     = errors.New("unknown game type")
	ErrUnknownDuration = errors.New("duration not enabled for game")
	ErrInvalidCategory = errors.New("invalid bet category")
	ErrInvalidStake    = errors.New("invalid stake")
	ErrBettingClosed   = errors.New("betting closed for period")
	ErrLockHeld        = errors.New("lock already held")
)
