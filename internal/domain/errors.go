package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrLockHeld             = errors.New("lock already held")
	ErrCycleInProgress      = errors.New("detection cycle already in progress")
	ErrInvalidResponse      = errors.New("invalid inference response")
	ErrEmergencyStop        = errors.New("emergency stop active")
	ErrInsufficientBankroll = errors.New("insufficient bankroll")
	ErrDuplicateExecution   = errors.New("opportunity already executed recently")
)
