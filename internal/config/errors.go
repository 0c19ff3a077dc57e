package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
	ErrInvalidAddr   = errors.New("addr must not be empty")
	ErrInvalidDriver = errors.New("invalid store driver")
	ErrNoMonths      = errors.New("tournament needs at least one month")
	ErrInvalidMonth  = errors.New("invalid tournament month")
)
