package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the config struct.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")

	// ErrInvalidConfig is returned by Validate for out-of-range or
	// missing values.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)
