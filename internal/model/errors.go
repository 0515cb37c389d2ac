package model

import (
	"errors"
	"fmt"
)

// ConfigError marks an invalid or out-of-range configuration value. Runs
// fail with a ConfigError before any grid processing starts.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps err as a configuration error for the given key.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{Key: key, Err: err}
}

// DataError marks input data that cannot be modelled: mismatched rule
// polygon ids, broken elevation bands, unknown zone labels.
type DataError struct {
	Err error
}

func (e *DataError) Error() string {
	return e.Err.Error()
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError wraps err as a data error.
func NewDataError(err error) *DataError {
	return &DataError{Err: err}
}

// IsConfigError reports whether err (or any error in its chain) is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsDataError reports whether err (or any error in its chain) is a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
