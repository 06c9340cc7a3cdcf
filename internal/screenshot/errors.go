package screenshot

import (
	"errors"
	"fmt"
)

var (
	// ErrDiscovery marks failures to list the input directory.
	ErrDiscovery = errors.New("image discovery failed")

	// ErrConfiguration marks invalid run options detected before dispatch.
	ErrConfiguration = errors.New("invalid configuration")
)

// DiscoveryError is returned when the input directory cannot be listed.
// It is fatal to the whole run.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover images in %s: %v", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() []error {
	return []error{ErrDiscovery, e.Err}
}

// ConfigurationError is returned for options that make a run impossible,
// such as a worker count below one or a missing credential.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Option, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
