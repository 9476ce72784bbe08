package config

import (
	"errors"
	"fmt"
)

// ErrMalformedSeed marks configuration the crawl cannot start from.
var ErrMalformedSeed = errors.New("malformed seed configuration")

type SeedError struct {
	Field  string
	Value  string
	Reason string
}

func (e *SeedError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedSeed, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%q: %s", ErrMalformedSeed, e.Field, e.Value, e.Reason)
}

func (e *SeedError) Unwrap() error { return ErrMalformedSeed }
