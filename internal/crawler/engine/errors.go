package engine

import (
	"fmt"

	"edu-crawler/pkg/models"
)

// SinkWriteError is a batch the sink still rejected after retrying.
type SinkWriteError struct {
	Keys []models.EntityKey
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink rejected batch of %d records: %v", len(e.Keys), e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }
