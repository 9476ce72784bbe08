package engine

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"edu-crawler/pkg/models"
)

// startStorageWorker batches finalized records until the results channel
// is closed. Batches are flushed when full and on every tick.
func (e *Engine) startStorageWorker(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	buffer := make([]*models.Record, 0, e.config.BatchSize)
	ticker := time.NewTicker(e.config.FlushInterval)
	defer ticker.Stop()

	retry := e.sinkRetryPolicy()
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		batch := make([]*models.Record, len(buffer))
		copy(batch, buffer)
		buffer = buffer[:0]

		err := failsafe.With(retry).WithContext(ctx).Run(func() error {
			return e.sink.Save(ctx, batch)
		})
		if err != nil {
			keys := make([]models.EntityKey, len(batch))
			for i, record := range batch {
				keys[i] = record.Key
			}
			e.log.WithError(err).WithField("records", len(batch)).Error("failed to save batch")
			e.sinkMu.Lock()
			e.sinkErrs = append(e.sinkErrs, &SinkWriteError{Keys: keys, Err: err})
			e.sinkMu.Unlock()
			return
		}
		e.stats.saved.Add(int64(len(batch)))
		e.log.WithField("records", len(batch)).Info("saved batch")
	}

	for {
		select {
		case record, ok := <-e.results:
			if !ok {
				flush()
				return
			}
			buffer = append(buffer, record)
			if len(buffer) >= e.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (e *Engine) sinkRetryPolicy() retrypolicy.RetryPolicy[any] {
	builder := retrypolicy.NewBuilder[any]().
		WithMaxRetries(e.config.SinkRetries).
		ReturnLastFailure()
	if e.config.SinkBackoff > 0 {
		builder = builder.WithBackoff(e.config.SinkBackoff, 10*e.config.SinkBackoff)
	}
	return builder.Build()
}
