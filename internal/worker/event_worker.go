package worker

import (
	"context"
	"fmt"

	"arwaeduc/internal/amqp"
	"arwaeduc/internal/log"
	"arwaeduc/internal/metrics"
)

// Invalidator drops cached summaries.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// EventWorker keeps this process's analytics cache in step with writes made
// by other processes.
type EventWorker struct {
	cache  Invalidator
	logger *log.Logger
}

func NewEventWorker(cache Invalidator, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EventWorker{cache: cache, logger: logger.WithComponent(log.ComponentCache)}
}

// HandleRecordCreated is the AMQP handler for record.created.
func (w *EventWorker) HandleRecordCreated(ctx context.Context, msg *amqp.RecordCreatedMessage) error {
	if err := w.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate after %s %s: %w", msg.Kind, msg.ID, err)
	}
	metrics.CacheBumped()
	w.logger.DebugContext(ctx, "Cache invalidated", log.FieldRecordKind, string(msg.Kind), log.FieldRecordID, msg.ID)
	return nil
}
