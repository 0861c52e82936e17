package services

import (
	"context"
	"fmt"
	"log/slog"

	"arwaeduc/internal/amqp"
	"arwaeduc/internal/core"
	"arwaeduc/internal/metrics"
	"arwaeduc/internal/records"
)

// EventPublisher announces newly persisted records.
type EventPublisher interface {
	PublishRecordCreated(ctx context.Context, kind amqp.RecordKind, id string) error
}

// Invalidator drops cached summaries after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RecordingService persists new records, then invalidates cached analytics
// and publishes a record-created event. Only the persist step can fail a call.
type RecordingService struct {
	store       records.RecordWriter
	invalidator Invalidator
	publisher   EventPublisher
}

// NewRecordingService accepts a nil invalidator or publisher.
func NewRecordingService(store records.RecordWriter, invalidator Invalidator, publisher EventPublisher) *RecordingService {
	return &RecordingService{store: store, invalidator: invalidator, publisher: publisher}
}

func (s *RecordingService) RecordStudent(ctx context.Context, st core.Student) (core.Student, error) {
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	created, err := s.store.CreateStudent(ctx, st)
	if err != nil {
		return core.Student{}, fmt.Errorf("save student: %w", err)
	}
	s.afterWrite(ctx, amqp.KindStudent, created.ID)
	return created, nil
}

// RecordInscription requires the student to exist.
func (s *RecordingService) RecordInscription(ctx context.Context, i core.Inscription) (core.Inscription, error) {
	if err := i.Validate(); err != nil {
		return core.Inscription{}, err
	}
	if _, err := s.store.GetStudent(ctx, i.StudentID); err != nil {
		return core.Inscription{}, fmt.Errorf("inscription student: %w", err)
	}
	created, err := s.store.CreateInscription(ctx, i)
	if err != nil {
		return core.Inscription{}, fmt.Errorf("save inscription: %w", err)
	}
	s.afterWrite(ctx, amqp.KindInscription, created.ID)
	return created, nil
}

// RecordPayment requires the student to exist.
func (s *RecordingService) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if _, err := s.store.GetStudent(ctx, p.StudentID); err != nil {
		return core.Payment{}, fmt.Errorf("payment student: %w", err)
	}
	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	s.afterWrite(ctx, amqp.KindPayment, created.ID)
	return created, nil
}

func (s *RecordingService) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.afterWrite(ctx, amqp.KindTransaction, created.ID)
	return created, nil
}

// Receipt loads a payment and its student for printing.
func (s *RecordingService) Receipt(ctx context.Context, paymentID string) (core.Payment, core.Student, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Payment{}, core.Student{}, err
	}
	st, err := s.store.GetStudent(ctx, p.StudentID)
	if err != nil {
		return core.Payment{}, core.Student{}, fmt.Errorf("receipt student: %w", err)
	}
	return p, st, nil
}

func (s *RecordingService) afterWrite(ctx context.Context, kind amqp.RecordKind, id string) {
	metrics.RecordCreated(string(kind))

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate analytics cache", "kind", kind, "id", id, "error", err)
		} else {
			metrics.CacheBumped()
		}
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping record event", "kind", kind, "id", id)
		return
	}
	if err := s.publisher.PublishRecordCreated(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event", "kind", kind, "id", id, "error", err)
	}
}
