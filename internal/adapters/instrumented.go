// Package adapters wraps record backends with cross-cutting behavior so the
// services can stay unaware of it.
package adapters

import (
	"context"
	"errors"
	"time"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/records"
)

// Pinger is implemented by backends that hold a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// InstrumentedStore logs the duration and size of every store call and
// warns when a call exceeds the slow threshold.
type InstrumentedStore struct {
	next   records.Store
	logger *log.Logger
	errs   *log.StructuredLogger
	slow   time.Duration
	now    func() time.Time
}

var _ records.Store = (*InstrumentedStore)(nil)

func NewInstrumentedStore(next records.Store, logger *log.Logger, slow time.Duration) *InstrumentedStore {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStorage)
	if slow <= 0 {
		slow = 250 * time.Millisecond
	}
	return &InstrumentedStore{
		next:   next,
		logger: logger,
		errs:   log.NewStructuredLogger(logger),
		slow:   slow,
		now:    time.Now,
	}
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() records.Store { return s.next }

// Ping forwards to the wrapped store when it supports it.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *InstrumentedStore) observe(ctx context.Context, op, name string, start time.Time, n int, err error) {
	elapsed := s.now().Sub(start)
	if err != nil {
		s.errs.LogError(ctx, "Store call failed", err, log.ComponentStorage, op,
			log.LogFields{"call": name, log.FieldDuration: elapsed.Milliseconds()})
		return
	}
	if elapsed >= s.slow {
		s.logger.WarnContext(ctx, "Slow store call", "call", name, log.FieldCount, n, log.FieldDuration, elapsed.Milliseconds())
		return
	}
	s.logger.DebugContext(ctx, "Store call", "call", name, log.FieldCount, n, log.FieldDuration, elapsed.Milliseconds())
}

func (s *InstrumentedStore) FindInscriptions(ctx context.Context, f records.Filter) ([]core.Inscription, error) {
	start := s.now()
	out, err := s.next.FindInscriptions(ctx, f)
	s.observe(ctx, log.OpList, "FindInscriptions", start, len(out), err)
	return out, err
}

func (s *InstrumentedStore) FindPayments(ctx context.Context, f records.Filter) ([]core.Payment, error) {
	start := s.now()
	out, err := s.next.FindPayments(ctx, f)
	s.observe(ctx, log.OpList, "FindPayments", start, len(out), err)
	return out, err
}

func (s *InstrumentedStore) FindTransactions(ctx context.Context, f records.Filter) ([]core.Transaction, error) {
	start := s.now()
	out, err := s.next.FindTransactions(ctx, f)
	s.observe(ctx, log.OpList, "FindTransactions", start, len(out), err)
	return out, err
}

func (s *InstrumentedStore) ListStudents(ctx context.Context) ([]core.Student, error) {
	start := s.now()
	out, err := s.next.ListStudents(ctx)
	s.observe(ctx, log.OpList, "ListStudents", start, len(out), err)
	return out, err
}

func (s *InstrumentedStore) ListTeachers(ctx context.Context) ([]core.Teacher, error) {
	start := s.now()
	out, err := s.next.ListTeachers(ctx)
	s.observe(ctx, log.OpList, "ListTeachers", start, len(out), err)
	return out, err
}

func (s *InstrumentedStore) CreateStudent(ctx context.Context, st core.Student) (core.Student, error) {
	start := s.now()
	out, err := s.next.CreateStudent(ctx, st)
	s.observe(ctx, log.OpCreate, "CreateStudent", start, 1, err)
	return out, err
}

func (s *InstrumentedStore) CreateInscription(ctx context.Context, i core.Inscription) (core.Inscription, error) {
	start := s.now()
	out, err := s.next.CreateInscription(ctx, i)
	s.observe(ctx, log.OpCreate, "CreateInscription", start, 1, err)
	return out, err
}

func (s *InstrumentedStore) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	start := s.now()
	out, err := s.next.CreatePayment(ctx, p)
	s.observe(ctx, log.OpCreate, "CreatePayment", start, 1, err)
	return out, err
}

func (s *InstrumentedStore) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	start := s.now()
	out, err := s.next.CreateTransaction(ctx, t)
	s.observe(ctx, log.OpCreate, "CreateTransaction", start, 1, err)
	return out, err
}

// GetPayment and GetStudent do not log not-found as a failure.

func (s *InstrumentedStore) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	start := s.now()
	out, err := s.next.GetPayment(ctx, id)
	s.observe(ctx, log.OpRead, "GetPayment", start, 1, ignoreNotFound(err))
	return out, err
}

func (s *InstrumentedStore) GetStudent(ctx context.Context, id string) (core.Student, error) {
	start := s.now()
	out, err := s.next.GetStudent(ctx, id)
	s.observe(ctx, log.OpRead, "GetStudent", start, 1, ignoreNotFound(err))
	return out, err
}

func (s *InstrumentedStore) LoadState(ctx context.Context, key string) (records.Document, error) {
	start := s.now()
	out, err := s.next.LoadState(ctx, key)
	s.observe(ctx, log.OpRead, "LoadState", start, len(out.Payload), ignoreNotFound(err))
	return out, err
}

func (s *InstrumentedStore) SaveState(ctx context.Context, doc records.Document) error {
	start := s.now()
	err := s.next.SaveState(ctx, doc)
	s.observe(ctx, log.OpCreate, "SaveState", start, len(doc.Payload), err)
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, records.ErrNotFound) || errors.Is(err, records.ErrStateNotFound) {
		return nil
	}
	return err
}
