package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/records"
)

const (
	schedulerStateKey    = "scheduler:monthly-report"
	schedulerStateSchema = 1
)

// ReportRequester queues a report for a month.
type ReportRequester interface {
	PublishReportRequested(ctx context.Context, year, month int) error
}

type schedulerState struct {
	LastMonth string `json:"last_month"`
}

// Scheduler requests the previous month's report once, after the month has
// closed. The last requested month is kept in the state store so restarts do
// not request it again.
type Scheduler struct {
	state     records.StateStore
	requester ReportRequester
	interval  time.Duration
	loc       *time.Location
	now       func() time.Time
	logger    *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(state records.StateStore, requester ReportRequester, interval time.Duration, loc *time.Location, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{
		state:     state,
		requester: requester,
		interval:  interval,
		loc:       loc,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentScheduler),
	}
}

// Start begins the scheduling loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)
	s.logger.InfoContext(ctx, "Report scheduler started", "interval", s.interval)
	return nil
}

// Stop signals the loop and waits for it to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	select {
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "Report scheduler stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Report scheduling failed", log.FieldError, err)
	}
}

// RunOnce requests the previous month's report unless it was already
// requested. It reports whether a request was sent.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	prev := previousMonth(s.now().In(s.loc))
	label := prev.Label()

	st, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	if st.LastMonth == label {
		return false, nil
	}

	if err := s.requester.PublishReportRequested(ctx, prev.Year(), prev.Month()); err != nil {
		return false, fmt.Errorf("request report %s: %w", label, err)
	}
	if err := s.save(ctx, schedulerState{LastMonth: label}); err != nil {
		return true, err
	}
	s.logger.InfoContext(ctx, "Requested monthly report", log.FieldPeriod, label)
	return true, nil
}

func previousMonth(now time.Time) core.Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return core.MonthPeriod(prev.Year(), int(prev.Month()), now.Location())
}

func (s *Scheduler) load(ctx context.Context) (schedulerState, error) {
	doc, err := s.state.LoadState(ctx, schedulerStateKey)
	if errors.Is(err, records.ErrStateNotFound) {
		return schedulerState{}, nil
	}
	if err != nil {
		return schedulerState{}, fmt.Errorf("load scheduler state: %w", err)
	}
	if doc.SchemaVersion != schedulerStateSchema {
		return schedulerState{}, fmt.Errorf("%w: %d", records.ErrUnsupportedSchema, doc.SchemaVersion)
	}
	var st schedulerState
	if err := json.Unmarshal(doc.Payload, &st); err != nil {
		return schedulerState{}, fmt.Errorf("decode scheduler state: %w", err)
	}
	return st, nil
}

func (s *Scheduler) save(ctx context.Context, st schedulerState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.state.SaveState(ctx, records.Document{
		Key:           schedulerStateKey,
		SchemaVersion: schedulerStateSchema,
		Payload:       payload,
	})
}
