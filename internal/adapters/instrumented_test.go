package adapters

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/records"
	"arwaeduc/internal/records/memory"
)

type failingStore struct {
	*memory.Store
}

func (failingStore) FindPayments(context.Context, records.Filter) ([]core.Payment, error) {
	return nil, errors.New("disk on fire")
}

func newLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: buf})
}

func TestInstrumentedStoreDelegates(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := NewInstrumentedStore(memory.New(), newLogger(&buf), time.Second)

	st, err := s.CreateStudent(ctx, core.Student{FirstName: "Amina"})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	if _, err := s.CreatePayment(ctx, core.Payment{StudentID: st.ID, Amount: core.Money{Cents: 100}, Date: time.Now()}); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	got, err := s.FindPayments(ctx, records.Filter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("FindPayments = %v, %v", got, err)
	}
	if !strings.Contains(buf.String(), `"call":"FindPayments"`) {
		t.Errorf("expected debug line for FindPayments, got %s", buf.String())
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestInstrumentedStoreLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	s := NewInstrumentedStore(failingStore{memory.New()}, newLogger(&buf), time.Second)

	_, err := s.FindPayments(context.Background(), records.Filter{})
	if err == nil || err.Error() != "disk on fire" {
		t.Fatalf("error should pass through unchanged, got %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) || !strings.Contains(buf.String(), "disk on fire") {
		t.Errorf("expected error log, got %s", buf.String())
	}
}

func TestInstrumentedStoreNotFoundIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	s := NewInstrumentedStore(memory.New(), newLogger(&buf), time.Second)

	_, err := s.GetStudent(context.Background(), "missing")
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("GetStudent err = %v, want ErrNotFound", err)
	}
	if strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("not-found should not log an error: %s", buf.String())
	}
}

func TestInstrumentedStoreWarnsWhenSlow(t *testing.T) {
	var buf bytes.Buffer
	s := NewInstrumentedStore(memory.New(), newLogger(&buf), time.Millisecond)
	calls := 0
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 5 * time.Millisecond)
	}

	if _, err := s.ListTeachers(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Slow store call") {
		t.Errorf("expected slow warning, got %s", buf.String())
	}
}
