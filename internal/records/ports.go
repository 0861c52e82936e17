// Package records defines the ports through which the finance core reads and
// writes school records. Adapters live in records/memory and storage.
package records

import (
	"context"
	"errors"
	"time"

	"arwaeduc/internal/core"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrStateNotFound     = errors.New("state document not found")
	ErrUnsupportedSchema = errors.New("unsupported state schema version")
)

// Filter narrows a find to a date range and, optionally, a type or a student.
// A zero Period matches every date.
type Filter struct {
	Period    core.Period
	Type      string
	StudentID string
}

// MatchDate reports whether t is inside the filter's period.
func (f Filter) MatchDate(t time.Time) bool {
	if f.Period.Start.IsZero() && f.Period.End.IsZero() {
		return true
	}
	return f.Period.Contains(t)
}

// Document is a versioned blob of persisted client state, such as an
// attendance grid.
type Document struct {
	Key           string
	SchemaVersion int
	Payload       []byte
	UpdatedAt     time.Time
}

// Ports for outbound adapters.
type (
	InscriptionFinder interface {
		FindInscriptions(ctx context.Context, f Filter) ([]core.Inscription, error)
	}

	PaymentFinder interface {
		FindPayments(ctx context.Context, f Filter) ([]core.Payment, error)
	}

	TransactionFinder interface {
		FindTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
	}

	StudentLister interface {
		ListStudents(ctx context.Context) ([]core.Student, error)
	}

	// TeacherLister returns teachers with their groups loaded.
	TeacherLister interface {
		ListTeachers(ctx context.Context) ([]core.Teacher, error)
	}

	// RecordStore is everything the analytics side reads.
	RecordStore interface {
		InscriptionFinder
		PaymentFinder
		TransactionFinder
		StudentLister
		TeacherLister
	}

	// RecordWriter persists new records. Created records come back with their ID set.
	RecordWriter interface {
		CreateStudent(ctx context.Context, s core.Student) (core.Student, error)
		CreateInscription(ctx context.Context, i core.Inscription) (core.Inscription, error)
		CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetPayment(ctx context.Context, id string) (core.Payment, error)
		GetStudent(ctx context.Context, id string) (core.Student, error)
	}

	// StateStore keeps versioned documents under string keys.
	StateStore interface {
		LoadState(ctx context.Context, key string) (Document, error)
		SaveState(ctx context.Context, doc Document) error
	}

	// Store is a full backend: reads, writes and state documents.
	Store interface {
		RecordStore
		RecordWriter
		StateStore
	}
)
