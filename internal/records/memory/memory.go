package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
)

// Store keeps every record in memory. It is the default backend and the one
// used by tests.
type Store struct {
	mu           sync.Mutex
	students     []core.Student
	inscriptions []core.Inscription
	payments     []core.Payment
	transactions []core.Transaction
	teachers     []core.Teacher
	state        map[string]records.Document
	now          func() time.Time
}

var (
	_ records.RecordStore  = (*Store)(nil)
	_ records.RecordWriter = (*Store)(nil)
	_ records.StateStore   = (*Store)(nil)
)

func New() *Store {
	return &Store{state: map[string]records.Document{}, now: time.Now}
}

// NewFromFiles seeds the store from base/seed.yaml when present. A missing
// file yields an empty store; a malformed one is an error.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	path := filepath.Join(base, "seed.yaml")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	seed, err := DecodeSeed(f)
	if err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	if err := s.Load(seed); err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}
	return s, nil
}

// Ping always succeeds; the store has no connection to lose.
func (s *Store) Ping(context.Context) error { return nil }

// Load appends every record of seed to the store.
func (s *Store) Load(seed Seed) error {
	data, err := seed.toDomain()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append(s.students, data.students...)
	s.inscriptions = append(s.inscriptions, data.inscriptions...)
	s.payments = append(s.payments, data.payments...)
	s.transactions = append(s.transactions, data.transactions...)
	s.teachers = append(s.teachers, data.teachers...)
	return nil
}

func (s *Store) FindInscriptions(_ context.Context, f records.Filter) ([]core.Inscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Inscription
	for _, i := range s.inscriptions {
		if !f.MatchDate(i.CreatedAt) {
			continue
		}
		if f.Type != "" && !strings.EqualFold(string(i.Type), f.Type) {
			continue
		}
		if f.StudentID != "" && i.StudentID != f.StudentID {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (s *Store) FindPayments(_ context.Context, f records.Filter) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if !f.MatchDate(p.Date) {
			continue
		}
		if f.StudentID != "" && p.StudentID != f.StudentID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) FindTransactions(_ context.Context, f records.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if !f.MatchDate(t.Date) {
			continue
		}
		if f.Type != "" && !strings.EqualFold(string(t.Type), f.Type) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Student(nil), s.students...), nil
}

func (s *Store) ListTeachers(_ context.Context) ([]core.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Teacher, len(s.teachers))
	for i, t := range s.teachers {
		t.Groups = append([]core.Group(nil), t.Groups...)
		out[i] = t
	}
	return out, nil
}

func (s *Store) CreateStudent(_ context.Context, st core.Student) (core.Student, error) {
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = s.now()
	}
	s.students = append(s.students, st)
	return st, nil
}

func (s *Store) CreateInscription(_ context.Context, i core.Inscription) (core.Inscription, error) {
	if err := i.Validate(); err != nil {
		return core.Inscription{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	s.inscriptions = append(s.inscriptions, i)
	return i, nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.payments = append(s.payments, p)
	return p, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Payment{}, fmt.Errorf("payment %s: %w", id, records.ErrNotFound)
}

func (s *Store) GetStudent(_ context.Context, id string) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.ID == id {
			return st, nil
		}
	}
	return core.Student{}, fmt.Errorf("student %s: %w", id, records.ErrNotFound)
}

func (s *Store) LoadState(_ context.Context, key string) (records.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.state[key]
	if !ok {
		return records.Document{}, fmt.Errorf("%s: %w", key, records.ErrStateNotFound)
	}
	doc.Payload = append([]byte(nil), doc.Payload...)
	return doc, nil
}

func (s *Store) SaveState(_ context.Context, doc records.Document) error {
	if strings.TrimSpace(doc.Key) == "" {
		return fmt.Errorf("state key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Payload = append([]byte(nil), doc.Payload...)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.now()
	}
	s.state[doc.Key] = doc
	return nil
}
