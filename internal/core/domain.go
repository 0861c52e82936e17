package core

import (
	"errors"
	"strings"
	"time"
)

const (
	InscriptionSoutien   InscriptionType = "SOUTIEN"
	InscriptionFormation InscriptionType = "FORMATION"

	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"

	PayFixed      PaymentType = "FIXED"
	PayHourly     PaymentType = "HOURLY"
	PayPercentage PaymentType = "PERCENTAGE"
)

type (
	// InscriptionType separates support tutoring from professional formations.
	InscriptionType string

	// TransactionType is the ledger direction of a Transaction.
	TransactionType string

	// PaymentType selects how a teacher's monthly salary is computed.
	PaymentType string

	Student struct {
		ID        string
		FirstName string
		LastName  string
		CreatedAt time.Time
	}

	// Inscription is the enrollment fee charged when a student signs up.
	// It is never updated once created.
	Inscription struct {
		ID        string
		StudentID string
		Type      InscriptionType
		Amount    Money
		CreatedAt time.Time
	}

	// Payment is money actually received from a student.
	Payment struct {
		ID        string
		StudentID string
		Amount    Money
		Date      time.Time
		Note      string
	}

	// Transaction is a general ledger entry not tied to a student.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      Money
		Category    string
		Description string
		Date        time.Time
	}

	Group struct {
		ID           string
		TeacherID    string
		Name         string
		StudentCount int
	}

	Teacher struct {
		ID          string
		Name        string
		PaymentType PaymentType
		HourlyRate  Money
		Commission  float64 // percent of estimated revenue
		Groups      []Group
	}
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyStudent           = errors.New("empty student id")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidInscriptionType = errors.New("invalid inscription type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrEmptyCategory          = errors.New("empty category")
	ErrEmptyName              = errors.New("empty name")
)

// RecordDate and RecordAmount let every financial record flow through Aggregate.

func (i Inscription) RecordDate() time.Time { return i.CreatedAt }
func (i Inscription) RecordAmount() Money { return i.Amount }
func (p Payment) RecordDate() time.Time { return p.Date }
func (p Payment) RecordAmount() Money { return p.Amount }
func (t Transaction) RecordDate() time.Time { return t.Date }
func (t Transaction) RecordAmount() Money { return t.Amount }

// FullName returns "First Last", trimmed.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (t InscriptionType) IsValid() bool {
	switch t {
	case InscriptionSoutien, InscriptionFormation:
		return true
	}
	return false
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionIncome, TransactionExpense:
		return true
	}
	return false
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.FirstName) == "" && strings.TrimSpace(s.LastName) == "" {
		return ErrEmptyName
	}
	return nil
}

func (i Inscription) Validate() error {
	if strings.TrimSpace(i.StudentID) == "" {
		return ErrEmptyStudent
	}
	if !i.Type.IsValid() {
		return ErrInvalidInscriptionType
	}
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if i.CreatedAt.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.StudentID) == "" {
		return ErrEmptyStudent
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(p.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// TotalStudents sums student counts across the teacher's groups.
func (t Teacher) TotalStudents() int {
	total := 0
	for _, g := range t.Groups {
		total += g.StudentCount
	}
	return total
}
