package memory

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"arwaeduc/internal/core"
)

// Seed is the on-disk YAML layout of the memory store. Amounts are decimal
// strings ("300", "12,50") so the file never carries floating point.
type Seed struct {
	Students     []seedStudent     `yaml:"students"`
	Inscriptions []seedInscription `yaml:"inscriptions"`
	Payments     []seedPayment     `yaml:"payments"`
	Transactions []seedTransaction `yaml:"transactions"`
	Teachers     []seedTeacher     `yaml:"teachers"`
}

type seedStudent struct {
	ID        string    `yaml:"id"`
	FirstName string    `yaml:"first_name"`
	LastName  string    `yaml:"last_name"`
	CreatedAt time.Time `yaml:"created_at"`
}

type seedInscription struct {
	ID        string    `yaml:"id"`
	StudentID string    `yaml:"student_id"`
	Type      string    `yaml:"type"`
	Amount    string    `yaml:"amount"`
	CreatedAt time.Time `yaml:"created_at"`
}

type seedPayment struct {
	ID        string    `yaml:"id"`
	StudentID string    `yaml:"student_id"`
	Amount    string    `yaml:"amount"`
	Date      time.Time `yaml:"date"`
	Note      string    `yaml:"note"`
}

type seedTransaction struct {
	ID          string    `yaml:"id"`
	Type        string    `yaml:"type"`
	Amount      string    `yaml:"amount"`
	Category    string    `yaml:"category"`
	Description string    `yaml:"description"`
	Date        time.Time `yaml:"date"`
}

type seedGroup struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	StudentCount int    `yaml:"student_count"`
}

type seedTeacher struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	PaymentType string      `yaml:"payment_type"`
	HourlyRate  string      `yaml:"hourly_rate"`
	Commission  float64     `yaml:"commission"`
	Groups      []seedGroup `yaml:"groups"`
}

type seedData struct {
	students     []core.Student
	inscriptions []core.Inscription
	payments     []core.Payment
	transactions []core.Transaction
	teachers     []core.Teacher
}

// DecodeSeed reads a YAML seed document.
func DecodeSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return Seed{}, nil
		}
		return Seed{}, err
	}
	return s, nil
}

// seedAmount accepts an empty or zero amount, which ParseDecimalToCents rejects.
func seedAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, "0.,") == "" {
		return core.Money{}, nil
	}
	c, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("amount %q: %w", s, err)
	}
	return core.Money{Cents: c}, nil
}

func idOr(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (s Seed) toDomain() (seedData, error) {
	var out seedData
	for _, st := range s.Students {
		out.students = append(out.students, core.Student{
			ID: idOr(st.ID), FirstName: st.FirstName, LastName: st.LastName, CreatedAt: st.CreatedAt,
		})
	}
	for n, i := range s.Inscriptions {
		amt, err := seedAmount(i.Amount)
		if err != nil {
			return seedData{}, fmt.Errorf("inscription %d: %w", n, err)
		}
		out.inscriptions = append(out.inscriptions, core.Inscription{
			ID:        idOr(i.ID),
			StudentID: i.StudentID,
			Type:      core.InscriptionType(strings.ToUpper(i.Type)),
			Amount:    amt,
			CreatedAt: i.CreatedAt,
		})
	}
	for n, p := range s.Payments {
		amt, err := seedAmount(p.Amount)
		if err != nil {
			return seedData{}, fmt.Errorf("payment %d: %w", n, err)
		}
		out.payments = append(out.payments, core.Payment{
			ID: idOr(p.ID), StudentID: p.StudentID, Amount: amt, Date: p.Date, Note: p.Note,
		})
	}
	for n, t := range s.Transactions {
		amt, err := seedAmount(t.Amount)
		if err != nil {
			return seedData{}, fmt.Errorf("transaction %d: %w", n, err)
		}
		out.transactions = append(out.transactions, core.Transaction{
			ID:          idOr(t.ID),
			Type:        core.TransactionType(strings.ToUpper(t.Type)),
			Amount:      amt,
			Category:    t.Category,
			Description: t.Description,
			Date:        t.Date,
		})
	}
	for n, t := range s.Teachers {
		rate, err := seedAmount(t.HourlyRate)
		if err != nil {
			return seedData{}, fmt.Errorf("teacher %d: %w", n, err)
		}
		teacher := core.Teacher{
			ID:          idOr(t.ID),
			Name:        t.Name,
			PaymentType: core.PaymentType(strings.ToUpper(t.PaymentType)),
			HourlyRate:  rate,
			Commission:  t.Commission,
		}
		for _, g := range t.Groups {
			teacher.Groups = append(teacher.Groups, core.Group{
				ID: idOr(g.ID), TeacherID: teacher.ID, Name: g.Name, StudentCount: g.StudentCount,
			})
		}
		out.teachers = append(out.teachers, teacher)
	}
	return out, nil
}
