package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
	"arwaeduc/internal/records/memory"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "arwaeduc.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPaymentsPeriodBoundaries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	march := core.MonthPeriod(2024, 3, time.UTC)

	dates := []time.Time{
		march.Start,
		march.End,
		march.End.Add(time.Millisecond),
		march.Start.Add(-time.Millisecond),
	}
	for _, d := range dates {
		if _, err := repo.CreatePayment(ctx, core.Payment{StudentID: "s1", Amount: core.Money{Cents: 100}, Date: d}); err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
	}

	got, err := repo.FindPayments(ctx, records.Filter{Period: march})
	if err != nil {
		t.Fatalf("FindPayments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(march.Start) || !got[1].Date.Equal(march.End) {
		t.Errorf("dates = %v, %v", got[0].Date, got[1].Date)
	}

	all, _ := repo.FindPayments(ctx, records.Filter{})
	if len(all) != 4 {
		t.Errorf("unfiltered len = %d, want 4", len(all))
	}
}

func TestInscriptionsAndTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	d := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, typ := range []core.InscriptionType{core.InscriptionSoutien, core.InscriptionFormation, core.InscriptionSoutien} {
		if _, err := repo.CreateInscription(ctx, core.Inscription{StudentID: "s1", Type: typ, Amount: core.Money{Cents: 30000}, CreatedAt: d}); err != nil {
			t.Fatal(err)
		}
	}
	ins, err := repo.FindInscriptions(ctx, records.Filter{Period: core.MonthPeriod(2024, 3, nil), Type: "soutien"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ins) != 2 {
		t.Errorf("SOUTIEN inscriptions = %d, want 2", len(ins))
	}

	if _, err := repo.CreateTransaction(ctx, core.Transaction{Type: core.TransactionExpense, Amount: core.Money{Cents: 5000}, Category: "Rent", Date: d}); err != nil {
		t.Fatal(err)
	}
	txs, _ := repo.FindTransactions(ctx, records.Filter{Type: "INCOME"})
	if len(txs) != 0 {
		t.Errorf("income transactions = %d, want 0", len(txs))
	}
	txs, _ = repo.FindTransactions(ctx, records.Filter{Period: core.DayPeriod(2024, 3, 10, nil)})
	if len(txs) != 1 || txs[0].Category != "Rent" || txs[0].Amount.Cents != 5000 {
		t.Errorf("transactions = %+v", txs)
	}
}

func TestTeachersWithGroups(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	_, err := repo.CreateTeacher(ctx, core.Teacher{
		Name: "Karim", PaymentType: core.PayPercentage, Commission: 10,
		Groups: []core.Group{{Name: "A", StudentCount: 10}, {Name: "B", StudentCount: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTeacher(ctx, core.Teacher{Name: "Nadia", PaymentType: core.PayFixed, HourlyRate: core.Money{Cents: 300000}}); err != nil {
		t.Fatal(err)
	}

	teachers, err := repo.ListTeachers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(teachers) != 2 {
		t.Fatalf("len = %d", len(teachers))
	}
	if teachers[0].Name != "Karim" || teachers[0].TotalStudents() != 15 || teachers[0].Commission != 10 {
		t.Errorf("Karim = %+v", teachers[0])
	}
	if len(teachers[1].Groups) != 0 || teachers[1].HourlyRate.Cents != 300000 {
		t.Errorf("Nadia = %+v", teachers[1])
	}
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.GetPayment(ctx, "nope"); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("GetPayment err = %v", err)
	}
	st, err := repo.CreateStudent(ctx, core.Student{FirstName: "Amina", LastName: "Alaoui"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetStudent(ctx, st.ID)
	if err != nil || got.FullName() != "Amina Alaoui" {
		t.Errorf("GetStudent = %+v, %v", got, err)
	}
}

func TestStateUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.LoadState(ctx, "attendance:g1:2024-03"); !errors.Is(err, records.ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
	for _, payload := range []string{`{"v":1}`, `{"v":2}`} {
		if err := repo.SaveState(ctx, records.Document{Key: "attendance:g1:2024-03", SchemaVersion: 1, Payload: []byte(payload)}); err != nil {
			t.Fatal(err)
		}
	}
	doc, err := repo.LoadState(ctx, "attendance:g1:2024-03")
	if err != nil {
		t.Fatal(err)
	}
	if string(doc.Payload) != `{"v":2}` || doc.SchemaVersion != 1 || doc.UpdatedAt.IsZero() {
		t.Errorf("doc = %+v", doc)
	}
}

func TestImportFrom(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := memory.New()
	st, _ := src.CreateStudent(ctx, core.Student{ID: "s1", FirstName: "Amina"})
	_, _ = src.CreatePayment(ctx, core.Payment{StudentID: st.ID, Amount: core.Money{Cents: 100}, Date: time.Now()})

	if err := repo.ImportFrom(ctx, src); err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	// Second import is a no-op.
	if err := repo.ImportFrom(ctx, src); err != nil {
		t.Fatalf("ImportFrom again: %v", err)
	}
	pays, _ := repo.FindPayments(ctx, records.Filter{})
	if len(pays) != 1 {
		t.Errorf("payments = %d, want 1", len(pays))
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("RunMigrations #%d: %v", i+1, err)
		}
	}
}
