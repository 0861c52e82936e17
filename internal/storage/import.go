package storage

import (
	"context"
	"fmt"
	"log/slog"

	"arwaeduc/internal/records"
)

// ImportFrom copies every record of src into an empty database. A database
// that already holds students is left untouched.
func (r *SQLiteRepository) ImportFrom(ctx context.Context, src records.RecordStore) error {
	empty, err := r.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		slog.DebugContext(ctx, "Database not empty, skipping import")
		return nil
	}

	students, err := src.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}
	for _, s := range students {
		if _, err := r.CreateStudent(ctx, s); err != nil {
			return fmt.Errorf("import student %s: %w", s.ID, err)
		}
	}
	teachers, err := src.ListTeachers(ctx)
	if err != nil {
		return fmt.Errorf("list teachers: %w", err)
	}
	for _, t := range teachers {
		if _, err := r.CreateTeacher(ctx, t); err != nil {
			return fmt.Errorf("import teacher %s: %w", t.ID, err)
		}
	}
	ins, err := src.FindInscriptions(ctx, records.Filter{})
	if err != nil {
		return fmt.Errorf("list inscriptions: %w", err)
	}
	for _, i := range ins {
		if _, err := r.CreateInscription(ctx, i); err != nil {
			return fmt.Errorf("import inscription %s: %w", i.ID, err)
		}
	}
	pays, err := src.FindPayments(ctx, records.Filter{})
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	for _, p := range pays {
		if _, err := r.CreatePayment(ctx, p); err != nil {
			return fmt.Errorf("import payment %s: %w", p.ID, err)
		}
	}
	txs, err := src.FindTransactions(ctx, records.Filter{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range txs {
		if _, err := r.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("import transaction %s: %w", t.ID, err)
		}
	}
	slog.InfoContext(ctx, "Imported seed records",
		"students", len(students), "teachers", len(teachers),
		"inscriptions", len(ins), "payments", len(pays), "transactions", len(txs))
	return nil
}
