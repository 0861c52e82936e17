// Package storage is the SQLite record store. Amounts are stored in cents and
// timestamps as unix milliseconds, so period bounds compare exactly.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ records.RecordStore  = (*SQLiteRepository)(nil)
	_ records.RecordWriter = (*SQLiteRepository)(nil)
	_ records.StateStore   = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// periodClause renders the date condition of f on column, or nothing when f
// has no period.
func periodClause(column string, f records.Filter, where []string, args []any) ([]string, []any) {
	if f.Period.Start.IsZero() && f.Period.End.IsZero() {
		return where, args
	}
	where = append(where, column+" BETWEEN ? AND ?")
	return where, append(args, toMillis(f.Period.Start), toMillis(f.Period.End))
}

func buildQuery(base string, where []string, order string) string {
	q := base
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY " + order
}

func (r *SQLiteRepository) FindInscriptions(ctx context.Context, f records.Filter) ([]core.Inscription, error) {
	where, args := periodClause("created_at", f, nil, nil)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, strings.ToUpper(f.Type))
	}
	if f.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, f.StudentID)
	}
	rows, err := r.db.QueryContext(ctx, buildQuery(
		"SELECT id, student_id, type, amount_cents, created_at FROM inscriptions", where, "created_at, id"), args...)
	if err != nil {
		return nil, fmt.Errorf("query inscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Inscription
	for rows.Next() {
		var (
			i       core.Inscription
			typ     string
			created int64
		)
		if err := rows.Scan(&i.ID, &i.StudentID, &typ, &i.Amount.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan inscription: %w", err)
		}
		i.Type = core.InscriptionType(typ)
		i.CreatedAt = fromMillis(created)
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindPayments(ctx context.Context, f records.Filter) ([]core.Payment, error) {
	where, args := periodClause("paid_at", f, nil, nil)
	if f.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, f.StudentID)
	}
	rows, err := r.db.QueryContext(ctx, buildQuery(
		"SELECT id, student_id, amount_cents, paid_at, note FROM payments", where, "paid_at, id"), args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(s scanner) (core.Payment, error) {
	var (
		p    core.Payment
		paid int64
	)
	if err := s.Scan(&p.ID, &p.StudentID, &p.Amount.Cents, &paid, &p.Note); err != nil {
		return core.Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	p.Date = fromMillis(paid)
	return p, nil
}

func (r *SQLiteRepository) FindTransactions(ctx context.Context, f records.Filter) ([]core.Transaction, error) {
	where, args := periodClause("occurred_at", f, nil, nil)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, strings.ToUpper(f.Type))
	}
	rows, err := r.db.QueryContext(ctx, buildQuery(
		"SELECT id, type, amount_cents, category, description, occurred_at FROM transactions", where, "occurred_at, id"), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t        core.Transaction
			typ      string
			occurred int64
		)
		if err := rows.Scan(&t.ID, &typ, &t.Amount.Cents, &t.Category, &t.Description, &occurred); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		t.Date = fromMillis(occurred)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, created_at FROM students ORDER BY last_name, first_name, id")
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []core.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanStudent(s scanner) (core.Student, error) {
	var (
		st      core.Student
		created int64
	)
	if err := s.Scan(&st.ID, &st.FirstName, &st.LastName, &created); err != nil {
		return core.Student{}, fmt.Errorf("scan student: %w", err)
	}
	st.CreatedAt = fromMillis(created)
	return st, nil
}

// ListTeachers returns teachers with their groups, ordered by name.
func (r *SQLiteRepository) ListTeachers(ctx context.Context) ([]core.Teacher, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, payment_type, hourly_rate_cents, commission FROM teachers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query teachers: %w", err)
	}
	var (
		teachers []core.Teacher
		index    = map[string]int{}
	)
	for rows.Next() {
		var (
			t  core.Teacher
			pt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &pt, &t.HourlyRate.Cents, &t.Commission); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		t.PaymentType = core.PaymentType(pt)
		index[t.ID] = len(teachers)
		teachers = append(teachers, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	grows, err := r.db.QueryContext(ctx,
		"SELECT id, teacher_id, name, student_count FROM class_groups ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer grows.Close()
	for grows.Next() {
		var g core.Group
		if err := grows.Scan(&g.ID, &g.TeacherID, &g.Name, &g.StudentCount); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if i, ok := index[g.TeacherID]; ok {
			teachers[i].Groups = append(teachers[i].Groups, g)
		}
	}
	return teachers, grows.Err()
}

func (r *SQLiteRepository) CreateStudent(ctx context.Context, s core.Student) (core.Student, error) {
	if err := s.Validate(); err != nil {
		return core.Student{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO students (id, first_name, last_name, created_at) VALUES (?, ?, ?, ?)",
		s.ID, s.FirstName, s.LastName, toMillis(s.CreatedAt))
	if err != nil {
		return core.Student{}, fmt.Errorf("insert student: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) CreateInscription(ctx context.Context, i core.Inscription) (core.Inscription, error) {
	if err := i.Validate(); err != nil {
		return core.Inscription{}, err
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO inscriptions (id, student_id, type, amount_cents, created_at) VALUES (?, ?, ?, ?, ?)",
		i.ID, i.StudentID, string(i.Type), i.Amount.Cents, toMillis(i.CreatedAt))
	if err != nil {
		return core.Inscription{}, fmt.Errorf("insert inscription: %w", err)
	}
	slog.InfoContext(ctx, "Inscription saved", "id", i.ID, "student_id", i.StudentID, "type", i.Type, "amount_cents", i.Amount.Cents)
	return i, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO payments (id, student_id, amount_cents, paid_at, note) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.StudentID, p.Amount.Cents, toMillis(p.Date), p.Note)
	if err != nil {
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment saved", "id", p.ID, "student_id", p.StudentID, "amount_cents", p.Amount.Cents)
	return p, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO transactions (id, type, amount_cents, category, description, occurred_at) VALUES (?, ?, ?, ?, ?, ?)",
		t.ID, string(t.Type), t.Amount.Cents, t.Category, t.Description, toMillis(t.Date))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved", "id", t.ID, "type", t.Type, "category", t.Category, "amount_cents", t.Amount.Cents)
	return t, nil
}

// CreateTeacher inserts a teacher and its groups in one transaction.
func (r *SQLiteRepository) CreateTeacher(ctx context.Context, t core.Teacher) (core.Teacher, error) {
	if strings.TrimSpace(t.Name) == "" {
		return core.Teacher{}, core.ErrEmptyName
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Teacher{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO teachers (id, name, payment_type, hourly_rate_cents, commission) VALUES (?, ?, ?, ?, ?)",
		t.ID, t.Name, string(t.PaymentType), t.HourlyRate.Cents, t.Commission); err != nil {
		return core.Teacher{}, fmt.Errorf("insert teacher: %w", err)
	}
	for i := range t.Groups {
		g := &t.Groups[i]
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		g.TeacherID = t.ID
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO class_groups (id, teacher_id, name, student_count) VALUES (?, ?, ?, ?)",
			g.ID, g.TeacherID, g.Name, g.StudentCount); err != nil {
			return core.Teacher{}, fmt.Errorf("insert group: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.Teacher{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, student_id, amount_cents, paid_at, note FROM payments WHERE id = ?", id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("payment %s: %w", id, records.ErrNotFound)
	}
	return p, err
}

func (r *SQLiteRepository) GetStudent(ctx context.Context, id string) (core.Student, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, created_at FROM students WHERE id = ?", id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, fmt.Errorf("student %s: %w", id, records.ErrNotFound)
	}
	return s, err
}

// IsEmpty reports whether no student has been recorded yet.
func (r *SQLiteRepository) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&n); err != nil {
		return false, fmt.Errorf("count students: %w", err)
	}
	return n == 0, nil
}
