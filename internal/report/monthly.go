package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"arwaeduc/internal/core"
)

// Monthly is everything a month-end report shows.
type Monthly struct {
	School       string
	Overview     core.MonthOverview
	Payroll      core.PayrollSummary
	Balances     []core.StudentBalance
	Payments     []core.Payment
	Inscriptions []core.Inscription
	Transactions []core.Transaction
	StudentNames map[string]string
	GeneratedAt  time.Time
}

// FileName is the export name for ext, e.g. "arwaeduc-2024-03.xlsx".
func (m Monthly) FileName(ext string) string {
	return fmt.Sprintf("arwaeduc-%s.%s", m.Overview.Period.Label(), ext)
}

func (m Monthly) studentName(id string) string {
	if name, ok := m.StudentNames[id]; ok && name != "" {
		return name
	}
	return id
}

// Net is payments received plus the ledger net, minus payroll.
func (m Monthly) Net() core.Money {
	return m.Overview.CashFlow.Net.Add(m.Overview.Payments.Total).Sub(m.Payroll.Total)
}

func dateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// BuildMonthlyPDF renders the reconciliation summary, category splits,
// payroll and the largest student balances on A4.
func BuildMonthlyPDF(m Monthly, f Formatter) ([]byte, error) {
	ov := m.Overview
	rec := ov.Reconciliation

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	money := func(v core.Money) string { return tr(plain(f.Money(v))) }
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, tr(fmt.Sprintf("%s - Rapport mensuel %s", m.School, ov.Period.Label())))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Generated: %s", m.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Reconciliation")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	kv := func(label, value string) {
		pdf.CellFormat(70, 6, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, value, "1", 1, "R", false, 0, "")
	}
	kv("Paiements reçus", money(rec.TotalPayments))
	kv("Frais d'inscription", money(rec.TotalInscriptionFees))
	kv("Statut", string(rec.Status))
	kv("Écart", money(rec.Difference))
	kv("Recettes", money(ov.CashFlow.Income))
	kv("Dépenses", money(ov.CashFlow.Expense))
	kv("Salaires", money(m.Payroll.Total))
	kv("Net", money(m.Net()))
	pdf.Ln(6)

	table := func(title string, a core.Analytics) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, tr(title))
		pdf.Ln(7)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(70, 6, "Category", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, "Count", "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, "Amount", "1", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, c := range a.Categories() {
			pdf.CellFormat(70, 6, tr(c.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprint(c.Count), "1", 0, "R", false, 0, "")
			pdf.CellFormat(45, 6, money(c.Amount), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}
	table("Inscriptions", ov.Inscriptions)
	table("Transactions", ov.Transactions)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Salaires")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	for _, l := range m.Payroll.Lines {
		pdf.CellFormat(70, 6, tr(l.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(l.PaymentType), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, money(l.Expense), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	if len(m.Balances) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, tr("Soldes élèves"))
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)
		for i, b := range m.Balances {
			if i == 20 {
				break
			}
			pdf.CellFormat(70, 6, tr(b.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, string(b.Status), "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 6, money(b.Difference), "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render monthly pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Sheet names of the monthly workbook.
const (
	SheetSummary      = "summary"
	SheetPayments     = "payments"
	SheetInscriptions = "inscriptions"
	SheetTransactions = "transactions"
	SheetPayroll      = "payroll"
)

// BuildMonthlyXLSX renders one sheet per record kind plus a summary.
// Amounts are written as numbers in currency units.
func BuildMonthlyXLSX(m Monthly, loc *time.Location) ([]byte, error) {
	ov := m.Overview
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetPayments, SheetInscriptions, SheetTransactions, SheetPayroll} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w := &sheetWriter{f: f}
	w.rows(SheetSummary,
		[]any{"School", m.School},
		[]any{"Month", ov.Period.Label()},
		[]any{"Payments", ov.Reconciliation.TotalPayments.Units()},
		[]any{"Inscription fees", ov.Reconciliation.TotalInscriptionFees.Units()},
		[]any{"Status", string(ov.Reconciliation.Status)},
		[]any{"Difference", ov.Reconciliation.Difference.Units()},
		[]any{"Income", ov.CashFlow.Income.Units()},
		[]any{"Expense", ov.CashFlow.Expense.Units()},
		[]any{"Payroll", m.Payroll.Total.Units()},
		[]any{"Net", m.Net().Units()},
		[]any{"Inscriptions", ov.Inscriptions.Count},
		[]any{"Payments count", ov.Payments.Count},
	)

	payments := append([]core.Payment(nil), m.Payments...)
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].Date.Before(payments[j].Date) })
	w.row(SheetPayments, "Date", "Student", "Amount", "Note", "ID")
	for _, p := range payments {
		w.row(SheetPayments, dateIn(p.Date, loc), m.studentName(p.StudentID), p.Amount.Units(), p.Note, p.ID)
	}

	w.row(SheetInscriptions, "Date", "Student", "Type", "Amount", "ID")
	for _, i := range m.Inscriptions {
		w.row(SheetInscriptions, dateIn(i.CreatedAt, loc), m.studentName(i.StudentID), string(i.Type), i.Amount.Units(), i.ID)
	}

	w.row(SheetTransactions, "Date", "Type", "Category", "Amount", "Description", "ID")
	for _, t := range m.Transactions {
		w.row(SheetTransactions, dateIn(t.Date, loc), string(t.Type), t.Category, t.Amount.Units(), t.Description, t.ID)
	}

	w.row(SheetPayroll, "Teacher", "Payment type", "Groups", "Students", "Hours", "Estimated revenue", "Expense")
	for _, l := range m.Payroll.Lines {
		w.row(SheetPayroll, l.Name, string(l.PaymentType), l.Groups, l.Students, l.Hours, l.Revenue.Units(), l.Expense.Units())
	}
	w.row(SheetPayroll, "Total", "", "", "", "", "", m.Payroll.Total.Units())

	if w.err != nil {
		return nil, w.err
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows per sheet and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (w *sheetWriter) row(sheet string, values ...any) {
	if w.err != nil {
		return
	}
	if w.next == nil {
		w.next = map[string]int{}
	}
	w.next[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, w.next[sheet])
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
}

func (w *sheetWriter) rows(sheet string, rows ...[]any) {
	for _, r := range rows {
		w.row(sheet, r...)
	}
}
