package core

import "sort"

const (
	UnderPaid  ReconciliationStatus = "UNDER_PAID"
	OverPaid   ReconciliationStatus = "OVER_PAID"
	ExactMatch ReconciliationStatus = "EXACT_MATCH"
)

// Bucket is a count and a total.
type Bucket struct {
	Count int   `json:"count"`
	Total Money `json:"total"`
}

// Analytics is the result of aggregating records over a period.
type Analytics struct {
	Period     Period            `json:"period"`
	Count      int               `json:"count"`
	Total      Money             `json:"total"`
	ByCategory map[string]Bucket `json:"by_category,omitempty"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Count  int
	Amount Money
}

// Categories returns ByCategory as a slice sorted by descending amount, then name.
func (a Analytics) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(a.ByCategory))
	for name, b := range a.ByCategory {
		out = append(out, CategoryAmount{Name: name, Count: b.Count, Amount: b.Total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Bucket returns the bucket for key, zero when absent.
func (a Analytics) Bucket(key string) Bucket {
	return a.ByCategory[key]
}

// CashFlow is the income/expense summary of ledger transactions.
type CashFlow struct {
	Period  Period `json:"period"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Net     Money  `json:"net"`
}

// ReconciliationStatus classifies payments against inscription fees.
type ReconciliationStatus string

// Reconciliation compares received payments with expected inscription fees.
// Difference is always a non-negative magnitude.
type Reconciliation struct {
	Period               Period               `json:"period"`
	TotalPayments        Money                `json:"total_payments"`
	TotalInscriptionFees Money                `json:"total_inscription_fees"`
	Status               ReconciliationStatus `json:"status"`
	Difference           Money                `json:"difference"`
}

// StudentBalance is the per-student view of a reconciliation.
type StudentBalance struct {
	StudentID  string               `json:"student_id"`
	Name       string               `json:"name"`
	Fees       Money                `json:"fees"`
	Paid       Money                `json:"paid"`
	Payments   int                  `json:"payments"`
	Status     ReconciliationStatus `json:"status"`
	Difference Money                `json:"difference"`
}

// PayrollLine is one teacher's computed monthly expense.
type PayrollLine struct {
	TeacherID   string      `json:"teacher_id"`
	Name        string      `json:"name"`
	PaymentType PaymentType `json:"payment_type"`
	Groups      int         `json:"groups"`
	Students    int         `json:"students"`
	Hours       int         `json:"hours,omitempty"`
	Revenue     Money       `json:"estimated_revenue"`
	Expense     Money       `json:"expense"`
	Unknown     bool        `json:"unknown_type,omitempty"`
}

// PayrollSummary totals teacher expenses for a month.
type PayrollSummary struct {
	Lines []PayrollLine `json:"lines"`
	Total Money         `json:"total"`
}

// MonthOverview is the compact monthly summary shown on the dashboard and
// in exported reports.
type MonthOverview struct {
	Period         Period         `json:"period"`
	Inscriptions   Analytics      `json:"inscriptions"`
	Payments       Analytics      `json:"payments"`
	Transactions   Analytics      `json:"transactions"`
	CashFlow       CashFlow       `json:"cash_flow"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

// Dashboard is the landing summary: today and this month.
type Dashboard struct {
	Today             Period         `json:"today"`
	Month             Period         `json:"month"`
	InscriptionsToday Analytics      `json:"inscriptions_today"`
	InscriptionsMonth Analytics      `json:"inscriptions_month"`
	PaymentsToday     Analytics      `json:"payments_today"`
	PaymentsMonth     Analytics      `json:"payments_month"`
	CashFlow          CashFlow       `json:"cash_flow"`
	Reconciliation    Reconciliation `json:"reconciliation"`
}
