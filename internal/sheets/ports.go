// Package sheets defines the outbound port used to publish monthly finance
// summaries to a spreadsheet. The Google implementation lives in sheets/google.
package sheets

import (
	"context"

	"arwaeduc/internal/core"
)

// SummaryRow is one month of the published summary sheet.
type SummaryRow struct {
	Month        string // "2024-03"
	Payments     core.Money
	Fees         core.Money
	Status       core.ReconciliationStatus
	Difference   core.Money
	Income       core.Money
	Expense      core.Money
	Payroll      core.Money
	Inscriptions int
}

// NewSummaryRow flattens an overview and payroll into a sheet row.
func NewSummaryRow(ov core.MonthOverview, payroll core.PayrollSummary) SummaryRow {
	return SummaryRow{
		Month:        ov.Period.Label(),
		Payments:     ov.Reconciliation.TotalPayments,
		Fees:         ov.Reconciliation.TotalInscriptionFees,
		Status:       ov.Reconciliation.Status,
		Difference:   ov.Reconciliation.Difference,
		Income:       ov.CashFlow.Income,
		Expense:      ov.CashFlow.Expense,
		Payroll:      payroll.Total,
		Inscriptions: ov.Inscriptions.Count,
	}
}

// Ports for outbound adapters.
type (
	// SummaryPublisher writes a month's row, replacing an existing row for the
	// same month. It returns the A1 reference of the written row.
	SummaryPublisher interface {
		PublishSummary(ctx context.Context, row SummaryRow) (ref string, err error)
	}

	// SummaryReader lists the rows already published.
	SummaryReader interface {
		ListSummaries(ctx context.Context) ([]SummaryRow, error)
	}
)
