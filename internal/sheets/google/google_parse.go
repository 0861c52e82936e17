package google

import (
	"fmt"
	"strconv"
	"strings"

	"arwaeduc/internal/core"
	"arwaeduc/internal/sheets"
)

var summaryHeader = []any{
	"Month", "Payments", "Inscription fees", "Status", "Difference",
	"Income", "Expense", "Payroll", "Inscriptions",
}

// rowValues renders row as sheet cells. Amounts are written as plain decimals
// so USER_ENTERED parsing keeps them numeric.
func rowValues(row sheets.SummaryRow) []any {
	return []any{
		row.Month,
		row.Payments.Units(),
		row.Fees.Units(),
		string(row.Status),
		row.Difference.Units(),
		row.Income.Units(),
		row.Expense.Units(),
		row.Payroll.Units(),
		row.Inscriptions,
	}
}

// parseSummaries converts a values matrix into rows. The first row must be
// the header; rows whose month cell is empty are skipped.
func parseSummaries(values [][]any) ([]sheets.SummaryRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make([]int, len(summaryHeader))
	var missing []string
	for i, h := range summaryHeader {
		cols[i] = indexOf(headers, h.(string))
		if cols[i] == -1 {
			missing = append(missing, h.(string))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected summary header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []sheets.SummaryRow
	for _, raw := range values[1:] {
		r := toStrings(raw)
		month := safeGet(r, cols[0])
		if month == "" {
			continue
		}
		n, _ := strconv.Atoi(safeGet(r, cols[8]))
		out = append(out, sheets.SummaryRow{
			Month:        month,
			Payments:     parseAmount(safeGet(r, cols[1])),
			Fees:         parseAmount(safeGet(r, cols[2])),
			Status:       core.ReconciliationStatus(safeGet(r, cols[3])),
			Difference:   parseAmount(safeGet(r, cols[4])),
			Income:       parseAmount(safeGet(r, cols[5])),
			Expense:      parseAmount(safeGet(r, cols[6])),
			Payroll:      parseAmount(safeGet(r, cols[7])),
			Inscriptions: n,
		})
	}
	return out, nil
}

// findMonthRow returns the 1-based sheet row holding month, or 0.
func findMonthRow(values [][]any, month string) int {
	for i, raw := range values {
		if i == 0 || len(raw) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(raw[0])) == month {
			return i + 1
		}
	}
	return 0
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount reads "1234.5", "1 234,50" or "-80" as cents; anything else is zero.
func parseAmount(s string) core.Money {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return core.Money{}
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}
	}
	if neg {
		cents = -cents
	}
	return core.Money{Cents: cents}
}
