// Package services provides the finance computations (aggregation,
// reconciliation, payroll) and the services orchestrating them over the
// record store.
package services

import (
	"time"

	"arwaeduc/internal/core"
)

// Dated is any financial record that carries a date and an amount.
type Dated interface {
	RecordDate() time.Time
	RecordAmount() core.Money
}

// Aggregate counts and sums the records dated within p, bounds inclusive.
// When discriminator is non-nil each included record is also bucketed under
// the key it returns. Records with a zero date are skipped.
func Aggregate[R Dated](recs []R, p core.Period, discriminator func(R) string) core.Analytics {
	out := core.Analytics{Period: p}
	if discriminator != nil {
		out.ByCategory = map[string]core.Bucket{}
	}
	for _, r := range recs {
		if !p.Contains(r.RecordDate()) {
			continue
		}
		amt := r.RecordAmount()
		out.Count++
		out.Total = out.Total.Add(amt)
		if discriminator == nil {
			continue
		}
		key := discriminator(r)
		b := out.ByCategory[key]
		b.Count++
		b.Total = b.Total.Add(amt)
		out.ByCategory[key] = b
	}
	return out
}

func InscriptionsByType(ins []core.Inscription, p core.Period) core.Analytics {
	return Aggregate(ins, p, func(i core.Inscription) string { return string(i.Type) })
}

func TransactionsByType(txs []core.Transaction, p core.Period) core.Analytics {
	return Aggregate(txs, p, func(t core.Transaction) string { return string(t.Type) })
}

func TransactionsByCategory(txs []core.Transaction, p core.Period) core.Analytics {
	return Aggregate(txs, p, func(t core.Transaction) string { return t.Category })
}

// AggregateByStudent buckets payments by student id. Payments whose student is
// not in students are dropped entirely, from the totals as well.
func AggregateByStudent(payments []core.Payment, students []core.Student, p core.Period) core.Analytics {
	known := make(map[string]struct{}, len(students))
	for _, s := range students {
		known[s.ID] = struct{}{}
	}
	kept := make([]core.Payment, 0, len(payments))
	for _, pay := range payments {
		if _, ok := known[pay.StudentID]; ok {
			kept = append(kept, pay)
		}
	}
	return Aggregate(kept, p, func(pay core.Payment) string { return pay.StudentID })
}

// CashFlow splits the ledger into income and expense for p.
func CashFlow(txs []core.Transaction, p core.Period) core.CashFlow {
	a := TransactionsByType(txs, p)
	income := a.Bucket(string(core.TransactionIncome)).Total
	expense := a.Bucket(string(core.TransactionExpense)).Total
	return core.CashFlow{Period: p, Income: income, Expense: expense, Net: income.Sub(expense)}
}
