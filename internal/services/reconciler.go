package services

import (
	"sort"

	"arwaeduc/internal/core"
)

// Reconcile classifies received payments against expected inscription fees.
// Amounts are compared in whole cents, so EXACT_MATCH means equal to the cent.
func Reconcile(p core.Period, totalPayments, totalFees core.Money) core.Reconciliation {
	r := core.Reconciliation{
		Period:               p,
		TotalPayments:        totalPayments,
		TotalInscriptionFees: totalFees,
	}
	switch {
	case totalPayments.Cents < totalFees.Cents:
		r.Status = core.UnderPaid
		r.Difference = totalFees.Sub(totalPayments)
	case totalPayments.Cents > totalFees.Cents:
		r.Status = core.OverPaid
		r.Difference = totalPayments.Sub(totalFees)
	default:
		r.Status = core.ExactMatch
	}
	return r
}

// ReconcileRecords aggregates both record sets over p and classifies the totals.
func ReconcileRecords(p core.Period, payments []core.Payment, inscriptions []core.Inscription) core.Reconciliation {
	paid := Aggregate(payments, p, nil)
	fees := Aggregate(inscriptions, p, nil)
	return Reconcile(p, paid.Total, fees.Total)
}

// ReconcileStudents reconciles each known student individually, largest
// difference first. Students with neither fees nor payments in p are omitted.
func ReconcileStudents(p core.Period, students []core.Student, payments []core.Payment, inscriptions []core.Inscription) []core.StudentBalance {
	paid := AggregateByStudent(payments, students, p)
	fees := Aggregate(inscriptions, p, func(i core.Inscription) string { return i.StudentID })

	out := make([]core.StudentBalance, 0, len(students))
	for _, s := range students {
		pb := paid.Bucket(s.ID)
		fb := fees.Bucket(s.ID)
		if pb.Count == 0 && fb.Count == 0 {
			continue
		}
		r := Reconcile(p, pb.Total, fb.Total)
		out = append(out, core.StudentBalance{
			StudentID:  s.ID,
			Name:       s.FullName(),
			Fees:       fb.Total,
			Paid:       pb.Total,
			Payments:   pb.Count,
			Status:     r.Status,
			Difference: r.Difference,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Difference.Cents != out[j].Difference.Cents {
			return out[i].Difference.Cents > out[j].Difference.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
