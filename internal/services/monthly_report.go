package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
	"arwaeduc/internal/report"
)

// MonthlyReport gathers what a month-end export shows for p: the overview,
// payroll and student balances go through the cache, the raw record lists
// are always read from the store.
func (s *AnalyticsService) MonthlyReport(ctx context.Context, p core.Period, school string) (report.Monthly, error) {
	m := report.Monthly{School: school, GeneratedAt: s.Now()}
	var students []core.Student
	f := records.Filter{Period: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		m.Overview, err = s.MonthOverview(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		m.Payroll, err = s.Payroll(gctx)
		return err
	})
	g.Go(func() (err error) {
		m.Balances, err = s.StudentBalances(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		if m.Payments, err = s.store.FindPayments(gctx, f); err != nil {
			return fmt.Errorf("fetch payments: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if m.Inscriptions, err = s.store.FindInscriptions(gctx, f); err != nil {
			return fmt.Errorf("fetch inscriptions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if m.Transactions, err = s.store.FindTransactions(gctx, f); err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if students, err = s.store.ListStudents(gctx); err != nil {
			return fmt.Errorf("list students: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Monthly{}, err
	}

	m.StudentNames = make(map[string]string, len(students))
	for _, st := range students {
		m.StudentNames[st.ID] = st.FullName()
	}
	return m, nil
}
