package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"arwaeduc/internal/cache"
	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
)

const (
	SourceInscriptions Source = "inscriptions"
	SourcePayments     Source = "payments"
	SourceTransactions Source = "transactions"
)

// Source names a record collection that can be aggregated.
type Source string

var ErrUnknownSource = errors.New("unknown analytics source")

func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceInscriptions, SourcePayments, SourceTransactions:
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// AnalyticsService fetches records for a period and runs them through the
// aggregator, reconciler and payroll calculator. Results are cached under
// versioned keys when a cache is configured.
type AnalyticsService struct {
	store   records.RecordStore
	cache   cache.Versioned
	payroll *PayrollCalculator
	now     func() time.Time
	loc     *time.Location
}

// NewAnalyticsService builds the service. c may be nil to disable caching;
// loc is the school's timezone (nil means UTC).
func NewAnalyticsService(store records.RecordStore, c cache.Versioned, payroll *PayrollCalculator, loc *time.Location) *AnalyticsService {
	if payroll == nil {
		payroll = NewPayrollCalculator(DefaultPayrollConfig())
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: store, cache: c, payroll: payroll, now: time.Now, loc: loc}
}

// Location is the timezone periods are computed in.
func (s *AnalyticsService) Location() *time.Location { return s.loc }

// Now returns the current time in the service's location.
func (s *AnalyticsService) Now() time.Time { return s.now().In(s.loc) }

// GetAnalytics aggregates one source over p. Inscriptions and transactions
// are split by type. Store errors are returned wrapped, never retried.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, source Source, p core.Period) (core.Analytics, error) {
	return cached(ctx, s, func(ctx context.Context) (core.Analytics, error) {
		return s.aggregate(ctx, source, p)
	}, "analytics", string(source), p.Key())
}

func (s *AnalyticsService) aggregate(ctx context.Context, source Source, p core.Period) (core.Analytics, error) {
	f := records.Filter{Period: p}
	switch source {
	case SourceInscriptions:
		ins, err := s.store.FindInscriptions(ctx, f)
		if err != nil {
			return core.Analytics{}, fmt.Errorf("fetch inscriptions: %w", err)
		}
		return InscriptionsByType(ins, p), nil
	case SourcePayments:
		pays, err := s.store.FindPayments(ctx, f)
		if err != nil {
			return core.Analytics{}, fmt.Errorf("fetch payments: %w", err)
		}
		return Aggregate(pays, p, nil), nil
	case SourceTransactions:
		txs, err := s.store.FindTransactions(ctx, f)
		if err != nil {
			return core.Analytics{}, fmt.Errorf("fetch transactions: %w", err)
		}
		return TransactionsByType(txs, p), nil
	}
	return core.Analytics{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
}

// CashFlow sums ledger income and expense over p.
func (s *AnalyticsService) CashFlow(ctx context.Context, p core.Period) (core.CashFlow, error) {
	return cached(ctx, s, func(ctx context.Context) (core.CashFlow, error) {
		txs, err := s.store.FindTransactions(ctx, records.Filter{Period: p})
		if err != nil {
			return core.CashFlow{}, fmt.Errorf("fetch transactions: %w", err)
		}
		return CashFlow(txs, p), nil
	}, "cashflow", p.Key())
}

// TransactionCategories aggregates the ledger by category over p.
func (s *AnalyticsService) TransactionCategories(ctx context.Context, p core.Period) (core.Analytics, error) {
	return cached(ctx, s, func(ctx context.Context) (core.Analytics, error) {
		txs, err := s.store.FindTransactions(ctx, records.Filter{Period: p})
		if err != nil {
			return core.Analytics{}, fmt.Errorf("fetch transactions: %w", err)
		}
		return TransactionsByCategory(txs, p), nil
	}, "categories", p.Key())
}

// Reconciliation compares payments received in p with inscription fees due in p.
func (s *AnalyticsService) Reconciliation(ctx context.Context, p core.Period) (core.Reconciliation, error) {
	return cached(ctx, s, func(ctx context.Context) (core.Reconciliation, error) {
		var (
			pays []core.Payment
			ins  []core.Inscription
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			pays, err = s.store.FindPayments(gctx, records.Filter{Period: p})
			if err != nil {
				return fmt.Errorf("fetch payments: %w", err)
			}
			return nil
		})
		g.Go(func() (err error) {
			ins, err = s.store.FindInscriptions(gctx, records.Filter{Period: p})
			if err != nil {
				return fmt.Errorf("fetch inscriptions: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return core.Reconciliation{}, err
		}
		return ReconcileRecords(p, pays, ins), nil
	}, "reconciliation", p.Key())
}

// StudentBalances reconciles each student over p, largest gap first.
func (s *AnalyticsService) StudentBalances(ctx context.Context, p core.Period) ([]core.StudentBalance, error) {
	return cached(ctx, s, func(ctx context.Context) ([]core.StudentBalance, error) {
		students, err := s.store.ListStudents(ctx)
		if err != nil {
			return nil, fmt.Errorf("list students: %w", err)
		}
		pays, err := s.store.FindPayments(ctx, records.Filter{Period: p})
		if err != nil {
			return nil, fmt.Errorf("fetch payments: %w", err)
		}
		ins, err := s.store.FindInscriptions(ctx, records.Filter{Period: p})
		if err != nil {
			return nil, fmt.Errorf("fetch inscriptions: %w", err)
		}
		return ReconcileStudents(p, students, pays, ins), nil
	}, "balances", p.Key())
}

// Payroll computes this month's teacher expenses.
func (s *AnalyticsService) Payroll(ctx context.Context) (core.PayrollSummary, error) {
	return cached(ctx, s, func(ctx context.Context) (core.PayrollSummary, error) {
		teachers, err := s.store.ListTeachers(ctx)
		if err != nil {
			return core.PayrollSummary{}, fmt.Errorf("list teachers: %w", err)
		}
		return s.payroll.MonthlyPayroll(ctx, teachers), nil
	}, "payroll")
}

// MonthOverview gathers every monthly summary for p.
func (s *AnalyticsService) MonthOverview(ctx context.Context, p core.Period) (core.MonthOverview, error) {
	out := core.MonthOverview{Period: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Inscriptions, err = s.GetAnalytics(gctx, SourceInscriptions, p)
		return err
	})
	g.Go(func() (err error) {
		out.Payments, err = s.GetAnalytics(gctx, SourcePayments, p)
		return err
	})
	g.Go(func() (err error) {
		out.Transactions, err = s.GetAnalytics(gctx, SourceTransactions, p)
		return err
	})
	g.Go(func() (err error) {
		out.CashFlow, err = s.CashFlow(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		out.Reconciliation, err = s.Reconciliation(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, err
	}
	return out, nil
}

// Dashboard returns today's and this month's figures as of now.
func (s *AnalyticsService) Dashboard(ctx context.Context, now time.Time) (core.Dashboard, error) {
	now = now.In(s.loc)
	d := core.Dashboard{Today: core.PeriodFor(now, core.Day), Month: core.PeriodFor(now, core.Month)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.InscriptionsToday, err = s.GetAnalytics(gctx, SourceInscriptions, d.Today)
		return err
	})
	g.Go(func() (err error) {
		d.InscriptionsMonth, err = s.GetAnalytics(gctx, SourceInscriptions, d.Month)
		return err
	})
	g.Go(func() (err error) {
		d.PaymentsToday, err = s.GetAnalytics(gctx, SourcePayments, d.Today)
		return err
	})
	g.Go(func() (err error) {
		d.PaymentsMonth, err = s.GetAnalytics(gctx, SourcePayments, d.Month)
		return err
	})
	g.Go(func() (err error) {
		d.CashFlow, err = s.CashFlow(gctx, d.Month)
		return err
	})
	g.Go(func() (err error) {
		d.Reconciliation, err = s.Reconciliation(gctx, d.Month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}

// Invalidate drops every cached summary.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

// cached runs load through the service cache. A cache failure degrades to a
// direct load; a load failure is returned as is.
func cached[T any](ctx context.Context, s *AnalyticsService, load func(context.Context) (T, error), parts ...string) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		slog.WarnContext(ctx, "Cache key unavailable, loading directly", "key", strings.Join(parts, ":"), "error", err)
		return load(ctx)
	}
	var (
		out     T
		loadErr error
	)
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		v, err := load(ctx)
		loadErr = err
		return v, err
	})
	if loadErr != nil {
		var zero T
		return zero, loadErr
	}
	if err != nil {
		slog.WarnContext(ctx, "Cache unavailable, loading directly", "key", key, "error", err)
		return load(ctx)
	}
	return out, nil
}
