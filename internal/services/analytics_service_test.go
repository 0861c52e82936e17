package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arwaeduc/internal/cache"
	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
	"arwaeduc/internal/records/memory"
)

// countingStore wraps the memory store, counting fetches and optionally failing them.
type countingStore struct {
	*memory.Store
	paymentCalls atomic.Int32
	fail         error
}

func (c *countingStore) FindPayments(ctx context.Context, f records.Filter) ([]core.Payment, error) {
	c.paymentCalls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Store.FindPayments(ctx, f)
}

func (c *countingStore) FindInscriptions(ctx context.Context, f records.Filter) ([]core.Inscription, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Store.FindInscriptions(ctx, f)
}

func march2024Store(t *testing.T) *countingStore {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	st, err := s.CreateStudent(ctx, core.Student{ID: "s1", FirstName: "Amina", LastName: "Alaoui"})
	require.NoError(t, err)
	_, err = s.CreateInscription(ctx, core.Inscription{StudentID: st.ID, Type: core.InscriptionSoutien, Amount: cents(300), CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = s.CreateInscription(ctx, core.Inscription{StudentID: st.ID, Type: core.InscriptionFormation, Amount: cents(1000), CreatedAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	for _, p := range []struct {
		amount int64
		day    int
	}{{100, 5}, {250, 20}} {
		_, err = s.CreatePayment(ctx, core.Payment{StudentID: st.ID, Amount: cents(p.amount), Date: time.Date(2024, 3, p.day, 10, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
	}
	_, err = s.CreateTransaction(ctx, core.Transaction{Type: core.TransactionExpense, Amount: cents(80), Category: "Rent", Date: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	return &countingStore{Store: s}
}

func newRedisCache(t *testing.T) *cache.Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedis(client, time.Minute)
}

func TestGetAnalyticsBySource(t *testing.T) {
	ctx := context.Background()
	svc := NewAnalyticsService(march2024Store(t), nil, nil, time.UTC)
	march := core.MonthPeriod(2024, 3, time.UTC)

	ins, err := svc.GetAnalytics(ctx, SourceInscriptions, march)
	require.NoError(t, err)
	assert.Equal(t, 1, ins.Count)
	assert.Equal(t, int64(30000), ins.Total.Cents)
	assert.Equal(t, 1, ins.Bucket("SOUTIEN").Count)
	assert.Equal(t, 0, ins.Bucket("FORMATION").Count)

	pays, err := svc.GetAnalytics(ctx, SourcePayments, march)
	require.NoError(t, err)
	assert.Equal(t, 2, pays.Count)
	assert.Equal(t, int64(35000), pays.Total.Cents)

	txs, err := svc.GetAnalytics(ctx, SourceTransactions, march)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), txs.Bucket("EXPENSE").Total.Cents)

	_, err = svc.GetAnalytics(ctx, Source("teachers"), march)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestReconciliationService(t *testing.T) {
	svc := NewAnalyticsService(march2024Store(t), nil, nil, nil)
	rec, err := svc.Reconciliation(context.Background(), core.MonthPeriod(2024, 3, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, core.OverPaid, rec.Status)
	assert.Equal(t, int64(5000), rec.Difference.Cents)
}

func TestFetchErrorPropagates(t *testing.T) {
	store := march2024Store(t)
	boom := errors.New("database is locked")
	store.fail = boom
	svc := NewAnalyticsService(store, newRedisCache(t), nil, time.UTC)

	_, err := svc.GetAnalytics(context.Background(), SourcePayments, core.MonthPeriod(2024, 3, time.UTC))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), store.paymentCalls.Load(), "fetch must not be retried")

	_, err = svc.Reconciliation(context.Background(), core.MonthPeriod(2024, 3, time.UTC))
	require.ErrorIs(t, err, boom)
}

func TestAnalyticsCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := march2024Store(t)
	svc := NewAnalyticsService(store, newRedisCache(t), nil, time.UTC)
	march := core.MonthPeriod(2024, 3, time.UTC)

	first, err := svc.GetAnalytics(ctx, SourcePayments, march)
	require.NoError(t, err)
	second, err := svc.GetAnalytics(ctx, SourcePayments, march)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.paymentCalls.Load())
	assert.Equal(t, first.Total, second.Total)
	assert.True(t, second.Period.End.Equal(march.End))

	_, err = store.CreatePayment(ctx, core.Payment{StudentID: "s1", Amount: cents(50), Date: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	third, err := svc.GetAnalytics(ctx, SourcePayments, march)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.paymentCalls.Load())
	assert.Equal(t, int64(40000), third.Total.Cents)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc := NewAnalyticsService(march2024Store(t), cache.NewLocal(32, time.Minute), nil, time.UTC)

	d, err := svc.Dashboard(ctx, time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, d.PaymentsToday.Count)
	assert.Equal(t, int64(25000), d.PaymentsToday.Total.Cents)
	assert.Equal(t, 0, d.InscriptionsToday.Count)
	assert.Equal(t, 1, d.InscriptionsMonth.Count)
	assert.Equal(t, int64(8000), d.CashFlow.Expense.Cents)
	assert.Equal(t, int64(-8000), d.CashFlow.Net.Cents)
	assert.Equal(t, core.OverPaid, d.Reconciliation.Status)
}

func TestStudentBalancesAndPayroll(t *testing.T) {
	ctx := context.Background()
	store := march2024Store(t)
	require.NoError(t, store.Load(memory.Seed{}))
	svc := NewAnalyticsService(store, nil, NewPayrollCalculator(DefaultPayrollConfig()), time.UTC)

	bal, err := svc.StudentBalances(ctx, core.MonthPeriod(2024, 3, time.UTC))
	require.NoError(t, err)
	require.Len(t, bal, 1)
	assert.Equal(t, 2, bal[0].Payments)
	assert.Equal(t, core.OverPaid, bal[0].Status)

	pay, err := svc.Payroll(ctx)
	require.NoError(t, err)
	assert.Empty(t, pay.Lines)
	assert.True(t, pay.Total.IsZero())
}

func TestParseSource(t *testing.T) {
	for _, in := range []string{"payments", "Inscriptions", " transactions "} {
		_, err := ParseSource(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseSource("salaries")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestMonthlyReport(t *testing.T) {
	ctx := context.Background()
	svc := NewAnalyticsService(march2024Store(t), nil, nil, time.UTC)
	march := core.MonthPeriod(2024, 3, time.UTC)

	m, err := svc.MonthlyReport(ctx, march, "ArwaEduc")
	require.NoError(t, err)
	assert.Equal(t, "ArwaEduc", m.School)
	assert.Equal(t, core.OverPaid, m.Overview.Reconciliation.Status)
	assert.Equal(t, cents(50), m.Overview.Reconciliation.Difference)
	assert.Len(t, m.Payments, 2)
	assert.Len(t, m.Inscriptions, 1)
	assert.Len(t, m.Transactions, 1)
	assert.Equal(t, "Amina Alaoui", m.StudentNames["s1"])
	require.Len(t, m.Balances, 1)
	assert.Equal(t, "s1", m.Balances[0].StudentID)
}

func TestMonthlyReportFetchError(t *testing.T) {
	store := march2024Store(t)
	store.fail = errors.New("db down")
	svc := NewAnalyticsService(store, nil, nil, time.UTC)

	_, err := svc.MonthlyReport(context.Background(), core.MonthPeriod(2024, 3, time.UTC), "ArwaEduc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
