package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arwaeduc/internal/amqp"
	"arwaeduc/internal/core"
	"arwaeduc/internal/records"
	"arwaeduc/internal/records/memory"
)

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishRecordCreated(_ context.Context, kind amqp.RecordKind, id string) error {
	f.events = append(f.events, string(kind)+":"+id)
	return f.err
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	svc := NewRecordingService(store, inv, pub)

	st, err := svc.RecordStudent(ctx, core.Student{FirstName: "Amina"})
	require.NoError(t, err)

	p, err := svc.RecordPayment(ctx, core.Payment{StudentID: st.ID, Amount: cents(150), Date: time.Now()})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 2, inv.calls)
	assert.Equal(t, []string{"student:" + st.ID, "payment:" + p.ID}, pub.events)

	gotP, gotS, err := svc.Receipt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Amount, gotP.Amount)
	assert.Equal(t, "Amina", gotS.FullName())
}

func TestRecordPaymentRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewRecordingService(memory.New(), nil, pub)

	_, err := svc.RecordPayment(ctx, core.Payment{StudentID: "s1", Date: time.Now()})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.RecordPayment(ctx, core.Payment{StudentID: "missing", Amount: cents(10), Date: time.Now()})
	assert.ErrorIs(t, err, records.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordingService(memory.New(), nil, &fakePublisher{err: errors.New("circuit breaker is open")})

	tx, err := svc.RecordTransaction(ctx, core.Transaction{
		Type: core.TransactionIncome, Amount: cents(20), Category: "Donation", Date: time.Now(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
}

func TestRecordInscriptionWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewRecordingService(store, nil, nil)
	st, err := svc.RecordStudent(ctx, core.Student{LastName: "Bennani"})
	require.NoError(t, err)

	ins, err := svc.RecordInscription(ctx, core.Inscription{StudentID: st.ID, Type: core.InscriptionFormation, Amount: cents(900), CreatedAt: time.Now()})
	require.NoError(t, err)
	found, err := store.FindInscriptions(ctx, records.Filter{StudentID: st.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ins.ID, found[0].ID)

	_, err = svc.RecordInscription(ctx, core.Inscription{StudentID: st.ID, Type: "EVENING", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, core.ErrInvalidInscriptionType)
}
