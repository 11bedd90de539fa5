package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/queue"

	"github.com/hibiken/asynq"
)

type stubOrderEventQueue struct {
	enabled  bool
	err      error
	payloads []queue.OrderEventPayload
}

func (q *stubOrderEventQueue) Enabled() bool {
	return q.enabled
}

func (q *stubOrderEventQueue) EnqueueOrderEvent(payload queue.OrderEventPayload, _ ...asynq.Option) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestOrderEventPaidRecordsCommission(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	svc := NewOrderEventService(f.cfg, f.ledger, nil)
	promoter := f.createPromoter(t, "event@example.com")

	payload := queue.OrderEventPayload{
		Event:      " PAID ",
		OrderRef:   "ORD-77",
		PromoterID: promoter.ID,
		Amount:     "19.90",
	}
	result, err := svc.Accept(context.Background(), payload)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if result.Queued || result.Commission == nil {
		t.Fatalf("expected inline commission, got %+v", result)
	}
	if result.Commission.Kind != constants.CommissionKindDirectSale {
		t.Fatalf("expected default kind, got %s", result.Commission.Kind)
	}

	again, err := svc.Apply(context.Background(), payload)
	if err != nil {
		t.Fatalf("apply again failed: %v", err)
	}
	if again.Commission.ID != result.Commission.ID {
		t.Fatalf("redelivered event must not duplicate commission")
	}
	assertMoney(t, "earned", f.mustWallet(t, promoter.ID).TotalEarned, "19.90")
}

func TestOrderEventRefundReversesCommission(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	svc := NewOrderEventService(f.cfg, f.ledger, nil)
	promoter := f.createPromoter(t, "refund@example.com")
	ctx := context.Background()

	if _, err := svc.Apply(ctx, queue.OrderEventPayload{Event: constants.OrderEventPaid, OrderRef: "ORD-5", PromoterID: promoter.ID, Amount: "40"}); err != nil {
		t.Fatalf("paid failed: %v", err)
	}
	result, err := svc.Apply(ctx, queue.OrderEventPayload{Event: constants.OrderEventRefunded, OrderRef: "ORD-5"})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if result.Reversal == nil || len(result.Reversal.Reversed) != 1 {
		t.Fatalf("expected one reversed entry, got %+v", result.Reversal)
	}
	assertMoney(t, "earned", f.mustWallet(t, promoter.ID).TotalEarned, "0")
}

func TestOrderEventCancelRespectsConfig(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	svc := NewOrderEventService(f.cfg, f.ledger, nil)
	promoter := f.createPromoter(t, "cancel.event@example.com")
	ctx := context.Background()

	if _, err := svc.Apply(ctx, queue.OrderEventPayload{Event: constants.OrderEventPaid, OrderRef: "ORD-6", PromoterID: promoter.ID, Amount: "25"}); err != nil {
		t.Fatalf("paid failed: %v", err)
	}
	result, err := svc.Apply(ctx, queue.OrderEventPayload{Event: constants.OrderEventCanceled, OrderRef: "ORD-6"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if result.Reversal != nil {
		t.Fatalf("cancel should be ignored when disabled, got %+v", result.Reversal)
	}
	assertMoney(t, "earned", f.mustWallet(t, promoter.ID).TotalEarned, "25")

	f.cfg.Ledger.ReverseOnOrderCancelled = true
	result, err = svc.Apply(ctx, queue.OrderEventPayload{Event: constants.OrderEventCanceled, OrderRef: "ORD-6"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if result.Reversal == nil || len(result.Reversal.Reversed) != 1 {
		t.Fatalf("expected reversal, got %+v", result.Reversal)
	}
}

func TestOrderEventAcceptEnqueuesWhenQueueEnabled(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	q := &stubOrderEventQueue{enabled: true}
	svc := NewOrderEventService(f.cfg, f.ledger, q)
	promoter := f.createPromoter(t, "queued@example.com")

	result, err := svc.Accept(context.Background(), queue.OrderEventPayload{Event: "paid", OrderRef: "ORD-8", PromoterID: promoter.ID, Amount: "5"})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if !result.Queued || len(q.payloads) != 1 {
		t.Fatalf("expected queued event, got %+v", result)
	}
	assertMoney(t, "earned before worker", f.mustWallet(t, promoter.ID).TotalEarned, "0")

	q.err = errors.New("redis down")
	result, err = svc.Accept(context.Background(), queue.OrderEventPayload{Event: "paid", OrderRef: "ORD-9", PromoterID: promoter.ID, Amount: "5"})
	if err != nil {
		t.Fatalf("accept fallback failed: %v", err)
	}
	if result.Queued || result.Commission == nil {
		t.Fatalf("expected inline fallback, got %+v", result)
	}
}

func TestOrderEventValidation(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	svc := NewOrderEventService(f.cfg, f.ledger, nil)
	cases := []queue.OrderEventPayload{
		{Event: "paid", OrderRef: "", PromoterID: 1, Amount: "1"},
		{Event: "paid", OrderRef: "ORD-1", Amount: "1"},
		{Event: "shipped", OrderRef: "ORD-1"},
	}
	for _, payload := range cases {
		if _, err := svc.Apply(context.Background(), payload); !errors.Is(err, ErrOrderEventInvalid) {
			t.Fatalf("expected ErrOrderEventInvalid for %+v, got %v", payload, err)
		}
	}
	promoter := f.createPromoter(t, "amount@example.com")
	if _, err := svc.Apply(context.Background(), queue.OrderEventPayload{Event: "paid", OrderRef: "ORD-2", PromoterID: promoter.ID, Amount: "abc"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
