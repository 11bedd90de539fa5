package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPayoutGateway struct {
	confirmed   bool
	err         error
	ref         string
	state       PayoutState
	statusErr   error
	calls       int
	statusCalls int
}

func (g *stubPayoutGateway) ConfirmPayout(_ context.Context, _ *models.WithdrawalRequest) (PayoutConfirmation, error) {
	g.calls++
	if g.err != nil {
		return PayoutConfirmation{}, g.err
	}
	ref := g.ref
	if ref == "" {
		ref = "BANK-001"
	}
	return PayoutConfirmation{Confirmed: g.confirmed, Reference: ref}, nil
}

func (g *stubPayoutGateway) PayoutStatus(_ context.Context, req *models.WithdrawalRequest) (PayoutState, error) {
	g.statusCalls++
	if g.statusErr != nil {
		return "", g.statusErr
	}
	if req.PayoutRef == "" {
		return PayoutStateNone, nil
	}
	return g.state, nil
}

func TestWithdrawalRoundTripCompleted(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "round@example.com")
	f.credit(t, promoter.ID, "500")

	req := f.mustCreateWithdrawal(t, promoter.ID, "500")
	require.Equal(t, constants.WithdrawStatusPending, req.Status)

	_, err := f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	done, err := f.withdraw.Complete(ctx, 1, req.ID, notePtr("paid via bank"))
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusCompleted, done.Status)
	require.True(t, len(done.PayoutRef) > 0, "expected payout reference")

	wallet := f.mustWallet(t, promoter.ID)
	assertMoney(t, "withdrawable", wallet.WithdrawableBalance, "0")
	assertMoney(t, "total_withdrawn", wallet.TotalWithdrawn, "500")
	assertMoney(t, "locked", wallet.Locked, "0")
	assertMoney(t, "available", wallet.AvailableBalance, "0")
}

func TestWithdrawalApproveThenFailReleasesLock(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "fail@example.com")
	f.credit(t, promoter.ID, "1000")
	assertMoney(t, "withdrawable", f.mustWallet(t, promoter.ID).WithdrawableBalance, "1000")

	req := f.mustCreateWithdrawal(t, promoter.ID, "1000")
	require.Equal(t, constants.WithdrawStatusPending, req.Status)
	assertMoney(t, "withdrawable after create", f.mustWallet(t, promoter.ID).WithdrawableBalance, "0")

	approved, err := f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusApproved, approved.Status)
	wallet := f.mustWallet(t, promoter.ID)
	assertMoney(t, "withdrawable after approve", wallet.WithdrawableBalance, "0")
	assertMoney(t, "locked after approve", wallet.Locked, "1000")

	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	assertMoney(t, "withdrawable while processing", f.mustWallet(t, promoter.ID).WithdrawableBalance, "0")

	failed, err := f.withdraw.Fail(ctx, 1, req.ID, notePtr("bank account closed"))
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusFailed, failed.Status)
	require.Equal(t, "bank account closed", failed.AdminNote)
	assertMoney(t, "withdrawable after fail", f.mustWallet(t, promoter.ID).WithdrawableBalance, "1000")
}

func TestWithdrawalInsufficientBalanceCreatesNothing(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	promoter := f.createPromoter(t, "short@example.com")
	f.credit(t, promoter.ID, "1000")

	_, err := f.withdraw.Create(context.Background(), promoter.ID, decimal.RequireFromString("1200"))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	var count int64
	require.NoError(t, f.db.Model(&models.WithdrawalRequest{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
	assertMoney(t, "withdrawable", f.mustWallet(t, promoter.ID).WithdrawableBalance, "1000")
	assert.Empty(t, f.notifier.statuses())
}

func TestWithdrawalCancelRestoresBalance(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "cancel@example.com")
	f.credit(t, promoter.ID, "1000")

	req := f.mustCreateWithdrawal(t, promoter.ID, "300")
	assertMoney(t, "withdrawable after create", f.mustWallet(t, promoter.ID).WithdrawableBalance, "700")

	cancelled, err := f.withdraw.Cancel(ctx, promoter.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusCancelled, cancelled.Status)
	assertMoney(t, "withdrawable after cancel", f.mustWallet(t, promoter.ID).WithdrawableBalance, "1000")

	_, err = f.withdraw.Cancel(ctx, promoter.ID, req.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWithdrawalCancelOtherPromoterForbidden(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	owner := f.createPromoter(t, "owner@example.com")
	other := f.createPromoter(t, "other@example.com")
	f.credit(t, owner.ID, "100")
	req := f.mustCreateWithdrawal(t, owner.ID, "50")

	_, err := f.withdraw.Cancel(context.Background(), other.ID, req.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.withdraw.Get(context.Background(), other.ID, req.ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := f.withdraw.Get(context.Background(), owner.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusPending, got.Status)
}

func TestWithdrawalTerminalStatesRejectEveryAction(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "terminal@example.com")
	f.credit(t, promoter.ID, "1000")

	completed := f.mustCreateWithdrawal(t, promoter.ID, "100")
	for _, step := range []func(context.Context, uint, uint, *string) (*models.WithdrawalRequest, error){
		f.withdraw.Approve, f.withdraw.MarkProcessing, f.withdraw.Complete,
	} {
		_, err := step(ctx, 1, completed.ID, nil)
		require.NoError(t, err)
	}
	failed := f.mustCreateWithdrawal(t, promoter.ID, "100")
	_, err := f.withdraw.Approve(ctx, 1, failed.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.MarkProcessing(ctx, 1, failed.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.Fail(ctx, 1, failed.ID, nil)
	require.NoError(t, err)
	rejected := f.mustCreateWithdrawal(t, promoter.ID, "100")
	_, err = f.withdraw.Reject(ctx, 1, rejected.ID, notePtr("duplicate"))
	require.NoError(t, err)
	cancelled := f.mustCreateWithdrawal(t, promoter.ID, "100")
	_, err = f.withdraw.Cancel(ctx, promoter.ID, cancelled.ID)
	require.NoError(t, err)

	adminActions := []string{
		constants.WithdrawActionApprove,
		constants.WithdrawActionReject,
		constants.WithdrawActionMarkProcessing,
		constants.WithdrawActionComplete,
		constants.WithdrawActionFail,
	}
	for _, req := range []*models.WithdrawalRequest{completed, failed, rejected, cancelled} {
		for _, action := range adminActions {
			_, err := f.withdraw.Transition(ctx, TransitionInput{
				WithdrawalID: req.ID,
				Action:       action,
				ActorType:    constants.ActorTypeAdmin,
				ActorID:      1,
			})
			require.ErrorIsf(t, err, ErrInvalidTransition, "withdrawal=%d action=%s", req.ID, action)
		}
		_, err := f.withdraw.Cancel(ctx, promoter.ID, req.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
		require.Empty(t, AvailableActions(mustReload(t, f, req.ID).Status))
	}

	wallet := f.mustWallet(t, promoter.ID)
	assertMoney(t, "withdrawable", wallet.WithdrawableBalance, "900")
	assertMoney(t, "withdrawn", wallet.TotalWithdrawn, "100")
	require.False(t, wallet.WithdrawableBalance.IsNegative())
}

func TestWithdrawalInvalidTransitionsFromLiveStates(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "live@example.com")
	f.credit(t, promoter.ID, "1000")

	req := f.mustCreateWithdrawal(t, promoter.ID, "100")
	_, err := f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.withdraw.Fail(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.Cancel(ctx, promoter.ID, req.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.withdraw.Reject(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.withdraw.Transition(ctx, TransitionInput{
		WithdrawalID: req.ID,
		Action:       constants.WithdrawActionApprove,
		ActorType:    constants.ActorTypePromoter,
		ActorID:      promoter.ID,
	})
	require.ErrorIs(t, err, ErrWithdrawActionInvalid)
	_, err = f.withdraw.Transition(ctx, TransitionInput{
		WithdrawalID: req.ID,
		Action:       "refund",
		ActorType:    constants.ActorTypeAdmin,
		ActorID:      1,
	})
	require.ErrorIs(t, err, ErrWithdrawActionInvalid)
}

func TestWithdrawalAdminNoteOverwriteAndAudit(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "note@example.com")
	f.credit(t, promoter.ID, "1000")
	req := f.mustCreateWithdrawal(t, promoter.ID, "200")

	approved, err := f.withdraw.Approve(ctx, 7, req.ID, notePtr("first review"))
	require.NoError(t, err)
	require.Equal(t, "first review", approved.AdminNote)

	processing, err := f.withdraw.MarkProcessing(ctx, 7, req.ID, notePtr("   "))
	require.NoError(t, err)
	require.Equal(t, "first review", processing.AdminNote)

	failed, err := f.withdraw.Fail(ctx, 8, req.ID, notePtr("iban rejected"))
	require.NoError(t, err)
	require.Equal(t, "iban rejected", failed.AdminNote)

	events, err := f.withdraw.ListEvents(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, "create", events[0].Action)
	require.Equal(t, constants.WithdrawActionApprove, events[1].Action)
	require.Equal(t, "first review", events[1].Note)
	require.Equal(t, uint(7), events[1].ActorID)
	require.Equal(t, constants.WithdrawStatusApproved, events[2].FromStatus)
	require.Equal(t, constants.WithdrawStatusProcessing, events[2].ToStatus)
	require.Equal(t, "", events[2].Note)
	require.Equal(t, "iban rejected", events[3].Note)
	require.Equal(t, constants.ActorTypeAdmin, events[3].ActorType)

	require.Equal(t, []string{
		constants.WithdrawStatusPending,
		constants.WithdrawStatusApproved,
		constants.WithdrawStatusProcessing,
		constants.WithdrawStatusFailed,
	}, f.notifier.statuses())
}

func TestWithdrawalCompleteRequiresPayoutConfirmation(t *testing.T) {
	gateway := &stubPayoutGateway{confirmed: false}
	f := setupLedgerFixture(t, gateway)
	ctx := context.Background()
	promoter := f.createPromoter(t, "payout@example.com")
	f.credit(t, promoter.ID, "400")
	req := f.mustCreateWithdrawal(t, promoter.ID, "400")

	_, err := f.withdraw.Complete(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, 0, gateway.calls)

	_, err = f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)

	_, err = f.withdraw.Complete(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrPayoutNotConfirmed)
	pending := mustReload(t, f, req.ID)
	require.Equal(t, constants.WithdrawStatusProcessing, pending.Status)
	require.Equal(t, "BANK-001", pending.PayoutRef)

	gateway.err = errors.New("gateway timeout")
	_, err = f.withdraw.Complete(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrPayoutNotConfirmed)

	gateway.err = nil
	gateway.confirmed = true
	done, err := f.withdraw.Complete(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusCompleted, done.Status)
	require.Equal(t, "BANK-001", done.PayoutRef)
	require.Equal(t, 3, gateway.calls)
}

func TestWithdrawalCreateValidation(t *testing.T) {
	cfg := newLedgerTestConfig()
	cfg.Ledger.MinWithdrawAmount = "10"
	f := setupLedgerFixtureWithConfig(t, cfg, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "valid@example.com")
	f.credit(t, promoter.ID, "100")

	_, err := f.withdraw.Create(ctx, promoter.ID, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.withdraw.Create(ctx, promoter.ID, decimal.RequireFromString("-5"))
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.withdraw.Create(ctx, promoter.ID, decimal.RequireFromString("9.99"))
	require.ErrorIs(t, err, ErrWithdrawAmountTooSmall)
	_, err = f.withdraw.Create(ctx, 9999, decimal.RequireFromString("10"))
	require.ErrorIs(t, err, ErrPromoterNotFound)

	require.NoError(t, f.promoters.UpdateStatus(promoter.ID, constants.PromoterStatusDisabled, promoter.UpdatedAt))
	_, err = f.withdraw.Create(ctx, promoter.ID, decimal.RequireFromString("10"))
	require.ErrorIs(t, err, ErrPromoterDisabled)
}

func TestWithdrawalCreateRejectsSubCentAmounts(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "cents@example.com")
	f.credit(t, promoter.ID, "0.30")

	for _, raw := range []string{"0.105", "0.001", "0.299"} {
		_, err := f.withdraw.Create(ctx, promoter.ID, decimal.RequireFromString(raw))
		require.ErrorIsf(t, err, ErrInvalidAmount, "amount=%s", raw)
	}
	var count int64
	require.NoError(t, f.db.Model(&models.WithdrawalRequest{}).Count(&count).Error)
	require.Equal(t, int64(0), count)

	req := f.mustCreateWithdrawal(t, promoter.ID, "0.1")
	f.mustCreateWithdrawal(t, promoter.ID, "0.200")
	assertMoney(t, "amount", req.Amount, "0.10")
	assertMoney(t, "withdrawable", f.mustWallet(t, promoter.ID).WithdrawableBalance, "0")

	_, err := f.withdraw.Create(ctx, promoter.ID, decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestWithdrawalFailRefusedWhilePayoutSettling(t *testing.T) {
	gateway := &stubPayoutGateway{ref: "BATCH-1", state: PayoutStatePending}
	f := setupLedgerFixture(t, gateway)
	ctx := context.Background()
	promoter := f.createPromoter(t, "settling@example.com")
	f.credit(t, promoter.ID, "1000")

	req := f.mustCreateWithdrawal(t, promoter.ID, "1000")
	_, err := f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)

	_, err = f.withdraw.Complete(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrPayoutNotConfirmed)
	require.Equal(t, "BATCH-1", mustReload(t, f, req.ID).PayoutRef)

	_, err = f.withdraw.Fail(ctx, 1, req.ID, notePtr("give up"))
	require.ErrorIs(t, err, ErrPayoutInFlight)
	reloaded := mustReload(t, f, req.ID)
	require.Equal(t, constants.WithdrawStatusProcessing, reloaded.Status)
	require.Equal(t, "", reloaded.AdminNote)
	assertMoney(t, "withdrawable while settling", f.mustWallet(t, promoter.ID).WithdrawableBalance, "0")

	_, err = f.withdraw.Create(ctx, promoter.ID, decimal.RequireFromString("1000"))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	gateway.statusErr = errors.New("gateway timeout")
	_, err = f.withdraw.Fail(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrPayoutInFlight)

	gateway.statusErr = nil
	gateway.state = PayoutStateSucceeded
	_, err = f.withdraw.Fail(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrPayoutInFlight)

	events, err := f.withdraw.ListEvents(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
}

func TestWithdrawalFailAllowedAfterPayoutDenied(t *testing.T) {
	gateway := &stubPayoutGateway{ref: "BATCH-2", state: PayoutStatePending}
	f := setupLedgerFixture(t, gateway)
	ctx := context.Background()
	promoter := f.createPromoter(t, "denied@example.com")
	f.credit(t, promoter.ID, "1000")

	req := f.mustCreateWithdrawal(t, promoter.ID, "1000")
	_, err := f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.Complete(ctx, 1, req.ID, nil)
	require.ErrorIs(t, err, ErrPayoutNotConfirmed)

	gateway.state = PayoutStateFailed
	failed, err := f.withdraw.Fail(ctx, 1, req.ID, notePtr("batch denied"))
	require.NoError(t, err)
	require.Equal(t, constants.WithdrawStatusFailed, failed.Status)
	require.Equal(t, "BATCH-2", failed.PayoutRef)
	require.Equal(t, 1, gateway.statusCalls)
	assertMoney(t, "withdrawable after fail", f.mustWallet(t, promoter.ID).WithdrawableBalance, "1000")
}

func TestWithdrawalFailWithoutSubmissionSkipsGateway(t *testing.T) {
	gateway := &stubPayoutGateway{state: PayoutStatePending}
	f := setupLedgerFixture(t, gateway)
	ctx := context.Background()
	promoter := f.createPromoter(t, "nosubmit@example.com")
	f.credit(t, promoter.ID, "100")

	req := f.mustCreateWithdrawal(t, promoter.ID, "100")
	_, err := f.withdraw.Approve(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.MarkProcessing(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	_, err = f.withdraw.Fail(ctx, 1, req.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 0, gateway.calls)
	require.Equal(t, 0, gateway.statusCalls)
}

func TestWithdrawalConcurrentApproveAndRejectOnlyOneApplies(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	promoter := f.createPromoter(t, "review.race@example.com")
	f.credit(t, promoter.ID, "500")
	req := f.mustCreateWithdrawal(t, promoter.ID, "500")

	steps := []func(context.Context, uint, uint, *string) (*models.WithdrawalRequest, error){
		f.withdraw.Approve, f.withdraw.Reject,
	}
	var wg sync.WaitGroup
	errs := make([]error, len(steps))
	start := make(chan struct{})
	for i, step := range steps {
		wg.Add(1)
		go func(idx int, step func(context.Context, uint, uint, *string) (*models.WithdrawalRequest, error)) {
			defer wg.Done()
			<-start
			_, errs[idx] = step(context.Background(), 1, req.ID, nil)
		}(i, step)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
	require.Equal(t, 1, succeeded)

	final := mustReload(t, f, req.ID)
	require.Contains(t, []string{constants.WithdrawStatusApproved, constants.WithdrawStatusRejected}, final.Status)
	events, err := f.withdraw.ListEvents(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "create", events[0].Action)
	require.Equal(t, final.Status, events[1].ToStatus)
}

func TestWithdrawalConcurrentCreateOnlyOneSucceeds(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	promoter := f.createPromoter(t, "race@example.com")
	f.credit(t, promoter.ID, "1000")

	const workers = 2
	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			_, errs[idx] = f.withdraw.Create(context.Background(), promoter.ID, decimal.RequireFromString("700"))
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrInsufficientBalance)
	}
	require.Equal(t, 1, succeeded)

	wallet := f.mustWallet(t, promoter.ID)
	assertMoney(t, "locked", wallet.Locked, "700")
	assertMoney(t, "withdrawable", wallet.WithdrawableBalance, "300")
}

func TestWithdrawalListScopesAndActions(t *testing.T) {
	f := setupLedgerFixture(t, nil)
	ctx := context.Background()
	alice := f.createPromoter(t, "alice@example.com")
	bob := f.createPromoter(t, "bob@example.com")
	f.credit(t, alice.ID, "1000")
	f.credit(t, bob.ID, "1000")

	a1 := f.mustCreateWithdrawal(t, alice.ID, "100")
	f.mustCreateWithdrawal(t, alice.ID, "300")
	f.mustCreateWithdrawal(t, bob.ID, "200")
	_, err := f.withdraw.Approve(ctx, 1, a1.ID, nil)
	require.NoError(t, err)

	items, total, err := f.withdraw.ListForPromoter(ctx, alice.ID, WithdrawalListQuery{Ordering: constants.WithdrawOrderingAmountDesc})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assertMoney(t, "first amount", items[0].Amount, "300")
	require.Equal(t, []string{constants.WithdrawActionCancel}, items[0].AvailableActions)
	require.Empty(t, items[1].AvailableActions)

	adminItems, total, err := f.withdraw.ListAdmin(ctx, AdminWithdrawalListQuery{Search: "bob@"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, bob.ID, adminItems[0].PromoterID)
	require.Equal(t, []string{constants.WithdrawActionApprove, constants.WithdrawActionReject}, adminItems[0].AvailableActions)

	approvedItems, _, err := f.withdraw.ListAdmin(ctx, AdminWithdrawalListQuery{Status: constants.WithdrawStatusApproved})
	require.NoError(t, err)
	require.Len(t, approvedItems, 1)
	require.Equal(t, []string{constants.WithdrawActionMarkProcessing}, approvedItems[0].AvailableActions)

	_, _, err = f.withdraw.ListAdmin(ctx, AdminWithdrawalListQuery{Status: "bogus"})
	require.ErrorIs(t, err, ErrBadRequest)
	_, _, err = f.withdraw.ListForPromoter(ctx, alice.ID, WithdrawalListQuery{Ordering: "-created"})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestWalletSummaryReportsPendingAndRecent(t *testing.T) {
	cfg := newLedgerTestConfig()
	cfg.Ledger.ConfirmDays = 7
	f := setupLedgerFixtureWithConfig(t, cfg, nil)
	ctx := context.Background()
	promoter := f.createPromoter(t, "summary@example.com")

	_, err := f.ledger.Record(ctx, RecordCommissionInput{
		PromoterID: promoter.ID,
		Amount:     decimal.RequireFromString("80"),
		Kind:       constants.CommissionKindNetworkReferral,
		OrderRef:   "ORD-1",
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.CommissionEntry{
		PromoterID: promoter.ID,
		Amount:     models.NewMoneyFromDecimal(decimal.RequireFromString("250")),
		Kind:       constants.CommissionKindDirectSale,
		Status:     constants.CommissionStatusCredited,
	}).Error)
	f.mustCreateWithdrawal(t, promoter.ID, "50")

	summary, err := f.wallet.Summary(ctx, promoter.ID)
	require.NoError(t, err)
	assertMoney(t, "earned", summary.TotalEarned, "250")
	assertMoney(t, "pending commission", summary.PendingCommission, "80")
	assertMoney(t, "withdrawable", summary.WithdrawableBalance, "200")
	assertMoney(t, "available", summary.AvailableBalance, "250")
	require.Equal(t, int64(1), summary.PendingWithdrawals)
	require.Len(t, summary.RecentCommissions, 2)
	require.Len(t, summary.RecentWithdrawals, 1)

	_, err = f.wallet.Summary(ctx, 4242)
	require.ErrorIs(t, err, ErrPromoterNotFound)
}

func mustReload(t *testing.T, f *ledgerFixture, id uint) *models.WithdrawalRequest {
	t.Helper()
	req, err := f.withdrawals.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, req)
	return req
}
