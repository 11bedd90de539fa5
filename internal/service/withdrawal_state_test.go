package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dujiao-next/ledger/internal/constants"
)

func TestAvailableActionsByStatus(t *testing.T) {
	cases := map[string][]string{
		constants.WithdrawStatusPending:    {constants.WithdrawActionApprove, constants.WithdrawActionReject},
		constants.WithdrawStatusApproved:   {constants.WithdrawActionMarkProcessing},
		constants.WithdrawStatusProcessing: {constants.WithdrawActionComplete, constants.WithdrawActionFail},
		constants.WithdrawStatusCompleted:  {},
		constants.WithdrawStatusFailed:     {},
		constants.WithdrawStatusRejected:   {},
		constants.WithdrawStatusCancelled:  {},
	}
	for status, want := range cases {
		got := AvailableActions(status)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("status %s: got=%v want=%v", status, got, want)
		}
		if IsTerminalWithdrawStatus(status) != (len(want) == 0) {
			t.Fatalf("status %s terminal mismatch", status)
		}
	}
	if got := PromoterActions(constants.WithdrawStatusPending); !reflect.DeepEqual(got, []string{constants.WithdrawActionCancel}) {
		t.Fatalf("unexpected promoter actions: %v", got)
	}
	if got := PromoterActions(constants.WithdrawStatusApproved); len(got) != 0 {
		t.Fatalf("approved request should not be cancellable: %v", got)
	}
}

func TestResolveWithdrawTransition(t *testing.T) {
	rule, err := resolveWithdrawTransition("mark_processing", constants.ActorTypeAdmin, constants.WithdrawStatusApproved)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rule.To != constants.WithdrawStatusProcessing {
		t.Fatalf("unexpected target: %s", rule.To)
	}
	if _, err := resolveWithdrawTransition(constants.WithdrawActionCancel, constants.ActorTypeAdmin, constants.WithdrawStatusPending); !errors.Is(err, ErrWithdrawActionInvalid) {
		t.Fatalf("admin must not cancel, got %v", err)
	}
	if _, err := resolveWithdrawTransition(constants.WithdrawActionApprove, constants.ActorTypeAdmin, constants.WithdrawStatusApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double approve must fail, got %v", err)
	}
}

func TestReleasesLock(t *testing.T) {
	cases := map[string]bool{
		constants.WithdrawStatusPending:    false,
		constants.WithdrawStatusApproved:   false,
		constants.WithdrawStatusProcessing: false,
		constants.WithdrawStatusCompleted:  false,
		constants.WithdrawStatusFailed:     true,
		constants.WithdrawStatusRejected:   true,
		constants.WithdrawStatusCancelled:  true,
	}
	for status, want := range cases {
		if got := releasesLock(status); got != want {
			t.Fatalf("status %s: got=%v want=%v", status, got, want)
		}
	}
}
