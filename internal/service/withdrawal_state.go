package service

import (
	"strings"

	"github.com/dujiao-next/ledger/internal/constants"
)

// withdrawalTransition 提现状态流转定义
type withdrawalTransition struct {
	From  string
	Actor string
	To    string
}

// withdrawalTransitions 提现状态机，管理端可用动作同样由此表推导
var withdrawalTransitions = map[string]withdrawalTransition{
	constants.WithdrawActionCancel: {
		From:  constants.WithdrawStatusPending,
		Actor: constants.ActorTypePromoter,
		To:    constants.WithdrawStatusCancelled,
	},
	constants.WithdrawActionApprove: {
		From:  constants.WithdrawStatusPending,
		Actor: constants.ActorTypeAdmin,
		To:    constants.WithdrawStatusApproved,
	},
	constants.WithdrawActionReject: {
		From:  constants.WithdrawStatusPending,
		Actor: constants.ActorTypeAdmin,
		To:    constants.WithdrawStatusRejected,
	},
	constants.WithdrawActionMarkProcessing: {
		From:  constants.WithdrawStatusApproved,
		Actor: constants.ActorTypeAdmin,
		To:    constants.WithdrawStatusProcessing,
	},
	constants.WithdrawActionComplete: {
		From:  constants.WithdrawStatusProcessing,
		Actor: constants.ActorTypeAdmin,
		To:    constants.WithdrawStatusCompleted,
	},
	constants.WithdrawActionFail: {
		From:  constants.WithdrawStatusProcessing,
		Actor: constants.ActorTypeAdmin,
		To:    constants.WithdrawStatusFailed,
	},
}

// adminActionOrder 管理端动作的展示顺序
var adminActionOrder = []string{
	constants.WithdrawActionApprove,
	constants.WithdrawActionReject,
	constants.WithdrawActionMarkProcessing,
	constants.WithdrawActionComplete,
	constants.WithdrawActionFail,
}

// lockedWithdrawStatuses 占用可提现余额的状态
var lockedWithdrawStatuses = []string{
	constants.WithdrawStatusPending,
	constants.WithdrawStatusApproved,
	constants.WithdrawStatusProcessing,
}

// releasesLock 流转到该状态时锁定金额回到可提现余额
func releasesLock(status string) bool {
	switch status {
	case constants.WithdrawStatusCancelled, constants.WithdrawStatusRejected, constants.WithdrawStatusFailed:
		return true
	}
	return false
}

// resolveWithdrawTransition 校验动作并返回目标状态
func resolveWithdrawTransition(action, actor, current string) (withdrawalTransition, error) {
	rule, ok := withdrawalTransitions[normalizeWithdrawAction(action)]
	if !ok {
		return withdrawalTransition{}, ErrWithdrawActionInvalid
	}
	if rule.Actor != actor {
		return withdrawalTransition{}, ErrWithdrawActionInvalid
	}
	if rule.From != current {
		return withdrawalTransition{}, ErrInvalidTransition
	}
	return rule, nil
}

// AvailableActions 返回当前状态下管理端可执行的动作
func AvailableActions(status string) []string {
	actions := make([]string, 0, 2)
	for _, action := range adminActionOrder {
		if withdrawalTransitions[action].From == status {
			actions = append(actions, action)
		}
	}
	return actions
}

// PromoterActions 返回当前状态下推广员可执行的动作
func PromoterActions(status string) []string {
	if withdrawalTransitions[constants.WithdrawActionCancel].From == status {
		return []string{constants.WithdrawActionCancel}
	}
	return []string{}
}

// IsTerminalWithdrawStatus 判断是否为终态
func IsTerminalWithdrawStatus(status string) bool {
	for _, rule := range withdrawalTransitions {
		if rule.From == status {
			return false
		}
	}
	return true
}

// IsValidWithdrawStatus 判断提现状态是否合法
func IsValidWithdrawStatus(status string) bool {
	switch status {
	case constants.WithdrawStatusPending,
		constants.WithdrawStatusApproved,
		constants.WithdrawStatusProcessing,
		constants.WithdrawStatusCompleted,
		constants.WithdrawStatusFailed,
		constants.WithdrawStatusRejected,
		constants.WithdrawStatusCancelled:
		return true
	}
	return false
}

// IsValidWithdrawOrdering 判断排序参数是否合法
func IsValidWithdrawOrdering(ordering string) bool {
	switch ordering {
	case constants.WithdrawOrderingRequestedAtAsc,
		constants.WithdrawOrderingRequestedAtDesc,
		constants.WithdrawOrderingAmountAsc,
		constants.WithdrawOrderingAmountDesc:
		return true
	}
	return false
}

func normalizeWithdrawAction(action string) string {
	normalized := strings.ToLower(strings.TrimSpace(action))
	if normalized == "mark_processing" {
		return constants.WithdrawActionMarkProcessing
	}
	return normalized
}
