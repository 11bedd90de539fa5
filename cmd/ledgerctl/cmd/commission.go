package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/provider"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/spf13/cobra"
)

var (
	commissionPromoterID uint
	commissionAmount     string
	commissionKind       string
	commissionOrderRef   string
	commissionReason     string
)

var commissionCmd = &cobra.Command{
	Use:   "commission",
	Short: "佣金账本维护",
}

var commissionRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "登记一笔佣金",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		amount, err := models.ParseMoney(commissionAmount)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		entry, err := c.LedgerService.Record(ctx, service.RecordCommissionInput{
			PromoterID: commissionPromoterID,
			Amount:     amount.Decimal,
			Kind:       commissionKind,
			OrderRef:   commissionOrderRef,
		})
		if err != nil {
			return err
		}
		return printJSON(entry)
	}),
}

var commissionCreditCmd = &cobra.Command{
	Use:   "credit <entry-id>",
	Short: "将待确认佣金入账",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			entry, err := c.LedgerService.Credit(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(entry)
		})(cmd, args)
	},
}

var commissionReverseCmd = &cobra.Command{
	Use:   "reverse <entry-id>",
	Short: "冲正佣金",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			entry, err := c.LedgerService.Reverse(ctx, id, commissionReason)
			if err != nil {
				return err
			}
			return printJSON(entry)
		})(cmd, args)
	},
}

var commissionSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "将确认期已到的佣金批量入账",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		count, err := c.LedgerService.CreditDue(ctx, timeNow())
		if err != nil {
			return err
		}
		fmt.Printf("已入账 %d 笔佣金\n", count)
		return nil
	}),
}

func init() {
	commissionRecordCmd.Flags().UintVar(&commissionPromoterID, "promoter", 0, "推广员ID")
	commissionRecordCmd.Flags().StringVar(&commissionAmount, "amount", "", "佣金金额")
	commissionRecordCmd.Flags().StringVar(&commissionKind, "kind", constants.CommissionKindDirectSale, "佣金类型 direct_sale/network_referral")
	commissionRecordCmd.Flags().StringVar(&commissionOrderRef, "order", "", "订单号")
	_ = commissionRecordCmd.MarkFlagRequired("promoter")
	_ = commissionRecordCmd.MarkFlagRequired("amount")

	commissionReverseCmd.Flags().StringVar(&commissionReason, "reason", "", "冲正原因")

	commissionCmd.AddCommand(commissionRecordCmd, commissionCreditCmd, commissionReverseCmd, commissionSweepCmd)
	rootCmd.AddCommand(commissionCmd)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id: %s", raw)
	}
	return uint(id), nil
}
