package cmd

import (
	"context"
	"time"

	"github.com/dujiao-next/ledger/internal/provider"

	"github.com/spf13/cobra"
)

var timeNow = time.Now

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "钱包查询",
}

var walletShowCmd = &cobra.Command{
	Use:   "show <promoter-id>",
	Short: "查看推广员钱包概览",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			summary, err := c.WalletService.Summary(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(summary)
		})(cmd, args)
	},
}

var withdrawalCmd = &cobra.Command{
	Use:   "withdrawal",
	Short: "提现申请查询",
}

var withdrawalEventsCmd = &cobra.Command{
	Use:   "events <withdrawal-id>",
	Short: "查看提现申请的流转与备注记录",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			row, err := c.WithdrawalService.GetAdmin(ctx, id)
			if err != nil {
				return err
			}
			events, err := c.WithdrawalService.ListEvents(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"withdrawal": row, "events": events})
		})(cmd, args)
	},
}

func init() {
	walletCmd.AddCommand(walletShowCmd)
	withdrawalCmd.AddCommand(withdrawalEventsCmd)
	rootCmd.AddCommand(walletCmd, withdrawalCmd)
}
