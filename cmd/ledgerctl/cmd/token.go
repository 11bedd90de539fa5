package cmd

import (
	"context"
	"time"

	"github.com/dujiao-next/ledger/internal/provider"

	"github.com/spf13/cobra"
)

var (
	tokenAdminID  uint
	tokenUsername string
	tokenSuper    bool
	tokenPromoter uint
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发测试与联调用令牌",
}

var tokenAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "签发后台管理员令牌",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		token, expiresAt, err := c.TokenService.GenerateAdminToken(tokenAdminID, tokenUsername, tokenSuper)
		if err != nil {
			return err
		}
		return printToken(token, expiresAt)
	}),
}

var tokenPromoterCmd = &cobra.Command{
	Use:   "promoter",
	Short: "签发推广员令牌",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		if _, err := c.PromoterService.Get(ctx, tokenPromoter); err != nil {
			return err
		}
		token, expiresAt, err := c.TokenService.GeneratePromoterToken(tokenPromoter)
		if err != nil {
			return err
		}
		return printToken(token, expiresAt)
	}),
}

func init() {
	tokenAdminCmd.Flags().UintVar(&tokenAdminID, "id", 0, "管理员ID")
	tokenAdminCmd.Flags().StringVar(&tokenUsername, "username", "", "管理员用户名")
	tokenAdminCmd.Flags().BoolVar(&tokenSuper, "super", false, "是否超级管理员")
	_ = tokenAdminCmd.MarkFlagRequired("id")

	tokenPromoterCmd.Flags().UintVar(&tokenPromoter, "promoter", 0, "推广员ID")
	_ = tokenPromoterCmd.MarkFlagRequired("promoter")

	tokenCmd.AddCommand(tokenAdminCmd, tokenPromoterCmd)
	rootCmd.AddCommand(tokenCmd)
}

func printToken(token string, expiresAt time.Time) error {
	return printJSON(map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
	})
}
