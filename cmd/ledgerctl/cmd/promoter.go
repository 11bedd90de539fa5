package cmd

import (
	"context"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/provider"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/spf13/cobra"
)

var (
	promoterName   string
	promoterEmail  string
	promoterTier   string
	listTier       string
	promoterSearch string
	promoterStatus string
	promoterPage   int
	promoterSize   int
)

var promoterCmd = &cobra.Command{
	Use:   "promoter",
	Short: "推广员维护",
}

var promoterCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "创建推广员",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		promoter, err := c.PromoterService.Create(ctx, service.CreatePromoterInput{
			DisplayName: promoterName,
			Email:       promoterEmail,
			Tier:        promoterTier,
		})
		if err != nil {
			return err
		}
		return printJSON(promoter)
	}),
}

var promoterListCmd = &cobra.Command{
	Use:   "list",
	Short: "查询推广员列表",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		rows, total, err := c.PromoterService.List(ctx, service.PromoterListQuery{
			Page:     promoterPage,
			PageSize: promoterSize,
			Search:   promoterSearch,
			Tier:     listTier,
			Status:   promoterStatus,
		})
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"total": total, "items": rows})
	}),
}

func init() {
	promoterCreateCmd.Flags().StringVar(&promoterName, "name", "", "显示名称")
	promoterCreateCmd.Flags().StringVar(&promoterEmail, "email", "", "联系邮箱")
	promoterCreateCmd.Flags().StringVar(&promoterTier, "tier", constants.PromoterTierUnpaid, "等级 paid/unpaid")
	_ = promoterCreateCmd.MarkFlagRequired("name")
	_ = promoterCreateCmd.MarkFlagRequired("email")

	promoterListCmd.Flags().StringVar(&promoterSearch, "search", "", "按名称或邮箱搜索")
	promoterListCmd.Flags().StringVar(&listTier, "tier", "", "按等级过滤")
	promoterListCmd.Flags().StringVar(&promoterStatus, "status", "", "按状态过滤")
	promoterListCmd.Flags().IntVar(&promoterPage, "page", 1, "页码")
	promoterListCmd.Flags().IntVar(&promoterSize, "page-size", 20, "每页条数")

	promoterCmd.AddCommand(promoterCreateCmd, promoterListCmd)
	rootCmd.AddCommand(promoterCmd)
}
