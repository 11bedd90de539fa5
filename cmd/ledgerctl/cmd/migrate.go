package cmd

import (
	"fmt"

	"github.com/dujiao-next/ledger/internal/models"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "数据库迁移",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "执行全部未应用的迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		if err := models.AutoMigrate(); err != nil {
			return err
		}
		fmt.Println("迁移完成")
		return nil
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "回滚最近一次迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		if err := models.RollbackLast(models.DB); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		fmt.Println("已回滚最近一次迁移")
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateRollbackCmd)
	rootCmd.AddCommand(migrateCmd)
}
