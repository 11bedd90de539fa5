package models

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations 版本化迁移列表，只允许追加
var migrations = []*gormigrate.Migration{
	{
		ID: "202610010001_create_ledger_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&Promoter{},
				&CommissionEntry{},
				&WithdrawalRequest{},
				&WithdrawalEvent{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&WithdrawalEvent{},
				&WithdrawalRequest{},
				&CommissionEntry{},
				&Promoter{},
			)
		},
	},
	{
		ID: "202610080001_withdrawal_status_requested_at_index",
		Migrate: func(tx *gorm.DB) error {
			if tx.Migrator().HasIndex(&WithdrawalRequest{}, "idx_withdrawal_promoter_status") {
				return nil
			}
			return tx.Exec("CREATE INDEX idx_withdrawal_promoter_status ON withdrawal_requests (promoter_id, status)").Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropIndex(&WithdrawalRequest{}, "idx_withdrawal_promoter_status")
		},
	},
	{
		ID: "202610160001_commission_reversal_requested_at",
		Migrate: func(tx *gorm.DB) error {
			if tx.Migrator().HasColumn(&CommissionEntry{}, "ReversalRequestedAt") {
				return nil
			}
			if err := tx.Migrator().AddColumn(&CommissionEntry{}, "ReversalRequestedAt"); err != nil {
				return err
			}
			return tx.Migrator().CreateIndex(&CommissionEntry{}, "ReversalRequestedAt")
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropColumn(&CommissionEntry{}, "ReversalRequestedAt")
		},
	},
}

// Migrate 执行全部未应用的迁移
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations)
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RollbackLast 回滚最近一次迁移
func RollbackLast(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations)
	return m.RollbackLast()
}

// AutoMigrate 对全局连接执行迁移
func AutoMigrate() error {
	return Migrate(DB)
}
