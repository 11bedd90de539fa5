package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/provider"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	cmdTimeout time.Duration
)

// rootCmd 运维命令入口
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "推广佣金账本运维工具",
	Long: `推广佣金账本的命令行运维工具。
支持数据库迁移、推广员与佣金维护、钱包查询、提现流转记录查看、令牌签发以及后台权限初始化。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径（默认按 config.yml 搜索）")
	rootCmd.PersistentFlags().DurationVar(&cmdTimeout, "timeout", 30*time.Second, "单条命令超时时间")
}

// loadConfig 加载配置并初始化日志与数据库
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	return cfg, nil
}

// openContainer 构建不依赖队列的服务容器
func openContainer() (*provider.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return provider.NewContainerWithDB(cfg, models.DB, nil), nil
}

// withContainer 在超时上下文中执行命令
func withContainer(run func(ctx context.Context, c *provider.Container) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := openContainer()
		if err != nil {
			return err
		}
		defer c.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		return run(ctx, c)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
