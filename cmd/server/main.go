package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dujiao-next/ledger/internal/app"
	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiBlue      = "\033[34m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	checkSecret(cfg.Server.Mode, "JWT secret", cfg.JWT.SecretKey)
	checkSecret(cfg.Server.Mode, "推广员 JWT secret", cfg.PromoterJWT.SecretKey)
	checkSecret(cfg.Server.Mode, "订单事件 secret", cfg.Internal.EventSecret)

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()
	runMode, err := app.ParseMode(mode)
	if err != nil {
		stdLog.Fatalf("启动参数错误: %v", err)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    runMode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║                   🚀 Dujiao-Next Ledger API 启动中                   ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "推广佣金账本 & 提现审核服务" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Modes" + ansiReset)
	fmt.Println(ansiBlue + "• all:     HTTP API + 队列消费 + 佣金到期入账" + ansiReset)
	fmt.Println(ansiBlue + "• api:     仅 HTTP API" + ansiReset)
	fmt.Println(ansiBlue + "• worker:  仅队列消费与佣金到期入账" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

// checkSecret 生产环境拒绝弱密钥，其余环境仅告警
func checkSecret(mode, name, secret string) {
	stdLog := logger.StdLogger()
	if !isWeakSecret(secret) {
		return
	}
	if mode == "release" {
		stdLog.Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
	}
	stdLog.Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", name)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
