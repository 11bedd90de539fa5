package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：api 只跑 HTTP，worker 只跑队列消费与到期入账
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

// ParseMode 校验命令行传入的启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	}
	return "", fmt.Errorf("unknown mode %q, want all/api/worker", raw)
}

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐日志、关停超时与启动模式
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
