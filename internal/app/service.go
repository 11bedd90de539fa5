package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可独立启停的进程内服务（HTTP、队列消费、到期入账）
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器
type Runner struct {
	services []Service
	onStop   func() error
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}

	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

type serviceExit struct {
	name string
	err  error
}

// Run 并发启动全部服务，任一服务退出或 ctx 取消后按启动逆序关停
// 关停不等待 Start 返回，asynq 的 Run 只在收到进程信号时才退出
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for i, svc := range r.services {
		if svc == nil {
			return fmt.Errorf("service #%d is nil", i)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	exits := make(chan serviceExit, len(r.services))
	for _, svc := range r.services {
		go func() {
			log.Infow("service_start", "service", svc.Name())
			err := svc.Start(runCtx)
			log.Infow("service_exit", "service", svc.Name(), "error", err)
			exits <- serviceExit{name: svc.Name(), err: err}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Infow("runner_shutdown_requested", "cause", context.Cause(ctx))
	case exit := <-exits:
		if exit.err != nil {
			runErr = fmt.Errorf("%s: %w", exit.name, exit.err)
		}
	}
	cancel()

	if err := r.shutdown(stopTimeout); err != nil {
		log.Errorw("runner_shutdown_failed", "error", err)
	}
	return runErr
}

func (r *Runner) shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if err := svc.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
		}
	}
	if r.onStop != nil {
		if err := r.onStop(); err != nil {
			errs = append(errs, fmt.Errorf("cleanup: %w", err))
		}
	}
	return errors.Join(errs...)
}
