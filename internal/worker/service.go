package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultConfirmInterval = time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.LedgerService != nil {
		interval := confirmInterval(s.consumer)
		go runConfirmLoop(ctx, interval, func(now time.Time) {
			s.consumer.scheduleSweep(ctx, now, interval)
		})
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// ConfirmService 队列未启用时单独运行的佣金到期入账服务
type ConfirmService struct {
	consumer *Consumer
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewConfirmService 创建佣金到期入账服务
func NewConfirmService(consumer *Consumer) *ConfirmService {
	return &ConfirmService{
		consumer: consumer,
		interval: confirmInterval(consumer),
		stop:     make(chan struct{}),
	}
}

// Name 服务名称
func (s *ConfirmService) Name() string {
	return "commission_confirm"
}

// Start 启动服务，阻塞至上下文结束
func (s *ConfirmService) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("confirm service not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	runConfirmLoop(ctx, s.interval, func(now time.Time) {
		s.consumer.confirmDue(ctx, now)
	})
	return nil
}

// Stop 停止服务
func (s *ConfirmService) Stop(ctx context.Context) error {
	if s == nil || s.stop == nil {
		return nil
	}
	s.once.Do(func() { close(s.stop) })
	return nil
}

func confirmInterval(consumer *Consumer) time.Duration {
	if consumer == nil || consumer.Container == nil || consumer.Config == nil {
		return defaultConfirmInterval
	}
	if seconds := consumer.Config.Ledger.ConfirmIntervalSeconds; seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultConfirmInterval
}

func runConfirmLoop(ctx context.Context, interval time.Duration, tick func(now time.Time)) {
	if tick == nil {
		return
	}
	if interval <= 0 {
		interval = defaultConfirmInterval
	}
	tick(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(time.Now())
		}
	}
}
