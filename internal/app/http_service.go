package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/logger"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPService 账本 HTTP API 服务
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 按 server 配置创建 HTTP 服务，超时未配置时使用默认值
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			ReadTimeout:       secondsOr(cfg.ReadTimeoutSec, defaultReadTimeout),
			WriteTimeout:      secondsOr(cfg.WriteTimeoutSec, defaultWriteTimeout),
			IdleTimeout:       secondsOr(cfg.IdleTimeoutSec, defaultIdleTimeout),
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "http"
}

// Start 监听并阻塞直到 Stop 被调用
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *HTTPService) serve(ctx context.Context, ln net.Listener) error {
	logger.FromContext(ctx).Infow("http_server_listening", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 等待进行中的请求结束后关闭
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func secondsOr(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}
