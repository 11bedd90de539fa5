package provider

import (
	"strings"

	"github.com/dujiao-next/ledger/internal/authz"
	"github.com/dujiao-next/ledger/internal/cache"
	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/payout/paypal"
	"github.com/dujiao-next/ledger/internal/queue"
	"github.com/dujiao-next/ledger/internal/repository"
	"github.com/dujiao-next/ledger/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PromoterRepo   repository.PromoterRepository
	CommissionRepo repository.CommissionRepository
	WithdrawalRepo repository.WithdrawalRepository

	// Services
	AuthzService      *authz.Service
	TokenService      *service.TokenService
	PromoterService   *service.PromoterService
	LedgerService     *service.LedgerService
	WalletService     *service.WalletService
	WithdrawalService *service.WithdrawalService
	OrderEventService *service.OrderEventService
	PayoutGateway     service.PayoutGateway
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时返回禁用态客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化 Services
	c.initServices(models.DB)

	return c
}

// NewContainerWithDB 使用指定数据库初始化容器（测试与运维命令使用）
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, payout service.PayoutGateway) *Container {
	queueClient, _ := queue.NewClient(nil)
	c := &Container{
		Config:        cfg,
		QueueClient:   queueClient,
		PayoutGateway: payout,
	}
	c.initRepositories(db)
	c.initServices(db)
	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.PromoterRepo = repository.NewPromoterRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	if c.PayoutGateway == nil {
		c.PayoutGateway = buildPayoutGateway(c.Config)
	}
	c.TokenService = service.NewTokenService(c.Config)
	c.PromoterService = service.NewPromoterService(c.PromoterRepo)
	c.LedgerService = service.NewLedgerService(c.Config, c.PromoterRepo, c.CommissionRepo, c.WithdrawalRepo)
	c.WalletService = service.NewWalletService(c.PromoterRepo, c.CommissionRepo, c.WithdrawalRepo)
	c.WithdrawalService = service.NewWithdrawalService(c.Config, c.PromoterRepo, c.CommissionRepo, c.WithdrawalRepo, c.PayoutGateway, c.QueueClient)
	c.OrderEventService = service.NewOrderEventService(c.Config, c.LedgerService, c.QueueClient)
}

// Close 释放容器持有的外部连接
func (c *Container) Close() error {
	if c == nil || c.QueueClient == nil {
		return nil
	}
	return c.QueueClient.Close()
}

// buildPayoutGateway 按配置选择打款渠道，配置无效时回退人工渠道
func buildPayoutGateway(cfg *config.Config) service.PayoutGateway {
	if cfg == nil || strings.ToLower(strings.TrimSpace(cfg.Payout.Channel)) != paypal.Channel {
		return service.NewManualPayoutGateway()
	}
	gateway, err := paypal.NewGateway(paypal.FromAppConfig(cfg.Payout.PayPal), nil)
	if err != nil {
		logger.Errorw("provider_paypal_payout_invalid", "error", err)
		return service.NewManualPayoutGateway()
	}
	return gateway
}
