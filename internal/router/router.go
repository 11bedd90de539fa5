package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/authz"
	"github.com/dujiao-next/ledger/internal/cache"
	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"
	adminhandlers "github.com/dujiao-next/ledger/internal/http/handlers/admin"
	eventhandlers "github.com/dujiao-next/ledger/internal/http/handlers/events"
	publichandlers "github.com/dujiao-next/ledger/internal/http/handlers/public"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/metrics"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()
	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "route not found")
	})

	// 初始化 Handler（按推广员/后台/内部分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	eventHandler := eventhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ledger"
	}
	redisClient := cache.Client()
	withdrawRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:withdraw", redisPrefix),
		WindowSeconds: cfg.Security.WithdrawRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WithdrawRateLimit.MaxRequests,
		Message:       "too many withdrawal requests, retry in %d seconds",
	}
	orderEventRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:order_event", redisPrefix),
		WindowSeconds: cfg.Security.OrderEventRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.OrderEventRateLimit.MaxRequests,
		Message:       "too many events for this order, retry in %d seconds",
	}
	idempotencyTTL := time.Duration(cfg.Ledger.IdempotencyTTLSeconds) * time.Second

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(metrics.Middleware())
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, metrics.Handler())
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 推广员接口（需鉴权）
		promoter := apiV1.Group("")
		promoter.Use(PromoterJWTAuthMiddleware(cfg.PromoterJWT.SecretKey, c.TokenService, c.PromoterRepo))
		{
			promoter.GET("/wallet-summary", publicHandler.GetWalletSummary)
			promoter.POST("/withdrawals",
				RateLimitMiddleware(redisClient, withdrawRule, KeyByPromoter),
				IdempotencyMiddleware(idempotencyTTL),
				publicHandler.CreateWithdrawal,
			)
			promoter.GET("/withdrawals", publicHandler.ListWithdrawals)
			promoter.GET("/withdrawals/:id", publicHandler.GetWithdrawal)
			promoter.POST("/withdrawals/:id/cancel", publicHandler.CancelWithdrawal)
			promoter.GET("/commissions", publicHandler.ListCommissions)
		}

		// 内部接口（订单系统回调）
		internal := apiV1.Group("/internal")
		internal.Use(InternalSecretMiddleware(cfg.Internal.EventSecret))
		{
			internal.POST("/order-events",
				RateLimitMiddleware(redisClient, orderEventRule, KeyByIPAndJSONField("order_ref")),
				eventHandler.ReceiveOrderEvent,
			)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		authorized := admin.Use(AdminJWTAuthMiddleware(cfg.JWT.SecretKey, c.TokenService), AdminRBACMiddleware(c.AuthzService))
		{
			// 提现审核
			authorized.GET("/withdrawal-requests", adminHandler.ListWithdrawalRequests)
			authorized.GET("/withdrawal-requests/:id", adminHandler.GetWithdrawalRequest)
			authorized.POST("/withdrawal-requests/:id/approve", adminHandler.WithdrawalAction(constants.WithdrawActionApprove))
			authorized.POST("/withdrawal-requests/:id/reject", adminHandler.WithdrawalAction(constants.WithdrawActionReject))
			authorized.POST("/withdrawal-requests/:id/processing", adminHandler.WithdrawalAction(constants.WithdrawActionMarkProcessing))
			authorized.POST("/withdrawal-requests/:id/complete", adminHandler.WithdrawalAction(constants.WithdrawActionComplete))
			authorized.POST("/withdrawal-requests/:id/fail", adminHandler.WithdrawalAction(constants.WithdrawActionFail))

			// 推广员管理
			authorized.GET("/promoters", adminHandler.ListPromoters)
			authorized.POST("/promoters", adminHandler.CreatePromoter)
			authorized.GET("/promoters/:id/wallet", adminHandler.GetPromoterWallet)
			authorized.PATCH("/promoters/:id/status", adminHandler.UpdatePromoterStatus)

			// 佣金账本
			authorized.GET("/commissions", adminHandler.ListCommissions)
			authorized.POST("/commissions", adminHandler.RecordCommission)
			authorized.POST("/commissions/:id/credit", adminHandler.CreditCommission)
			authorized.POST("/commissions/:id/reverse", adminHandler.ReverseCommission)

			// 权限管理
			authorized.GET("/authz/me", adminHandler.GetAuthzMe)
			authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
			authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
			authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
			authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
		}
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if models.DB != nil {
			if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		ctx.JSON(code, gin.H{
			"status": status,
			"redis":  cache.Enabled(),
			"queue":  c.QueueClient.Enabled(),
		})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/authz/permissions/catalog" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
