package router

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/authz"
	"github.com/dujiao-next/ledger/internal/cache"
	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/repository"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = constants.ContextKeyRequestID
const requestIDHeader = "X-Request-ID"
const adminIsSuperContextKey = constants.ContextKeyAdminSuper
const eventSecretHeader = "X-Ledger-Event-Secret"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-CSRF-Token",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// bearerToken 解析 Authorization 头，失败时已写入响应
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "authorization header missing")
		c.Abort()
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		response.Unauthorized(c, "authorization header invalid")
		c.Abort()
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AdminJWTAuthMiddleware 管理员 JWT 鉴权中间件
func AdminJWTAuthMiddleware(secretKey string, tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || tokens == nil {
			response.Unauthorized(c, "jwt secret missing")
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := tokens.ParseAdminToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "token invalid")
			c.Abort()
			return
		}
		c.Set(constants.ContextKeyAdminID, claims.AdminID)
		c.Set(constants.ContextKeyAdminName, claims.Username)
		c.Set(adminIsSuperContextKey, claims.IsSuper)
		c.Next()
	}
}

// PromoterJWTAuthMiddleware 推广员 JWT 鉴权中间件，推广员档案状态优先读缓存
func PromoterJWTAuthMiddleware(secretKey string, tokens *service.TokenService, promoterRepo repository.PromoterRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || tokens == nil || promoterRepo == nil {
			response.Unauthorized(c, "jwt secret missing")
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := tokens.ParsePromoterToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "token invalid")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		cached, hit, cacheErr := cache.GetPromoterState(ctx, claims.PromoterID)
		if cacheErr != nil {
			log.Warnw("promoter_state_cache_get_failed", "promoter_id", claims.PromoterID, "error", cacheErr)
		} else if hit && cached != nil {
			c.Set(constants.ContextKeyPromoterID, claims.PromoterID)
			c.Next()
			return
		}

		promoter, err := promoterRepo.WithContext(ctx).GetByID(claims.PromoterID)
		if err != nil {
			log.Errorw("promoter_auth_lookup_failed", "promoter_id", claims.PromoterID, "error", err)
			response.Error(c, response.CodeServiceUnavailable, "storage unavailable")
			c.Abort()
			return
		}
		if promoter == nil {
			response.Unauthorized(c, "token invalid")
			c.Abort()
			return
		}
		if err := cache.SetPromoterState(ctx, cache.BuildPromoterState(promoter)); err != nil {
			log.Warnw("promoter_state_cache_set_failed", "promoter_id", promoter.ID, "error", err)
		}

		c.Set(constants.ContextKeyPromoterID, promoter.ID)
		c.Next()
	}
}

// InternalSecretMiddleware 内部事件接口共享密钥校验
func InternalSecretMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		provided := []byte(strings.TrimSpace(c.GetHeader(eventSecretHeader)))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			logger.FromContext(c.Request.Context()).Warnw("internal_event_secret_rejected", "client_ip", c.ClientIP())
			response.Unauthorized(c, "event secret invalid")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		if isSuper, ok := c.Get(adminIsSuperContextKey); ok {
			if superValue, typeOK := isSuper.(bool); typeOK && superValue {
				c.Next()
				return
			}
		}

		adminIDRaw, exists := c.Get(constants.ContextKeyAdminID)
		if !exists {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		var adminID uint
		switch value := adminIDRaw.(type) {
		case uint:
			adminID = value
		case int:
			if value > 0 {
				adminID = uint(value)
			}
		case float64:
			if value > 0 {
				adminID = uint(value)
			}
		}
		if adminID == 0 {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}
