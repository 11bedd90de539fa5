package service

import (
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// PromoterClaims 推广员令牌声明
type PromoterClaims struct {
	PromoterID uint `json:"promoter_id"`
	jwt.RegisteredClaims
}

// AdminClaims 管理员令牌声明
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// TokenService 令牌校验服务；令牌由外部认证系统使用共享密钥签发
type TokenService struct {
	admin    config.JWTConfig
	promoter config.JWTConfig
}

// NewTokenService 创建令牌服务
func NewTokenService(cfg *config.Config) *TokenService {
	if cfg == nil {
		return &TokenService{}
	}
	return &TokenService{admin: cfg.JWT, promoter: cfg.PromoterJWT}
}

// GeneratePromoterToken 签发推广员令牌（供运维命令与测试使用）
func (s *TokenService) GeneratePromoterToken(promoterID uint) (string, time.Time, error) {
	expiresAt := time.Now().Add(expireDuration(s.promoter))
	claims := PromoterClaims{
		PromoterID:       promoterID,
		RegisteredClaims: registeredClaims(s.promoter, expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.promoter.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateAdminToken 签发管理员令牌（供运维命令与测试使用）
func (s *TokenService) GenerateAdminToken(adminID uint, username string, isSuper bool) (string, time.Time, error) {
	expiresAt := time.Now().Add(expireDuration(s.admin))
	claims := AdminClaims{
		AdminID:          adminID,
		Username:         strings.TrimSpace(username),
		IsSuper:          isSuper,
		RegisteredClaims: registeredClaims(s.admin, expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.admin.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParsePromoterToken 解析推广员令牌
func (s *TokenService) ParsePromoterToken(tokenString string) (*PromoterClaims, error) {
	claims := &PromoterClaims{}
	if err := parseToken(tokenString, s.promoter, claims); err != nil {
		return nil, err
	}
	if claims.PromoterID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAdminToken 解析管理员令牌
func (s *TokenService) ParseAdminToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parseToken(tokenString, s.admin, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseToken(tokenString string, cfg config.JWTConfig, claims jwt.Claims) error {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.SecretKey), nil
	})
	if err != nil || token == nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func registeredClaims(cfg config.JWTConfig, expiresAt time.Time) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    strings.TrimSpace(cfg.Issuer),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func expireDuration(cfg config.JWTConfig) time.Duration {
	if cfg.ExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(cfg.ExpireHours) * time.Hour
}
