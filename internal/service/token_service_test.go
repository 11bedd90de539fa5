package service

import (
	"errors"
	"testing"

	"github.com/dujiao-next/ledger/internal/config"
)

func newTokenTestService(adminSecret, promoterSecret string) *TokenService {
	return NewTokenService(&config.Config{
		JWT:         config.JWTConfig{SecretKey: adminSecret, ExpireHours: 1, Issuer: "ledger-admin"},
		PromoterJWT: config.JWTConfig{SecretKey: promoterSecret, ExpireHours: 1},
	})
}

func TestTokenServicePromoterRoundTrip(t *testing.T) {
	svc := newTokenTestService("admin-secret-0123456789", "promoter-secret-0123456789")
	token, expiresAt, err := svc.GeneratePromoterToken(42)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatalf("expected expiry")
	}
	claims, err := svc.ParsePromoterToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.PromoterID != 42 {
		t.Fatalf("unexpected promoter id: %d", claims.PromoterID)
	}
	if _, err := svc.ParseAdminToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("promoter token must not pass admin parsing, got %v", err)
	}
}

func TestTokenServiceAdminRoundTrip(t *testing.T) {
	svc := newTokenTestService("admin-secret-0123456789", "promoter-secret-0123456789")
	token, _, err := svc.GenerateAdminToken(3, " finance ", false)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	claims, err := svc.ParseAdminToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.AdminID != 3 || claims.Username != "finance" || claims.IsSuper {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	other := newTokenTestService("another-admin-secret-000", "promoter-secret-0123456789")
	if _, err := other.ParseAdminToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	wrongIssuer := NewTokenService(&config.Config{
		JWT: config.JWTConfig{SecretKey: "admin-secret-0123456789", ExpireHours: 1, Issuer: "someone-else"},
	})
	if _, err := wrongIssuer.ParseAdminToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for issuer mismatch, got %v", err)
	}
	if _, err := svc.ParseAdminToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
