package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/withdrawal-requests/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/withdrawal-requests/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/withdrawal-requests/42", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/promoters", "GET"); err != nil {
		t.Fatalf("grant ops policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("finance", "/admin/commissions", "GET"); err != nil {
		t.Fatalf("grant finance policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:ops" {
		t.Fatalf("roles want [role:ops], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{"finance"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles want [role:finance], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/promoters", "GET")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, "/admin/commissions", "GET")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/withdrawal-requests/:id", want: "/admin/withdrawal-requests/:id"},
		{in: "/admin/withdrawal-requests/:id", want: "/admin/withdrawal-requests/:id"},
		{in: "admin/promoters", want: "/admin/promoters"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:readonly_auditor":    true,
		"role:promoter_manager":    true,
		"role:withdrawal_reviewer": true,
		"role:finance":             true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetAdminRoles(3, []string{"withdrawal_reviewer"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}
	cases := []struct {
		obj   string
		act   string
		allow bool
	}{
		{"/api/v1/admin/withdrawal-requests", "GET", true},
		{"/api/v1/admin/withdrawal-requests/5/approve", "POST", true},
		{"/api/v1/admin/withdrawal-requests/5/reject", "POST", true},
		{"/api/v1/admin/withdrawal-requests/5/complete", "POST", false},
		{"/api/v1/admin/commissions/5/reverse", "POST", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(3, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.act, tc.obj, err)
		}
		if allow != tc.allow {
			t.Fatalf("enforce %s %s: got=%v want=%v", tc.act, tc.obj, allow, tc.allow)
		}
	}

	if err := svc.SetAdminRoles(4, []string{"finance"}); err != nil {
		t.Fatalf("set finance role failed: %v", err)
	}
	for _, obj := range []string{
		"/admin/withdrawal-requests/5/approve",
		"/admin/withdrawal-requests/5/complete",
		"/admin/commissions/9/reverse",
	} {
		allow, err := svc.EnforceAdmin(4, obj, "POST")
		if err != nil {
			t.Fatalf("enforce finance failed: %v", err)
		}
		if !allow {
			t.Fatalf("expected finance to be allowed on %s", obj)
		}
	}
	allow, err := svc.EnforceAdmin(4, "/admin/promoters", "POST")
	if err != nil {
		t.Fatalf("enforce finance promoter create failed: %v", err)
	}
	if allow {
		t.Fatalf("finance must not create promoters")
	}
}

func TestRevokeBuiltinPolicyRefused(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	err := svc.RevokeRolePolicy("finance", "/api/v1/admin/withdrawal-requests/:id/complete", "post")
	if !errors.Is(err, ErrBuiltinPolicy) {
		t.Fatalf("revoke builtin policy want ErrBuiltinPolicy got %v", err)
	}

	if err := svc.GrantRolePolicy("finance", "/admin/promoters/:id/wallet", "GET"); err != nil {
		t.Fatalf("grant extra policy failed: %v", err)
	}
	if err := svc.RevokeRolePolicy("finance", "/admin/promoters/:id/wallet", "GET"); err != nil {
		t.Fatalf("revoke granted policy failed: %v", err)
	}
	policies, err := svc.GetRolePolicies("finance")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	for _, item := range policies {
		if item.Object == "/admin/promoters/:id/wallet" {
			t.Fatalf("granted policy should be gone, got %+v", policies)
		}
	}

	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap should be a no-op: %v", err)
	}
}

func TestEnsureRoleRejectsReservedAndEmpty(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.EnsureRole("  "); !errors.Is(err, ErrRoleRequired) {
		t.Fatalf("empty role want ErrRoleRequired got %v", err)
	}
	if _, err := svc.EnsureRole(roleAnchor); !errors.Is(err, ErrReservedRole) {
		t.Fatalf("anchor role want ErrReservedRole got %v", err)
	}
	role, err := svc.EnsureRole("risk review")
	if err != nil || role != "role:risk_review" {
		t.Fatalf("ensure role got %q err=%v", role, err)
	}
	var nilSvc *Service
	if _, err := nilSvc.EnforceAdmin(1, "/admin/promoters", "GET"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("nil service want ErrUnavailable got %v", err)
	}
}
