package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "promoter_manager",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/promoters", Action: "POST"},
				{Object: "/admin/promoters/:id/status", Action: "PATCH"},
			},
			Immutable: true,
		},
		{
			Role:     "withdrawal_reviewer",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/withdrawal-requests/:id/approve", Action: "POST"},
				{Object: "/admin/withdrawal-requests/:id/reject", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "finance",
			Inherits: []string{"withdrawal_reviewer"},
			Policies: []Policy{
				{Object: "/admin/withdrawal-requests/:id/processing", Action: "POST"},
				{Object: "/admin/withdrawal-requests/:id/complete", Action: "POST"},
				{Object: "/admin/withdrawal-requests/:id/fail", Action: "POST"},
				{Object: "/admin/commissions", Action: "POST"},
				{Object: "/admin/commissions/:id/credit", Action: "POST"},
				{Object: "/admin/commissions/:id/reverse", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
// Immutable 角色的种子策略会被登记，之后无法通过 RevokeRolePolicy 撤销
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("seed role %s failed: %w", seed.Role, err)
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return fmt.Errorf("seed parent role %s failed: %w", parent, err)
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, item := range seed.Policies {
			policy := Policy{Subject: role, Object: NormalizeObject(item.Object), Action: NormalizeAction(item.Action)}
			if policy.Action == "" {
				return ErrActionRequired
			}
			if _, err := s.enforcer.AddPolicy(policy.Subject, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if seed.Immutable {
				s.markBuiltin(policy)
			}
		}
	}
	return nil
}
