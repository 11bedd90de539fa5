package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	adminSubjectFmt = "admin:%d"
	rolePrefix      = "role:"
	roleAnchor      = "role:__anchor__"
)

// keyMatch2 让策略路径可以写 :id 占位
const ledgerRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable    = errors.New("authz service unavailable")
	ErrRoleRequired   = errors.New("role is required")
	ErrReservedRole   = errors.New("reserved role is not allowed")
	ErrActionRequired = errors.New("action is required")
	ErrAdminRequired  = errors.New("admin id is required")
	ErrBuiltinPolicy  = errors.New("builtin role policy cannot be revoked")
)

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

func (p Policy) key() string {
	return p.Subject + "|" + p.Object + "|" + p.Action
}

// Service 后台管理员授权服务，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer

	mu      sync.RWMutex
	builtin map[string]struct{}
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(ledgerRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	return &Service{enforcer: enforcer, builtin: map[string]struct{}{}}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceAdmin 判定管理员能否以 act 访问 obj
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(obj), NormalizeAction(act))
}

// EnsureRole 确保角色存在，返回规范化后的角色名
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", ErrReservedRole
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	exists, err := s.enforcer.HasNamedGroupingPolicy("g", normalized, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("check role failed: %w", err)
	}
	if exists {
		return normalized, nil
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// ListRoles 列出全部角色（不含锚点）
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	seen := make(map[string]struct{})
	for _, rule := range rules {
		for _, name := range rule {
			if isManagedRole(name) {
				seen[name] = struct{}{}
			}
		}
	}
	return sortedKeys(seen), nil
}

// GrantRolePolicy 为角色授予策略，角色不存在时自动创建
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return ErrActionRequired
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销角色策略，预置角色的种子策略不可撤销
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return ErrActionRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	policy := Policy{Subject: normalizedRole, Object: NormalizeObject(object), Action: normalizedAction}
	if s.isBuiltin(policy) {
		return ErrBuiltinPolicy
	}
	if _, err := s.enforcer.RemovePolicy(policy.Subject, policy.Object, policy.Action); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

// GetRolePolicies 查询角色直连策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalizedRole)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	return convertPolicies(rules), nil
}

// SetAdminRoles 覆盖设置管理员角色
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return ErrAdminRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		name, err := s.EnsureRole(role)
		if err != nil {
			return err
		}
		normalized = append(normalized, name)
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles failed: %w", err)
	}
	for _, role := range normalized {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign admin role failed: %w", err)
		}
	}
	return nil
}

// GetAdminRoles 查询管理员直接绑定的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, ErrAdminRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles failed: %w", err)
	}
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if isManagedRole(role) {
			seen[role] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// GetAdminPolicies 查询管理员生效策略（角色 + 直连）
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	roles, err := s.GetAdminRoles(adminID)
	if err != nil {
		return nil, err
	}
	subjects := append([]string{SubjectForAdmin(adminID)}, roles...)

	merged := map[string]Policy{}
	for _, subject := range subjects {
		rules, err := s.enforcer.GetFilteredPolicy(0, subject)
		if err != nil {
			return nil, fmt.Errorf("get policies for %s failed: %w", subject, err)
		}
		for _, item := range convertPolicies(rules) {
			merged[item.key()] = item
		}
	}

	result := make([]Policy, 0, len(merged))
	for _, item := range merged {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].key() < result[j].key()
	})
	return result, nil
}

func (s *Service) markBuiltin(policy Policy) {
	s.mu.Lock()
	s.builtin[policy.key()] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) isBuiltin(policy Policy) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.builtin[policy.key()]
	return ok
}

func isManagedRole(name string) bool {
	return strings.HasPrefix(name, rolePrefix) && name != roleAnchor
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

// SubjectForAdmin 生成管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf(adminSubjectFmt, adminID)
}

// NormalizeRole 统一角色名称，补齐 role: 前缀
func NormalizeRole(role string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	if !strings.HasPrefix(normalized, rolePrefix) {
		normalized = rolePrefix + normalized
	}
	if len(normalized) <= len(rolePrefix) {
		return "", ErrRoleRequired
	}
	return normalized, nil
}

// NormalizeObject 统一授权资源路径，去掉 /api/v1 前缀
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	switch {
	case normalized == apiV1Prefix:
		return "/"
	case strings.HasPrefix(normalized, apiV1Prefix+"/"):
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
