package admin

import (
	"net/url"
	"strings"

	"github.com/dujiao-next/ledger/internal/authz"
	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/logger"

	"github.com/gin-gonic/gin"
)

var authzErrorRules = []handlershared.MappedError{
	{Target: authz.ErrBuiltinPolicy, Code: response.CodeConflict, Msg: "builtin role policy cannot be revoked"},
	{Target: authz.ErrUnavailable, Code: response.CodeServiceUnavailable, Msg: "authz unavailable"},
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 获取当前管理员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}

	response.Success(c, gin.H{
		"admin_id": adminID,
		"username": currentAdminName(c),
		"is_super": currentAdminIsSuper(c),
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	logger.Infow("admin_authz_policy_granted",
		"operator", currentAdminName(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		handlershared.RespondMappedError(c, err, authzErrorRules, response.CodeBadRequest, "bad request")
		return
	}
	logger.Infow("admin_authz_policy_revoked",
		"operator", currentAdminName(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// GetAuthzAdminRoles 获取管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "authz fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 设置管理员角色（管理员账号由外部身份系统维护）
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	logger.Infow("admin_authz_admin_roles_updated",
		"operator", currentAdminName(c),
		"target_admin_id", adminID,
		"roles", req.Roles,
	)
	response.Success(c, nil)
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
