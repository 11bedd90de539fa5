package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dujiao-next/ledger/internal/provider"

	"github.com/spf13/cobra"
)

var (
	authzObject string
	authzAction string
	authzRoles  string
)

var authzCmd = &cobra.Command{
	Use:   "authz",
	Short: "后台权限维护",
}

var authzBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "初始化预置角色与默认策略",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
			return err
		}
		fmt.Println("预置角色已初始化")
		return nil
	}),
}

var authzRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "列出全部角色",
	RunE: withContainer(func(ctx context.Context, c *provider.Container) error {
		roles, err := c.AuthzService.ListRoles()
		if err != nil {
			return err
		}
		return printJSON(roles)
	}),
}

var authzPoliciesCmd = &cobra.Command{
	Use:   "policies <role>",
	Short: "查看角色策略",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			policies, err := c.AuthzService.GetRolePolicies(args[0])
			if err != nil {
				return err
			}
			return printJSON(policies)
		})(cmd, args)
	},
}

var authzGrantCmd = &cobra.Command{
	Use:   "grant <role>",
	Short: "为角色授予策略",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			return c.AuthzService.GrantRolePolicy(args[0], authzObject, authzAction)
		})(cmd, args)
	},
}

var authzRevokeCmd = &cobra.Command{
	Use:   "revoke <role>",
	Short: "撤销角色策略",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			return c.AuthzService.RevokeRolePolicy(args[0], authzObject, authzAction)
		})(cmd, args)
	},
}

var authzAssignCmd = &cobra.Command{
	Use:   "assign <admin-id>",
	Short: "设置管理员角色（逗号分隔，留空表示清空）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminID, err := parseID(args[0])
		if err != nil {
			return err
		}
		roles := splitRoles(authzRoles)
		return withContainer(func(ctx context.Context, c *provider.Container) error {
			if err := c.AuthzService.SetAdminRoles(adminID, roles); err != nil {
				return err
			}
			current, err := c.AuthzService.GetAdminRoles(adminID)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"admin_id": adminID, "roles": current})
		})(cmd, args)
	},
}

func init() {
	for _, c := range []*cobra.Command{authzGrantCmd, authzRevokeCmd} {
		c.Flags().StringVar(&authzObject, "object", "", "资源路径，例如 /admin/withdrawal-requests/:id/approve")
		c.Flags().StringVar(&authzAction, "action", "", "HTTP 方法")
		_ = c.MarkFlagRequired("object")
		_ = c.MarkFlagRequired("action")
	}
	authzAssignCmd.Flags().StringVar(&authzRoles, "roles", "", "角色列表，逗号分隔")

	authzCmd.AddCommand(authzBootstrapCmd, authzRolesCmd, authzPoliciesCmd, authzGrantCmd, authzRevokeCmd, authzAssignCmd)
	rootCmd.AddCommand(authzCmd)
}

func splitRoles(raw string) []string {
	roles := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if role := strings.TrimSpace(item); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
