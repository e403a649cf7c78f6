package auth

import "strings"

// Role 组织内置角色
type Role string

const (
	RoleOrgAdmin Role = "org_admin"
	RoleManager  Role = "manager"
	RoleWorker   Role = "worker"
)

// Permission 内置权限
type Permission string

const (
	PermOrgUpdate    Permission = "org:update"
	PermMemberView   Permission = "org:member:view"
	PermMemberManage Permission = "org:member:manage"

	PermProjectCreate Permission = "project:create"
	PermProjectUpdate Permission = "project:update"
	PermProjectDelete Permission = "project:delete"
	PermProjectView   Permission = "project:view"

	PermVendorManage     Permission = "project:vendor:manage"
	PermInviteCreate     Permission = "project:invite:create"
	PermInviteRevoke     Permission = "project:invite:revoke"
	PermAssignmentManage Permission = "project:assignment:manage"

	PermPhaseManage     Permission = "plan:phase:manage"
	PermTaskManage      Permission = "plan:task:manage"
	PermTaskUpdate      Permission = "plan:task:update"
	PermChecklistManage Permission = "plan:checklist:manage"
	PermChecklistCheck  Permission = "plan:checklist:check"

	PermBudgetView   Permission = "budget:view"
	PermBudgetManage Permission = "budget:manage"

	PermTimeLogCreate  Permission = "timelog:create"
	PermTimeLogView    Permission = "timelog:view"
	PermTimeLogApprove Permission = "timelog:approve"
	PermTimeLogReport  Permission = "timelog:report"

	// 为其他成员排班, 本人的排班不需要
	PermShiftManage Permission = "schedule:shift:manage"
)

// RolePermissions 每个角色拥有的权限集合
var RolePermissions = map[Role][]Permission{
	RoleOrgAdmin: {
		"*",
	},
	RoleManager: {
		"org:member:view",
		"project:*",
		"plan:*",
		"budget:view",
		"timelog:*",
		"schedule:*",
	},
	RoleWorker: {
		"org:member:view",
		"project:view",
		"plan:task:update",
		"plan:checklist:check",
		"timelog:create",
		"timelog:view",
	},
}

// Allow 判断一组角色是否包含所需权限，支持通配符
func Allow(roles []string, need Permission) bool {
	permissions := collectPermissions(roles)

	return len(permissions) > 0 && allow(permissions, need)
}

func collectPermissions(roles []string) []Permission {
	perms := make([]Permission, 0)
	for _, r := range roles {
		if ps, ok := RolePermissions[Role(r)]; ok {
			perms = append(perms, ps...)
		}
	}
	return perms
}

func allow(have []Permission, need Permission) bool {
	for _, p := range have {
		if match(p, need) {
			return true
		}
	}
	return false
}

// match 单条权限匹配, * 可以匹配剩余所有段
func match(p, need Permission) bool {
	if p == need || p == "*" {
		return true
	}

	reqParts := strings.Split(string(need), ":")
	allParts := strings.Split(string(p), ":")

	for i, part := range allParts {
		if part == "*" {
			return i < len(reqParts)
		}
		if i >= len(reqParts) || part != reqParts[i] {
			return false
		}
	}
	return len(allParts) == len(reqParts)
}
