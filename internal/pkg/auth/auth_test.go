package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowOrgAdminHasEverything(t *testing.T) {
	assert.True(t, Allow([]string{"org_admin"}, PermMemberManage))
	assert.True(t, Allow([]string{"org_admin"}, PermBudgetManage))
}

func TestAllowManager(t *testing.T) {
	roles := []string{"manager"}
	assert.True(t, Allow(roles, PermInviteCreate))
	assert.True(t, Allow(roles, PermPhaseManage))
	assert.True(t, Allow(roles, PermTimeLogApprove))
	assert.True(t, Allow(roles, PermBudgetView))
	assert.False(t, Allow(roles, PermBudgetManage))
	assert.False(t, Allow(roles, PermMemberManage))
}

func TestAllowWorker(t *testing.T) {
	roles := []string{"worker"}
	assert.True(t, Allow(roles, PermTaskUpdate))
	assert.True(t, Allow(roles, PermTimeLogCreate))
	assert.False(t, Allow(roles, PermTaskManage))
	assert.False(t, Allow(roles, PermTimeLogApprove))
	assert.False(t, Allow(roles, PermInviteCreate))
}

func TestAllowUnknownRole(t *testing.T) {
	assert.False(t, Allow([]string{"guest"}, PermProjectView))
	assert.False(t, Allow(nil, PermProjectView))
}

func TestMatchWildcardSegments(t *testing.T) {
	assert.True(t, match("project:*", "project:invite:create"))
	assert.True(t, match("project:*", "project:view"))
	assert.False(t, match("project:*", "project"))
	assert.False(t, match("project:view", "project:view:all"))
	assert.False(t, match("plan:task:update", "plan:task"))
	assert.True(t, match("*", "anything:at:all"))
}
