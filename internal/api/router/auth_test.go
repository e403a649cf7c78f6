package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/pkg/auth"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

func callWithRole(t *testing.T, s *scope.Scope, perm auth.Permission) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if s != nil {
			c.Request = c.Request.WithContext(scope.WithScope(c.Request.Context(), s))
		}
	})
	r.POST("/", PermWrapper(func(c *gin.Context) { utils.Success(c, nil) }, perm))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func scopeWithRole(role string) *scope.Scope {
	return &scope.Scope{
		UserID:      1,
		Memberships: []scope.Membership{{OrgID: 10, Role: role}},
		ActiveOrgID: 10,
		HasActive:   true,
	}
}

func TestPermWrapper(t *testing.T) {
	assert.Equal(t, pkgErrors.CodeSuccess, callWithRole(t, scopeWithRole("org_admin"), auth.PermProjectCreate))
	assert.Equal(t, pkgErrors.CodeSuccess, callWithRole(t, scopeWithRole("manager"), auth.PermProjectCreate))
	assert.Equal(t, pkgErrors.CodeForbidden, callWithRole(t, scopeWithRole("worker"), auth.PermProjectCreate))
	assert.Equal(t, pkgErrors.CodeForbidden, callWithRole(t, scopeWithRole("manager"), auth.PermBudgetManage))
}

func TestPermWrapperWithoutOrg(t *testing.T) {
	assert.Equal(t, pkgErrors.CodeNeedsSetup, callWithRole(t, &scope.Scope{UserID: 1}, auth.PermProjectCreate))
	assert.Equal(t, pkgErrors.CodeUnauthorized, callWithRole(t, nil, auth.PermProjectCreate))
}
