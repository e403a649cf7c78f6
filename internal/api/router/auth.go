package router

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/pkg/auth"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

// PermWrapper 在进入 handler 前检查生效组织中的角色
// 项目级的所属组织/参与方判断仍由 service 完成
func PermWrapper(handler gin.HandlerFunc, permission auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := scope.MustFromContext(c.Request.Context())
		if err != nil {
			utils.Error(c, err)
			return
		}
		if _, err := s.RequireActive(); err != nil {
			utils.Error(c, err)
			return
		}
		if !auth.Allow([]string{s.Role()}, permission) {
			utils.Error(c, pkgErrors.ErrAccessDenied)
			return
		}
		handler(c)
	}
}
