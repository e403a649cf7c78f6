package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

// ChoiceSource 用户保存的生效组织
type ChoiceSource interface {
	PersistedChoice(ctx context.Context, userID int64) (*int64, error)
}

// ScopeMiddleware 每个请求重新解析访问范围
// X-Active-Org 优先于保存的选择, 两者都只是候选, 由 Resolver 按当前成员关系校验
func ScopeMiddleware(resolver *scope.Resolver, choices ChoiceSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64(constants.CtxKeyUserID)
		if userID == 0 {
			utils.Error(c, pkgErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		ctx := c.Request.Context()

		requested, err := requestedOrg(c)
		if err != nil {
			utils.ErrorWithDetail(c, 400, "请求参数错误", err.Error())
			c.Abort()
			return
		}
		if requested == nil {
			if requested, err = choices.PersistedChoice(ctx, userID); err != nil {
				utils.Error(c, err)
				c.Abort()
				return
			}
		}

		s, err := resolver.Resolve(ctx, userID, c.GetString(constants.CtxKeyEmail), requested)
		if err != nil {
			utils.Error(c, err)
			c.Abort()
			return
		}

		c.Set(constants.CtxKeyScope, s)
		ctx = logger.WithFields(scope.WithScope(ctx, s), logger.ScopeFields(s)...)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireActiveOrg 没有任何组织的用户只能访问引导相关接口
func RequireActiveOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := scope.MustFromContext(c.Request.Context())
		if err != nil {
			utils.Error(c, err)
			c.Abort()
			return
		}
		if _, err := s.RequireActive(); err != nil {
			utils.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestedOrg(c *gin.Context) (*int64, error) {
	raw := c.GetHeader(constants.HeaderActiveOrg)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, constants.HeaderActiveOrg+" 必须为正整数")
	}
	return &id, nil
}
