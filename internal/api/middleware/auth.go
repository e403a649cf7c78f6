package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/pkg/jwt"
	"buildbuddy-admin/pkg/constants"
	"buildbuddy-admin/pkg/utils"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.ErrorWithCode(c, 401, "缺少或错误的Authorization Header")
			c.Abort()
			return
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			utils.Error(c, err)
			c.Abort()
			return
		}

		// 必须是AccessToken
		if claims.Type != constants.JWTTypeAccess {
			utils.ErrorWithCode(c, 401, "无效的Token类型")
			c.Abort()
			return
		}

		c.Set(constants.CtxKeyUser, &dto.UserInfo{
			ID:          claims.UserID,
			Username:    claims.Username,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
			AuthType:    claims.AuthType,
		})
		c.Set(constants.CtxKeyUserID, claims.UserID)
		c.Set(constants.CtxKeyUsername, claims.Username)
		c.Set(constants.CtxKeyEmail, claims.Email)

		c.Next()
	}
}

// bearerToken 从 Header 读取 Token, SSE 连接无法设置 Header 时回退到 access_token 参数
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(constants.HeaderAuthorization)
	if header == "" {
		token := c.Query("access_token")
		return token, token != ""
	}
	if !strings.HasPrefix(header, constants.HeaderBearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, constants.HeaderBearerPrefix)
	return token, token != ""
}
