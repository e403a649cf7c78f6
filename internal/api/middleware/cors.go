package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/pkg/constants"
)

// CORSMiddleware 跨域, 未配置来源时允许全部
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderAuthorization, constants.HeaderActiveOrg, constants.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", constants.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
