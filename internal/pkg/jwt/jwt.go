package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// UserClaims 用户Claims
type UserClaims struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AuthType    string `json:"auth_type"` // ldap or local
	Type        string `json:"type"`      // access or refresh
	jwt.RegisteredClaims
}

// Identity 签发Token所需的身份信息
type Identity struct {
	UserID      int64
	Username    string
	Email       string
	DisplayName string
	AuthType    string
}

// GenerateAccessToken 生成访问Token
func GenerateAccessToken(id Identity) (string, error) {
	cfg := config.GlobalConfig.Auth.JWT
	return generate(id, constants.JWTTypeAccess, cfg.Secret, time.Duration(cfg.AccessTokenExpire)*time.Second)
}

// GenerateRefreshToken 生成刷新Token
func GenerateRefreshToken(id Identity) (string, error) {
	cfg := config.GlobalConfig.Auth.JWT
	return generate(id, constants.JWTTypeRefresh, cfg.Secret, time.Duration(cfg.RefreshTokenExpire)*time.Second)
}

func generate(id Identity, tokenType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:      id.UserID,
		Username:    id.Username,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AuthType:    id.AuthType,
		Type:        tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 解析Token
func ParseToken(tokenString string) (*UserClaims, error) {
	cfg := config.GlobalConfig.Auth.JWT

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgErrors.ErrTokenExpired
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeUnauthorized, "解析Token失败", err)
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, pkgErrors.ErrInvalidToken
}

// ValidateToken 验证Token有效性
func ValidateToken(tokenString string) (*UserClaims, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	// 检查是否过期
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, pkgErrors.ErrTokenExpired
	}

	return claims, nil
}

// Identity 从Claims还原身份
func (c *UserClaims) Identity() Identity {
	return Identity{
		UserID:      c.UserID,
		Username:    c.Username,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		AuthType:    c.AuthType,
	}
}
