package logger

import (
	"context"

	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
)

type fieldsKey struct{}

// WithFields 把请求级字段挂到 context 上, 与已有字段合并
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	prev := Fields(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields context 上累积的请求级字段
func Fields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}

// Ctx 在 base 上附加请求级字段
func Ctx(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = Log
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// RequestFields 请求标识
func RequestFields(requestID string) []zap.Field {
	return []zap.Field{zap.String("request_id", requestID)}
}

// ScopeFields 当前身份和生效组织, 没有生效组织时只记用户
func ScopeFields(s *scope.Scope) []zap.Field {
	if s == nil {
		return nil
	}
	fields := []zap.Field{zap.Int64("user_id", s.UserID)}
	if s.HasActive {
		fields = append(fields,
			zap.Int64("active_org", s.ActiveOrgID),
			zap.String("org_role", s.Role()))
	}
	return fields
}
