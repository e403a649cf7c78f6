package dto

import (
	"fmt"
	"time"
)

// DateLayout 仅日期的格式
const DateLayout = "2006-01-02"

// IDParam ID参数
type IDParam struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// MoveRequest 上移/下移
type MoveRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// KeywordQuery 关键字查询
type KeywordQuery struct {
	Keyword string `form:"keyword"`
}

// ParseDate 解析 YYYY-MM-DD, 空串返回 nil
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("日期格式应为 %s: %w", DateLayout, err)
	}
	return &t, nil
}

// ParseDayBound 解析日期过滤条件
// 只有日期时按 UTC 扩展为当天开始或结束, 其余按 RFC3339 解析
func ParseDayBound(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if len(s) == len(DateLayout) {
		t, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		if endOfDay {
			end := t.Add(24*time.Hour - time.Second)
			return &end, nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("时间格式错误: %w", err)
	}
	return &t, nil
}

// FormatTime 统一时间输出
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatTimePtr 可空时间输出
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}
