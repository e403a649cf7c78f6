// Package scope 计算当前身份所属的组织以及本次请求生效的组织。
//
// 生效组织不保存在任何全局状态中, 每个请求都重新读取成员关系并校验
// 客户端保存的选择, 结果通过 context 传递给下游。
package scope

import (
	"context"
	"time"

	pkgErrors "buildbuddy-admin/pkg/errors"
)

// Company 公司归属
type Company string

const (
	Internal Company = "internal"
	Vendor   Company = "vendor"
)

// Membership 当前身份在某个组织中的成员关系
type Membership struct {
	OrgID    int64     `json:"org_id"`
	Role     string    `json:"role"`
	OrgName  string    `json:"org_name"`
	JoinedAt time.Time `json:"joined_at"`
}

// ResolveActiveOrg 选出生效组织
//   - 只有一个成员关系时总是选它, 忽略保存的选择
//   - 多个时优先保存的选择, 但必须仍在列表中, 否则取最早加入的
//   - 没有成员关系返回 ok=false, 调用方引导创建组织
func ResolveActiveOrg(memberships []Membership, persisted *int64) (int64, bool) {
	switch len(memberships) {
	case 0:
		return 0, false
	case 1:
		return memberships[0].OrgID, true
	}
	if persisted != nil {
		for _, m := range memberships {
			if m.OrgID == *persisted {
				return m.OrgID, true
			}
		}
	}
	return memberships[0].OrgID, true
}

// ClassifyCompany 雇主组织与项目所属组织一致时为内部, 所属组织未知时一律视为外包
func ClassifyCompany(employerOrgID int64, ownerOrgID *int64) Company {
	if ownerOrgID != nil && employerOrgID == *ownerOrgID {
		return Internal
	}
	return Vendor
}

// Scope 本次请求的访问范围
type Scope struct {
	UserID      int64
	Email       string
	Memberships []Membership
	ActiveOrgID int64
	HasActive   bool
}

// Role 在生效组织中的角色
func (s *Scope) Role() string {
	if m, ok := s.Membership(s.ActiveOrgID); ok && s.HasActive {
		return m.Role
	}
	return ""
}

// Membership 查找指定组织的成员关系
func (s *Scope) Membership(orgID int64) (Membership, bool) {
	for _, m := range s.Memberships {
		if m.OrgID == orgID {
			return m, true
		}
	}
	return Membership{}, false
}

// IsMember 是否为指定组织成员
func (s *Scope) IsMember(orgID int64) bool {
	_, ok := s.Membership(orgID)
	return ok
}

// RequireActive 需要生效组织, 否则返回 ErrNeedsOrgSetup
func (s *Scope) RequireActive() (int64, error) {
	if s == nil || !s.HasActive {
		return 0, pkgErrors.ErrNeedsOrgSetup
	}
	return s.ActiveOrgID, nil
}

// OrgIDs 所属全部组织
func (s *Scope) OrgIDs() []int64 {
	ids := make([]int64, len(s.Memberships))
	for i, m := range s.Memberships {
		ids[i] = m.OrgID
	}
	return ids
}

type ctxKey struct{}

// WithScope 写入 context
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext 读取 context 中的访问范围
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Scope)
	return s, ok && s != nil
}

// MustFromContext 读取访问范围, 缺失时视为未授权
func MustFromContext(ctx context.Context) (*Scope, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, pkgErrors.ErrUnauthorized
	}
	return s, nil
}
