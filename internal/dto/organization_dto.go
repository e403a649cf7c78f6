package dto

// CreateOrganizationRequest 创建组织, 创建人成为管理员
type CreateOrganizationRequest struct {
	Name          string  `json:"name" binding:"max=200"`
	WhatsappPhone *string `json:"whatsapp_phone" binding:"omitempty,max=32"`
}

// UpdateOrganizationRequest 更新组织
type UpdateOrganizationRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=200"`
	WhatsappPhone *string `json:"whatsapp_phone" binding:"omitempty,max=32"`
}

// OrganizationResponse 组织
type OrganizationResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	CreatedBy     int64   `json:"created_by"`
	WhatsappPhone *string `json:"whatsapp_phone,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// MembershipResponse 我的组织成员关系
type MembershipResponse struct {
	OrgID    int64  `json:"org_id"`
	OrgName  string `json:"org_name"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
	Active   bool   `json:"active"`
}

// SetActiveOrgRequest 切换生效组织
type SetActiveOrgRequest struct {
	OrgID int64 `json:"org_id" binding:"required,min=1"`
}

// AddMemberRequest 添加组织成员
type AddMemberRequest struct {
	UserID int64  `json:"user_id" binding:"required,min=1"`
	Role   string `json:"role" binding:"required,oneof=org_admin manager worker"`
}

// UpdateMemberRoleRequest 修改成员角色
type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=org_admin manager worker"`
}

// MemberResponse 组织成员
type MemberResponse struct {
	UserID      int64   `json:"user_id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email,omitempty"`
	Role        string  `json:"role"`
	JoinedAt    string  `json:"joined_at"`
}
