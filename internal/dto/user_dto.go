package dto

// UserSearchQuery 用户搜索请求
type UserSearchQuery struct {
	Keyword string `form:"keyword"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// UserSimpleResponse 用户精简信息
type UserSimpleResponse struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	Email       *string `json:"email,omitempty"`
}
