package dto

// CreateChecklistRequest 新建检查单
type CreateChecklistRequest struct {
	Title string   `json:"title" binding:"required,max=200"`
	Items []string `json:"items" binding:"omitempty,dive,required,max=500"`
}

// RenameChecklistRequest 重命名检查单
type RenameChecklistRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// CreateChecklistItemRequest 新建检查项
type CreateChecklistItemRequest struct {
	Text string `json:"text" binding:"required,max=500"`
}

// UpdateChecklistItemRequest 更新检查项
type UpdateChecklistItemRequest struct {
	Text *string `json:"text" binding:"omitempty,min=1,max=500"`
	Done *bool   `json:"done"`
}

// ChecklistItemResponse 检查项
type ChecklistItemResponse struct {
	ID          int64  `json:"id"`
	ChecklistID int64  `json:"checklist_id"`
	Text        string `json:"text"`
	Done        bool   `json:"done"`
	Seq         int    `json:"seq"`
}

// ChecklistResponse 检查单
type ChecklistResponse struct {
	ID        int64                    `json:"id"`
	TaskID    int64                    `json:"task_id"`
	ProjectID int64                    `json:"project_id"`
	Title     string                   `json:"title"`
	Items     []*ChecklistItemResponse `json:"items"`
	DoneCount int                      `json:"done_count"`
}
