package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

type ChecklistHandler struct {
	service service.ChecklistService
}

func NewChecklistHandler(service service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{service: service}
}

// List 任务下的检查单
// @Summary 任务检查单
// @Tags 检查单
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "任务ID"
// @Success 200 {object} utils.Response{data=[]dto.ChecklistResponse}
// @Router /api/v1/tasks/{id}/checklists [get]
func (h *ChecklistHandler) List(c *gin.Context) {
	taskID, ok := paramID(c, "id")
	if !ok {
		return
	}

	checklists, err := h.service.ListByTask(c.Request.Context(), taskID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, checklists)
}

// Create 新建检查单
// @Summary 新建检查单
// @Tags 检查单
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "任务ID"
// @Param request body dto.CreateChecklistRequest true "检查单"
// @Success 200 {object} utils.Response{data=dto.ChecklistResponse}
// @Router /api/v1/tasks/{id}/checklists [post]
func (h *ChecklistHandler) Create(c *gin.Context) {
	taskID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateChecklistRequest
	if !bindJSON(c, &req) {
		return
	}

	checklist, err := h.service.Create(c.Request.Context(), taskID, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, checklist)
}

func (h *ChecklistHandler) Rename(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.RenameChecklistRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.Rename(c.Request.Context(), id, &req); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// Duplicate 复制检查单
// @Summary 复制检查单
// @Description 标题加 "Copy of " 前缀, 勾选状态清空
// @Tags 检查单
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "检查单ID"
// @Success 200 {object} utils.Response{data=dto.ChecklistResponse}
// @Router /api/v1/checklists/{id}/duplicate [post]
func (h *ChecklistHandler) Duplicate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	checklist, err := h.service.Duplicate(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, checklist)
}

func (h *ChecklistHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// AddItem 添加检查项
func (h *ChecklistHandler) AddItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateChecklistItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, item)
}

// UpdateItem 修改文字或勾选
// @Summary 更新检查项
// @Description 外包方只能勾选
// @Tags 检查单
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "检查项ID"
// @Param request body dto.UpdateChecklistItemRequest true "检查项"
// @Success 200 {object} utils.Response{data=dto.ChecklistItemResponse}
// @Router /api/v1/checklist-items/{id} [put]
func (h *ChecklistHandler) UpdateItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateChecklistItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, item)
}

// MoveItem 上移/下移检查项
func (h *ChecklistHandler) MoveItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.MoveRequest
	if !bindJSON(c, &req) {
		return
	}

	checklist, err := h.service.MoveItem(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, checklist)
}

func (h *ChecklistHandler) DeleteItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}
