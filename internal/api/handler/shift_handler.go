package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

// ShiftHandler 排班
type ShiftHandler struct {
	shiftService service.ShiftService
}

func NewShiftHandler(shiftService service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftService: shiftService}
}

// List 排班列表
// @Summary 生效组织的排班
// @Tags 排班
// @Produce json
// @Security ApiKeyAuth
// @Param from query string false "开始日期"
// @Param to query string false "结束日期"
// @Param user_id query int false "成员"
// @Param project_id query int false "项目"
// @Success 200 {object} utils.Response{data=[]dto.ShiftResponse}
// @Router /api/v1/shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	var query dto.ShiftListQuery
	if !bindQuery(c, &query) {
		return
	}

	shifts, err := h.shiftService.List(c.Request.Context(), &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, shifts)
}

// Create 新建排班
// @Summary 新建排班
// @Tags 排班
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreateShiftRequest true "排班"
// @Success 200 {object} utils.Response{data=dto.ShiftResponse}
// @Router /api/v1/shifts [post]
func (h *ShiftHandler) Create(c *gin.Context) {
	var req dto.CreateShiftRequest
	if !bindJSON(c, &req) {
		return
	}

	shift, err := h.shiftService.Create(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, shift)
}

// Delete 删除排班
func (h *ShiftHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.shiftService.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}
