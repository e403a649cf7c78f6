package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

type InviteHandler struct {
	service service.InviteService
}

func NewInviteHandler(service service.InviteService) *InviteHandler {
	return &InviteHandler{service: service}
}

// Create 发出项目邀请
// @Summary 发出项目邀请
// @Description 有效期默认14天, 同一项目同一邮箱只能有一个待接受的邀请
// @Tags 邀请
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.CreateInviteRequest true "邀请"
// @Success 200 {object} utils.Response{data=dto.InviteResponse}
// @Router /api/v1/projects/{id}/invites [post]
func (h *InviteHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	invite, err := h.service.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, invite)
}

// ListPending 项目待接受的邀请
// @Summary 项目待接受的邀请
// @Tags 邀请
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=[]dto.InviteResponse}
// @Router /api/v1/projects/{id}/invites [get]
func (h *InviteHandler) ListPending(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	invites, err := h.service.ListPending(c.Request.Context(), projectID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, invites)
}

// ListMine 发给我的邀请
// @Summary 发给当前用户邮箱的待接受邀请
// @Tags 邀请
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]dto.InviteResponse}
// @Router /api/v1/invites/mine [get]
func (h *InviteHandler) ListMine(c *gin.Context) {
	invites, err := h.service.ListMine(c.Request.Context())
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, invites)
}

// Revoke 撤销邀请
// @Summary 撤销邀请
// @Tags 邀请
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "邀请ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/invites/{id} [delete]
func (h *InviteHandler) Revoke(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Revoke(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// Accept 接受邀请
// @Summary 接受邀请
// @Description 不存在 404, 已使用 409, 已过期 410, 邮箱不匹配 403
// @Tags 邀请
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.AcceptInviteRequest true "token 或 invite_id"
// @Success 200 {object} utils.Response{data=dto.AcceptInviteResponse}
// @Router /api/v1/invites/accept [post]
func (h *InviteHandler) Accept(c *gin.Context) {
	var req dto.AcceptInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Accept(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}
