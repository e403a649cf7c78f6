package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

type OrganizationHandler struct {
	service service.OrganizationService
}

func NewOrganizationHandler(service service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// Create 创建组织
// @Summary 创建组织
// @Description 创建人成为 org_admin, 名称为空时使用 Untitled
// @Tags 组织
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreateOrganizationRequest true "创建组织请求"
// @Success 200 {object} utils.Response{data=dto.OrganizationResponse}
// @Router /api/v1/organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.service.CreateWithAdmin(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, org)
}

// Get 获取组织详情
// @Summary 获取组织详情
// @Tags 组织
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "组织ID"
// @Success 200 {object} utils.Response{data=dto.OrganizationResponse}
// @Router /api/v1/organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	org, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, org)
}

// Update 更新组织
// @Summary 更新组织
// @Tags 组织
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "组织ID"
// @Param request body dto.UpdateOrganizationRequest true "更新组织请求"
// @Success 200 {object} utils.Response{data=dto.OrganizationResponse}
// @Router /api/v1/organizations/{id} [put]
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, org)
}

// ListMembers 组织成员列表
// @Summary 组织成员列表
// @Tags 组织
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "组织ID"
// @Success 200 {object} utils.Response{data=[]dto.MemberResponse}
// @Router /api/v1/organizations/{id}/members [get]
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, members)
}

// AddMember 添加组织成员
// @Summary 添加组织成员
// @Tags 组织
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "组织ID"
// @Param request body dto.AddMemberRequest true "添加成员请求"
// @Success 200 {object} utils.Response{data=dto.MemberResponse}
// @Router /api/v1/organizations/{id}/members [post]
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.service.AddMember(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, member)
}

// UpdateMemberRole 修改成员角色
// @Summary 修改成员角色
// @Tags 组织
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "组织ID"
// @Param user_id path int true "用户ID"
// @Param request body dto.UpdateMemberRoleRequest true "角色"
// @Success 200 {object} utils.Response
// @Router /api/v1/organizations/{id}/members/{user_id} [put]
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	var req dto.UpdateMemberRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateMemberRole(c.Request.Context(), id, userID, &req); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// RemoveMember 移除成员, 不能移除最后一个管理员
// @Summary 移除组织成员
// @Tags 组织
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "组织ID"
// @Param user_id path int true "用户ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/organizations/{id}/members/{user_id} [delete]
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), id, userID); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}
