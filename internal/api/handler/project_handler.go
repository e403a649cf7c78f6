package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

type ProjectHandler struct {
	projectService service.ProjectService
}

func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// Create 创建项目
// @Summary 创建项目
// @Description 项目归属当前生效组织
// @Tags Project
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.CreateProjectRequest true "创建项目请求"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// List 获取项目列表
// @Summary 生效组织拥有或参与的项目
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param keyword query string false "关键字搜索"
// @Success 200 {object} utils.Response{data=[]dto.ProjectResponse}
// @Router /api/v1/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	var query dto.ProjectListQuery
	if !bindQuery(c, &query) {
		return
	}

	projects, err := h.projectService.List(c.Request.Context(), &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, projects)
}

// Get 获取项目详情
// @Summary 获取项目详情
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// Update 更新项目
// @Summary 更新项目
// @Tags Project
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.UpdateProjectRequest true "更新项目请求"
// @Success 200 {object} utils.Response{data=dto.ProjectResponse}
// @Router /api/v1/projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, project)
}

// Delete 删除项目
// @Summary 删除项目
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// ListParticipants 项目参与方
// @Summary 项目参与方列表
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=[]dto.ParticipantResponse}
// @Router /api/v1/projects/{id}/participants [get]
func (h *ProjectHandler) ListParticipants(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	participants, err := h.projectService.ListParticipants(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, participants)
}

// AddVendor 添加外包方
// @Summary 添加外包方
// @Description 传 org_id 选择已有组织, 或传 name 新建组织
// @Tags Project
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.AddVendorRequest true "外包方"
// @Success 200 {object} utils.Response{data=dto.ParticipantResponse}
// @Router /api/v1/projects/{id}/vendors [post]
func (h *ProjectHandler) AddVendor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AddVendorRequest
	if !bindJSON(c, &req) {
		return
	}

	participant, err := h.projectService.AddVendor(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, participant)
}

// RemoveVendor 移除外包方
// @Summary 移除外包方
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param org_id path int true "组织ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/projects/{id}/vendors/{org_id} [delete]
func (h *ProjectHandler) RemoveVendor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	orgID, ok := paramID(c, "org_id")
	if !ok {
		return
	}

	if err := h.projectService.RemoveVendor(c.Request.Context(), id, orgID); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// ListAssignments 项目派工
// @Summary 项目派工列表
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param company query string false "all / internal / vendors"
// @Success 200 {object} utils.Response{data=[]dto.AssignmentResponse}
// @Router /api/v1/projects/{id}/assignments [get]
func (h *ProjectHandler) ListAssignments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var query dto.AssignmentListQuery
	if !bindQuery(c, &query) {
		return
	}

	assignments, err := h.projectService.ListAssignments(c.Request.Context(), id, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, assignments)
}

// RemoveAssignment 移除派工
// @Summary 移除派工
// @Tags Project
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "派工ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/assignments/{id} [delete]
func (h *ProjectHandler) RemoveAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.RemoveAssignment(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}
