package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

// PlanHandler 阶段与任务
type PlanHandler struct {
	phaseService service.PhaseService
	taskService  service.TaskService
}

func NewPlanHandler(phaseService service.PhaseService, taskService service.TaskService) *PlanHandler {
	return &PlanHandler{
		phaseService: phaseService,
		taskService:  taskService,
	}
}

// ListPhases 项目阶段, 按 seq 升序
// @Summary 项目阶段列表
// @Tags 计划
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Success 200 {object} utils.Response{data=[]dto.PhaseResponse}
// @Router /api/v1/projects/{id}/phases [get]
func (h *PlanHandler) ListPhases(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	phases, err := h.phaseService.List(c.Request.Context(), projectID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, phases)
}

// CreatePhase 新建阶段, 追加到末尾
// @Summary 新建阶段
// @Tags 计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.CreatePhaseRequest true "阶段"
// @Success 200 {object} utils.Response{data=dto.PhaseResponse}
// @Router /api/v1/projects/{id}/phases [post]
func (h *PlanHandler) CreatePhase(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreatePhaseRequest
	if !bindJSON(c, &req) {
		return
	}

	phase, err := h.phaseService.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, phase)
}

// UpdatePhase 更新阶段
// @Summary 更新阶段
// @Tags 计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "阶段ID"
// @Param request body dto.UpdatePhaseRequest true "阶段"
// @Success 200 {object} utils.Response{data=dto.PhaseResponse}
// @Router /api/v1/phases/{id} [put]
func (h *PlanHandler) UpdatePhase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePhaseRequest
	if !bindJSON(c, &req) {
		return
	}

	phase, err := h.phaseService.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, phase)
}

// MovePhase 上移/下移阶段, 返回调整后的列表
// @Summary 移动阶段
// @Tags 计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "阶段ID"
// @Param request body dto.MoveRequest true "方向"
// @Success 200 {object} utils.Response{data=[]dto.PhaseResponse}
// @Router /api/v1/phases/{id}/move [post]
func (h *PlanHandler) MovePhase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.MoveRequest
	if !bindJSON(c, &req) {
		return
	}

	phases, err := h.phaseService.Move(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, phases)
}

// DeletePhase 删除阶段, 其下任务移入未分配
// @Summary 删除阶段
// @Tags 计划
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "阶段ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/phases/{id} [delete]
func (h *PlanHandler) DeletePhase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.phaseService.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}

// ListTasks 项目任务, phase_id=0 为未分配
// @Summary 项目任务列表
// @Tags 计划
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param phase_id query int false "阶段ID, 0 为未分配"
// @Success 200 {object} utils.Response{data=[]dto.TaskResponse}
// @Router /api/v1/projects/{id}/tasks [get]
func (h *PlanHandler) ListTasks(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var query dto.TaskListQuery
	if !bindQuery(c, &query) {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), projectID, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, tasks)
}

// CreateTask 新建任务
// @Summary 新建任务
// @Tags 计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.CreateTaskRequest true "任务"
// @Success 200 {object} utils.Response{data=dto.TaskResponse}
// @Router /api/v1/projects/{id}/tasks [post]
func (h *PlanHandler) CreateTask(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, task)
}

// UpdateTask 更新任务
// @Summary 更新任务
// @Description 外包方只能修改状态
// @Tags 计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "任务ID"
// @Param request body dto.UpdateTaskRequest true "任务"
// @Success 200 {object} utils.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id} [put]
func (h *PlanHandler) UpdateTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, task)
}

// MoveTask 在所属阶段内上移/下移
func (h *PlanHandler) MoveTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.MoveRequest
	if !bindJSON(c, &req) {
		return
	}

	tasks, err := h.taskService.Move(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, tasks)
}

// ChangeTaskPhase 移到其他阶段末尾
func (h *PlanHandler) ChangeTaskPhase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeTaskPhaseRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.ChangePhase(c.Request.Context(), id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, task)
}

func (h *PlanHandler) DeleteTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), id); err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, nil)
}
