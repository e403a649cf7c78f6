package service

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"

	"buildbuddy-admin/internal/core/sequence"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type TaskService interface {
	List(ctx context.Context, projectID int64, req *dto.TaskListQuery) ([]*dto.TaskResponse, error)
	Create(ctx context.Context, projectID int64, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	// Update 参与方可以修改状态, 其余字段只有所属组织可以修改
	Update(ctx context.Context, id int64, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Move(ctx context.Context, id int64, req *dto.MoveRequest) ([]*dto.TaskResponse, error)
	// ChangePhase 移到另一个阶段的末尾
	ChangePhase(ctx context.Context, id int64, req *dto.ChangeTaskPhaseRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, id int64) error
}

type taskService struct {
	*Deps
}

func NewTaskService(deps *Deps) TaskService {
	return &taskService{Deps: deps}
}

func (s *taskService) List(ctx context.Context, projectID int64, req *dto.TaskListQuery) ([]*dto.TaskResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermProjectView); err != nil {
		return nil, err
	}

	filter := repository.TaskFilter{
		ProjectID:  projectID,
		AssigneeID: req.AssigneeID,
		Status:     req.Status,
	}
	if req.PhaseID != nil {
		if *req.PhaseID == 0 {
			filter.Unassigned = true
		} else {
			filter.PhaseID = req.PhaseID
		}
	}
	tasks, err := s.Store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

func (s *taskService) Create(ctx context.Context, projectID int64, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermTaskManage); err != nil {
		return nil, err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ProjectID:    projectID,
		OrgID:        access.project.OrgID,
		PhaseID:      req.PhaseID,
		Title:        strings.TrimSpace(req.Title),
		Status:       lo.Ternary(req.Status == "", constants.TaskStatusTodo, req.Status),
		AssigneeID:   req.AssigneeID,
		DueDate:      due,
		PlannedHours: req.PlannedHours,
	}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().LockForUpdate(ctx, projectID); err != nil {
			return err
		}
		if err := checkPhase(ctx, tx, projectID, task.PhaseID); err != nil {
			return err
		}
		if err := checkAssignee(ctx, tx, access.project, task.AssigneeID); err != nil {
			return err
		}
		siblings, err := tx.Tasks().ListByScope(ctx, projectID, task.PhaseID)
		if err != nil {
			return err
		}
		task.Seq = sequence.Next(taskItems(siblings))
		return tx.Tasks().Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.TaskTableName, realtime.EventInsert, map[string]int64{"id": task.ID, "project_id": projectID})
	return toTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, id int64, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, err := s.Store.Tasks().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := loadProject(ctx, s.Store, task.ProjectID)
	if err != nil {
		return nil, err
	}

	statusOnly := req.Title == nil && req.AssigneeID == nil && !req.ClearAssignee &&
		req.DueDate == nil && !req.ClearDueDate && req.PlannedHours == nil
	if statusOnly {
		err = access.Require(auth.PermTaskUpdate)
	} else {
		err = access.RequireOwner(auth.PermTaskManage)
	}
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	switch {
	case req.ClearAssignee:
		task.AssigneeID = nil
	case req.AssigneeID != nil:
		if err := checkAssignee(ctx, s.Store, access.project, req.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = req.AssigneeID
	}
	switch {
	case req.ClearDueDate:
		task.DueDate = nil
	case req.DueDate != nil:
		if task.DueDate, err = parseDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.PlannedHours != nil {
		task.PlannedHours = req.PlannedHours
	}
	task.Assignee = nil
	if err := s.Store.Tasks().Update(ctx, task); err != nil {
		return nil, err
	}

	s.publish(ctx, model.TaskTableName, realtime.EventUpdate, map[string]int64{"id": task.ID, "project_id": task.ProjectID})
	return toTaskResponse(task), nil
}

func (s *taskService) Move(ctx context.Context, id int64, req *dto.MoveRequest) ([]*dto.TaskResponse, error) {
	dir, err := sequence.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	task, err := s.Store.Tasks().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := loadProject(ctx, s.Store, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermTaskManage); err != nil {
		return nil, err
	}

	var (
		tasks []*model.Task
		moved bool
	)
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().LockForUpdate(ctx, task.ProjectID); err != nil {
			return err
		}
		var err error
		tasks, err = tx.Tasks().ListByScope(ctx, task.ProjectID, task.PhaseID)
		if err != nil {
			return err
		}
		var plan sequence.Plan
		plan, moved, err = sequence.Reorder(taskItems(tasks), id, dir)
		if err != nil || !moved {
			return err
		}
		if err := sequence.Apply(ctx, tx.Tasks(), plan); err != nil {
			return err
		}
		tasks, err = tx.Tasks().ListByScope(ctx, task.ProjectID, task.PhaseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved {
		s.publish(ctx, model.TaskTableName, realtime.EventUpdate, map[string]int64{"id": id, "project_id": task.ProjectID})
	}
	return toTaskResponses(tasks), nil
}

func (s *taskService) ChangePhase(ctx context.Context, id int64, req *dto.ChangeTaskPhaseRequest) (*dto.TaskResponse, error) {
	task, err := s.Store.Tasks().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := loadProject(ctx, s.Store, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermTaskManage); err != nil {
		return nil, err
	}
	// nil 与 0 都表示未分配
	if lo.FromPtr(task.PhaseID) == lo.FromPtr(req.PhaseID) {
		return toTaskResponse(task), nil
	}

	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().LockForUpdate(ctx, task.ProjectID); err != nil {
			return err
		}
		if err := checkPhase(ctx, tx, task.ProjectID, req.PhaseID); err != nil {
			return err
		}
		siblings, err := tx.Tasks().ListByScope(ctx, task.ProjectID, req.PhaseID)
		if err != nil {
			return err
		}
		task.Seq = sequence.Next(taskItems(siblings))
		task.PhaseID = req.PhaseID
		return tx.Tasks().MovePhase(ctx, task.ID, task.PhaseID, task.Seq)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.TaskTableName, realtime.EventUpdate, map[string]int64{"id": task.ID, "project_id": task.ProjectID})
	return toTaskResponse(task), nil
}

func (s *taskService) Delete(ctx context.Context, id int64) error {
	task, err := s.Store.Tasks().FindByID(ctx, id)
	if err != nil {
		return err
	}
	access, err := loadProject(ctx, s.Store, task.ProjectID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermTaskManage); err != nil {
		return err
	}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		checklists, err := tx.Checklists().ListByTask(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range checklists {
			if err := tx.Checklists().Delete(ctx, c.ID); err != nil {
				return err
			}
		}
		return tx.Tasks().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, model.TaskTableName, realtime.EventDelete, map[string]int64{"id": id, "project_id": task.ProjectID})
	return nil
}

// checkPhase 阶段必须属于同一项目
func checkPhase(ctx context.Context, store repository.Store, projectID int64, phaseID *int64) error {
	if phaseID == nil {
		return nil
	}
	phase, err := store.Phases().FindByID(ctx, *phaseID)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return pkgErrors.ErrStaleReference
		}
		return err
	}
	if phase.ProjectID != projectID {
		return pkgErrors.New(pkgErrors.CodeBadRequest, "阶段不属于该项目")
	}
	return nil
}

// checkAssignee 负责人需在项目上有派工或是所属组织成员
func checkAssignee(ctx context.Context, store repository.Store, project *model.Project, userID *int64) error {
	if userID == nil {
		return nil
	}
	_, err := store.Assignments().Find(ctx, project.ID, *userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return err
	}
	if _, err := store.Members().Find(ctx, project.OrgID, *userID); err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return pkgErrors.New(pkgErrors.CodeBadRequest, "负责人不在该项目中")
		}
		return err
	}
	return nil
}

func taskItems(tasks []*model.Task) []sequence.Item {
	return lo.Map(tasks, func(t *model.Task, _ int) sequence.Item {
		return sequence.Item{ID: t.ID, Seq: t.Seq}
	})
}

func toTaskResponses(tasks []*model.Task) []*dto.TaskResponse {
	return lo.Map(tasks, func(t *model.Task, _ int) *dto.TaskResponse {
		return toTaskResponse(t)
	})
}

func toTaskResponse(t *model.Task) *dto.TaskResponse {
	resp := &dto.TaskResponse{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		PhaseID:      t.PhaseID,
		Seq:          t.Seq,
		Title:        t.Title,
		Status:       t.Status,
		AssigneeID:   t.AssigneeID,
		DueDate:      formatDate(t.DueDate),
		PlannedHours: t.PlannedHours,
	}
	if t.Assignee != nil {
		resp.AssigneeName = t.Assignee.Name()
	}
	return resp
}
