package service

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"buildbuddy-admin/internal/core/sequence"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
)

type ChecklistService interface {
	ListByTask(ctx context.Context, taskID int64) ([]*dto.ChecklistResponse, error)
	Create(ctx context.Context, taskID int64, req *dto.CreateChecklistRequest) (*dto.ChecklistResponse, error)
	Rename(ctx context.Context, id int64, req *dto.RenameChecklistRequest) error
	// Duplicate 复制检查单及其检查项, 勾选状态清空
	Duplicate(ctx context.Context, id int64) (*dto.ChecklistResponse, error)
	Delete(ctx context.Context, id int64) error

	AddItem(ctx context.Context, checklistID int64, req *dto.CreateChecklistItemRequest) (*dto.ChecklistItemResponse, error)
	UpdateItem(ctx context.Context, itemID int64, req *dto.UpdateChecklistItemRequest) (*dto.ChecklistItemResponse, error)
	MoveItem(ctx context.Context, itemID int64, req *dto.MoveRequest) (*dto.ChecklistResponse, error)
	DeleteItem(ctx context.Context, itemID int64) error
}

type checklistService struct {
	*Deps
}

func NewChecklistService(deps *Deps) ChecklistService {
	return &checklistService{Deps: deps}
}

// taskAccess 检查单通过任务找到项目
func (s *checklistService) taskAccess(ctx context.Context, taskID int64) (*projectAccess, *model.Task, error) {
	task, err := s.Store.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	access, err := loadProject(ctx, s.Store, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return access, task, nil
}

func (s *checklistService) checklistAccess(ctx context.Context, id int64, withItems bool) (*projectAccess, *model.Checklist, error) {
	checklist, err := s.Store.Checklists().FindByID(ctx, id, withItems)
	if err != nil {
		return nil, nil, err
	}
	access, err := loadProject(ctx, s.Store, checklist.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return access, checklist, nil
}

func (s *checklistService) ListByTask(ctx context.Context, taskID int64) ([]*dto.ChecklistResponse, error) {
	access, _, err := s.taskAccess(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermProjectView); err != nil {
		return nil, err
	}
	list, err := s.Store.Checklists().ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(c *model.Checklist, _ int) *dto.ChecklistResponse {
		return toChecklistResponse(c)
	}), nil
}

func (s *checklistService) Create(ctx context.Context, taskID int64, req *dto.CreateChecklistRequest) (*dto.ChecklistResponse, error) {
	access, task, err := s.taskAccess(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return nil, err
	}

	checklist := &model.Checklist{
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Title:     strings.TrimSpace(req.Title),
		Items: lo.Map(req.Items, func(text string, i int) *model.ChecklistItem {
			return &model.ChecklistItem{Text: strings.TrimSpace(text), Seq: i + 1}
		}),
	}
	if err := s.Store.Checklists().Create(ctx, checklist); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ChecklistTableName, realtime.EventInsert, map[string]int64{"id": checklist.ID, "task_id": task.ID, "project_id": task.ProjectID})
	return toChecklistResponse(checklist), nil
}

func (s *checklistService) Rename(ctx context.Context, id int64, req *dto.RenameChecklistRequest) error {
	access, checklist, err := s.checklistAccess(ctx, id, false)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return err
	}
	if err := s.Store.Checklists().Rename(ctx, id, strings.TrimSpace(req.Title)); err != nil {
		return err
	}

	s.publish(ctx, model.ChecklistTableName, realtime.EventUpdate, map[string]int64{"id": id, "task_id": checklist.TaskID, "project_id": checklist.ProjectID})
	return nil
}

func (s *checklistService) Duplicate(ctx context.Context, id int64) (*dto.ChecklistResponse, error) {
	access, src, err := s.checklistAccess(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return nil, err
	}

	copied := &model.Checklist{
		TaskID:    src.TaskID,
		ProjectID: src.ProjectID,
		Title:     constants.CopyTitlePrefix + src.Title,
		Items: lo.Map(src.Items, func(it *model.ChecklistItem, _ int) *model.ChecklistItem {
			return &model.ChecklistItem{Text: it.Text, Seq: it.Seq}
		}),
	}
	if err := s.Store.Checklists().Create(ctx, copied); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ChecklistTableName, realtime.EventInsert, map[string]int64{"id": copied.ID, "task_id": copied.TaskID, "project_id": copied.ProjectID})
	return toChecklistResponse(copied), nil
}

func (s *checklistService) Delete(ctx context.Context, id int64) error {
	access, checklist, err := s.checklistAccess(ctx, id, false)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return err
	}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Checklists().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, model.ChecklistTableName, realtime.EventDelete, map[string]int64{"id": id, "task_id": checklist.TaskID, "project_id": checklist.ProjectID})
	return nil
}

func (s *checklistService) AddItem(ctx context.Context, checklistID int64, req *dto.CreateChecklistItemRequest) (*dto.ChecklistItemResponse, error) {
	access, _, err := s.checklistAccess(ctx, checklistID, false)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return nil, err
	}

	item := &model.ChecklistItem{ChecklistID: checklistID, Text: strings.TrimSpace(req.Text)}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Checklists().LockForUpdate(ctx, checklistID); err != nil {
			return err
		}
		siblings, err := tx.ChecklistItems().ListByChecklist(ctx, checklistID)
		if err != nil {
			return err
		}
		item.Seq = sequence.Next(itemSeqs(siblings))
		return tx.ChecklistItems().Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ChecklistItemTableName, realtime.EventInsert, map[string]int64{"id": item.ID, "checklist_id": checklistID, "project_id": access.project.ID})
	return toChecklistItemResponse(item), nil
}

// UpdateItem 只勾选时参与方都可以执行
func (s *checklistService) UpdateItem(ctx context.Context, itemID int64, req *dto.UpdateChecklistItemRequest) (*dto.ChecklistItemResponse, error) {
	item, err := s.Store.ChecklistItems().FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	access, _, err := s.checklistAccess(ctx, item.ChecklistID, false)
	if err != nil {
		return nil, err
	}
	if req.Text != nil {
		err = access.RequireOwner(auth.PermChecklistManage)
	} else {
		err = access.Require(auth.PermChecklistCheck)
	}
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		item.Text = strings.TrimSpace(*req.Text)
	}
	if req.Done != nil {
		item.Done = *req.Done
	}
	if err := s.Store.ChecklistItems().Update(ctx, item); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ChecklistItemTableName, realtime.EventUpdate, map[string]int64{"id": item.ID, "checklist_id": item.ChecklistID, "project_id": access.project.ID})
	return toChecklistItemResponse(item), nil
}

func (s *checklistService) MoveItem(ctx context.Context, itemID int64, req *dto.MoveRequest) (*dto.ChecklistResponse, error) {
	dir, err := sequence.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	item, err := s.Store.ChecklistItems().FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	access, checklist, err := s.checklistAccess(ctx, item.ChecklistID, false)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return nil, err
	}

	var moved bool
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Checklists().LockForUpdate(ctx, item.ChecklistID); err != nil {
			return err
		}
		items, err := tx.ChecklistItems().ListByChecklist(ctx, item.ChecklistID)
		if err != nil {
			return err
		}
		var plan sequence.Plan
		plan, moved, err = sequence.Reorder(itemSeqs(items), itemID, dir)
		if err != nil || !moved {
			return err
		}
		if err := sequence.Apply(ctx, tx.ChecklistItems(), plan); err != nil {
			return err
		}
		checklist.Items, err = tx.ChecklistItems().ListByChecklist(ctx, item.ChecklistID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		if checklist.Items, err = s.Store.ChecklistItems().ListByChecklist(ctx, item.ChecklistID); err != nil {
			return nil, err
		}
	}

	if moved {
		s.publish(ctx, model.ChecklistItemTableName, realtime.EventUpdate, map[string]int64{"id": itemID, "checklist_id": item.ChecklistID, "project_id": access.project.ID})
	}
	return toChecklistResponse(checklist), nil
}

func (s *checklistService) DeleteItem(ctx context.Context, itemID int64) error {
	item, err := s.Store.ChecklistItems().FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	access, _, err := s.checklistAccess(ctx, item.ChecklistID, false)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermChecklistManage); err != nil {
		return err
	}
	if err := s.Store.ChecklistItems().Delete(ctx, itemID); err != nil {
		return err
	}

	s.publish(ctx, model.ChecklistItemTableName, realtime.EventDelete, map[string]int64{"id": itemID, "checklist_id": item.ChecklistID, "project_id": access.project.ID})
	return nil
}

func itemSeqs(items []*model.ChecklistItem) []sequence.Item {
	return lo.Map(items, func(it *model.ChecklistItem, _ int) sequence.Item {
		return sequence.Item{ID: it.ID, Seq: it.Seq}
	})
}

func toChecklistItemResponse(it *model.ChecklistItem) *dto.ChecklistItemResponse {
	return &dto.ChecklistItemResponse{
		ID:          it.ID,
		ChecklistID: it.ChecklistID,
		Text:        it.Text,
		Done:        it.Done,
		Seq:         it.Seq,
	}
}

func toChecklistResponse(c *model.Checklist) *dto.ChecklistResponse {
	items := lo.Map(c.Items, func(it *model.ChecklistItem, _ int) *dto.ChecklistItemResponse {
		return toChecklistItemResponse(it)
	})
	return &dto.ChecklistResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		ProjectID: c.ProjectID,
		Title:     c.Title,
		Items:     items,
		DoneCount: lo.CountBy(c.Items, func(it *model.ChecklistItem) bool { return it.Done }),
	}
}
