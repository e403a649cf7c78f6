package service

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"buildbuddy-admin/internal/core/sequence"
	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type PhaseService interface {
	List(ctx context.Context, projectID int64) ([]*dto.PhaseResponse, error)
	Create(ctx context.Context, projectID int64, req *dto.CreatePhaseRequest) (*dto.PhaseResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdatePhaseRequest) (*dto.PhaseResponse, error)
	// Move 与相邻阶段交换 seq, 位于边界时不做任何修改
	Move(ctx context.Context, id int64, req *dto.MoveRequest) ([]*dto.PhaseResponse, error)
	// Delete 删除阶段, 其下任务移入未分配
	Delete(ctx context.Context, id int64) error
}

type phaseService struct {
	*Deps
}

func NewPhaseService(deps *Deps) PhaseService {
	return &phaseService{Deps: deps}
}

func (s *phaseService) List(ctx context.Context, projectID int64) ([]*dto.PhaseResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(auth.PermProjectView); err != nil {
		return nil, err
	}
	phases, err := s.Store.Phases().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return toPhaseResponses(phases), nil
}

func (s *phaseService) Create(ctx context.Context, projectID int64, req *dto.CreatePhaseRequest) (*dto.PhaseResponse, error) {
	access, err := loadProject(ctx, s.Store, projectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermPhaseManage); err != nil {
		return nil, err
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := checkDateRange(start, end); err != nil {
		return nil, err
	}

	phase := &model.ProjectPhase{
		ProjectID: projectID,
		OrgID:     access.project.OrgID,
		Name:      strings.TrimSpace(req.Name),
		StartDate: start,
		EndDate:   end,
	}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().LockForUpdate(ctx, projectID); err != nil {
			return err
		}
		siblings, err := tx.Phases().ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		phase.Seq = sequence.Next(phaseItems(siblings))
		return tx.Phases().Create(ctx, phase)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ProjectPhaseTableName, realtime.EventInsert, map[string]int64{"id": phase.ID, "project_id": projectID})
	return toPhaseResponse(phase), nil
}

func (s *phaseService) Update(ctx context.Context, id int64, req *dto.UpdatePhaseRequest) (*dto.PhaseResponse, error) {
	phase, err := s.Store.Phases().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := loadProject(ctx, s.Store, phase.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermPhaseManage); err != nil {
		return nil, err
	}

	if req.Name != nil {
		phase.Name = strings.TrimSpace(*req.Name)
	}
	if req.StartDate != nil {
		if phase.StartDate, err = parseDate(*req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.EndDate != nil {
		if phase.EndDate, err = parseDate(*req.EndDate); err != nil {
			return nil, err
		}
	}
	if err := checkDateRange(phase.StartDate, phase.EndDate); err != nil {
		return nil, err
	}
	if err := s.Store.Phases().Update(ctx, phase); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ProjectPhaseTableName, realtime.EventUpdate, map[string]int64{"id": phase.ID, "project_id": phase.ProjectID})
	return toPhaseResponse(phase), nil
}

func (s *phaseService) Move(ctx context.Context, id int64, req *dto.MoveRequest) ([]*dto.PhaseResponse, error) {
	dir, err := sequence.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	phase, err := s.Store.Phases().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := loadProject(ctx, s.Store, phase.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(auth.PermPhaseManage); err != nil {
		return nil, err
	}

	var (
		phases []*model.ProjectPhase
		moved  bool
	)
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().LockForUpdate(ctx, phase.ProjectID); err != nil {
			return err
		}
		var err error
		phases, err = tx.Phases().ListByProject(ctx, phase.ProjectID)
		if err != nil {
			return err
		}
		var plan sequence.Plan
		plan, moved, err = sequence.Reorder(phaseItems(phases), id, dir)
		if err != nil || !moved {
			return err
		}
		if err := sequence.Apply(ctx, tx.Phases(), plan); err != nil {
			return err
		}
		phases, err = tx.Phases().ListByProject(ctx, phase.ProjectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved {
		s.Logger.Debug("阶段排序", zap.Int64("phase_id", id), zap.String("direction", string(dir)))
		s.publish(ctx, model.ProjectPhaseTableName, realtime.EventUpdate, map[string]int64{"id": id, "project_id": phase.ProjectID})
	}
	return toPhaseResponses(phases), nil
}

func (s *phaseService) Delete(ctx context.Context, id int64) error {
	phase, err := s.Store.Phases().FindByID(ctx, id)
	if err != nil {
		return err
	}
	access, err := loadProject(ctx, s.Store, phase.ProjectID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(auth.PermPhaseManage); err != nil {
		return err
	}

	var movedTasks int
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().LockForUpdate(ctx, phase.ProjectID); err != nil {
			return err
		}
		tasks, err := tx.Tasks().ListByScope(ctx, phase.ProjectID, &id)
		if err != nil {
			return err
		}
		unassigned, err := tx.Tasks().ListByScope(ctx, phase.ProjectID, nil)
		if err != nil {
			return err
		}
		next := sequence.Next(taskItems(unassigned))
		for i, t := range tasks {
			if err := tx.Tasks().MovePhase(ctx, t.ID, nil, next+i); err != nil {
				return err
			}
		}
		movedTasks = len(tasks)
		return tx.Phases().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("删除阶段", zap.Int64("phase_id", id), zap.Int("moved_tasks", movedTasks))
	s.publish(ctx, model.ProjectPhaseTableName, realtime.EventDelete, map[string]int64{"id": id, "project_id": phase.ProjectID})
	if movedTasks > 0 {
		s.publish(ctx, model.TaskTableName, realtime.EventUpdate, map[string]int64{"project_id": phase.ProjectID})
	}
	return nil
}

// parseDate 空串返回 nil
func parseDate(s string) (*datatypes.Date, error) {
	t, err := dto.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "日期格式错误", err)
	}
	if t == nil {
		return nil, nil
	}
	return lo.ToPtr(datatypes.Date(*t)), nil
}

func checkDateRange(start, end *datatypes.Date) error {
	if start != nil && end != nil && time.Time(*end).Before(time.Time(*start)) {
		return pkgErrors.New(pkgErrors.CodeBadRequest, "结束日期不能早于开始日期")
	}
	return nil
}

func formatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	return lo.ToPtr(time.Time(*d).Format(dto.DateLayout))
}

func phaseItems(phases []*model.ProjectPhase) []sequence.Item {
	return lo.Map(phases, func(p *model.ProjectPhase, _ int) sequence.Item {
		return sequence.Item{ID: p.ID, Seq: p.Seq}
	})
}

func toPhaseResponses(phases []*model.ProjectPhase) []*dto.PhaseResponse {
	return lo.Map(phases, func(p *model.ProjectPhase, _ int) *dto.PhaseResponse {
		return toPhaseResponse(p)
	})
}

func toPhaseResponse(p *model.ProjectPhase) *dto.PhaseResponse {
	return &dto.PhaseResponse{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Name:      p.Name,
		Seq:       p.Seq,
		StartDate: formatDate(p.StartDate),
		EndDate:   formatDate(p.EndDate),
	}
}
