package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/logger"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// ShiftService 组织排班
//  1. 排班属于生效组织, 组织成员都能查看
//  2. 给自己排班不需要额外权限, 给其他成员排班或删除别人的排班需要 PermShiftManage
//  3. 关联项目时生效组织必须是该项目的参与方
type ShiftService interface {
	List(ctx context.Context, req *dto.ShiftListQuery) ([]*dto.ShiftResponse, error)
	Create(ctx context.Context, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error)
	Delete(ctx context.Context, id int64) error
}

type shiftService struct {
	*Deps
}

func NewShiftService(deps *Deps) ShiftService {
	return &shiftService{Deps: deps}
}

func (s *shiftService) List(ctx context.Context, req *dto.ShiftListQuery) ([]*dto.ShiftResponse, error) {
	_, orgID, err := activeScope(ctx)
	if err != nil {
		return nil, err
	}

	filter := repository.ShiftFilter{OrgID: orgID, UserID: req.UserID, ProjectID: req.ProjectID}
	if filter.From, err = dto.ParseDayBound(strings.TrimSpace(req.DateFrom), false); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "开始时间格式错误", err)
	}
	if filter.To, err = dto.ParseDayBound(strings.TrimSpace(req.DateTo), true); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "结束时间格式错误", err)
	}

	shifts, err := s.Store.Shifts().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return lo.Map(shifts, func(sh *model.Shift, _ int) *dto.ShiftResponse {
		return toShiftResponse(sh)
	}), nil
}

func (s *shiftService) Create(ctx context.Context, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error) {
	sc, orgID, err := activeScope(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := parseShiftPeriod(req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}

	userID := lo.FromPtr(req.UserID)
	if userID == 0 {
		userID = sc.UserID
	}
	if userID != sc.UserID {
		if err := requirePermission(sc, auth.PermShiftManage); err != nil {
			return nil, err
		}
		if _, err := s.Store.Members().Find(ctx, orgID, userID); err != nil {
			if errors.Is(err, pkgErrors.ErrRecordNotFound) {
				return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "该用户不是本组织成员")
			}
			return nil, err
		}
	}

	shift := &model.Shift{
		OrgID:     orgID,
		UserID:    userID,
		ProjectID: req.ProjectID,
		StartAt:   start,
		EndAt:     end,
		CreatedBy: sc.UserID,
	}
	if req.ProjectID != nil {
		access, err := loadProject(ctx, s.Store, *req.ProjectID)
		if err != nil {
			return nil, err
		}
		shift.Project = access.project
	}
	if err := s.Store.Shifts().Create(ctx, shift); err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.Logger).Debug("新建排班",
		zap.Int64("shift_id", shift.ID),
		zap.Int64("org_id", orgID),
		zap.Int64("user_id", userID))
	s.publish(ctx, model.ShiftTableName, realtime.EventInsert, shiftKeys(shift))
	return toShiftResponse(shift), nil
}

func (s *shiftService) Delete(ctx context.Context, id int64) error {
	sc, orgID, err := activeScope(ctx)
	if err != nil {
		return err
	}
	shift, err := s.Store.Shifts().FindByID(ctx, id)
	if err != nil {
		return err
	}
	// 其他组织的排班视为不存在
	if shift.OrgID != orgID {
		return pkgErrors.ErrRecordNotFound
	}
	if shift.UserID != sc.UserID {
		if err := requirePermission(sc, auth.PermShiftManage); err != nil {
			return err
		}
	}
	if err := s.Store.Shifts().Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, model.ShiftTableName, realtime.EventDelete, shiftKeys(shift))
	return nil
}

// parseShiftPeriod 结束时间必须晚于开始时间
func parseShiftPeriod(startAt, endAt string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(startAt))
	if err != nil {
		return time.Time{}, time.Time{}, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "开始时间格式错误", err)
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(endAt))
	if err != nil {
		return time.Time{}, time.Time{}, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "结束时间格式错误", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, pkgErrors.New(pkgErrors.CodeBadRequest, "结束时间必须晚于开始时间")
	}
	return start.UTC(), end.UTC(), nil
}

func shiftKeys(sh *model.Shift) map[string]int64 {
	keys := map[string]int64{"id": sh.ID, "org_id": sh.OrgID, "user_id": sh.UserID}
	if sh.ProjectID != nil {
		keys["project_id"] = *sh.ProjectID
	}
	return keys
}

func toShiftResponse(sh *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:        sh.ID,
		OrgID:     sh.OrgID,
		UserID:    sh.UserID,
		ProjectID: sh.ProjectID,
		StartAt:   dto.FormatTime(sh.StartAt),
		EndAt:     dto.FormatTime(sh.EndAt),
		Minutes:   int(sh.EndAt.Sub(sh.StartAt) / time.Minute),
	}
	if sh.User != nil {
		resp.UserName = sh.User.Name()
	}
	if sh.Project != nil {
		resp.ProjectName = sh.Project.Name
	}
	return resp
}
