package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合全部仓储, 事务内通过 WithTx 拿到同一连接上的仓储
type Store interface {
	Users() UserRepository
	Organizations() OrganizationRepository
	Members() MemberRepository
	Projects() ProjectRepository
	Participants() ParticipantRepository
	Assignments() AssignmentRepository
	Invites() InviteRepository
	Phases() PhaseRepository
	Tasks() TaskRepository
	Checklists() ChecklistRepository
	ChecklistItems() ChecklistItemRepository
	BudgetLines() BudgetLineRepository
	TimeLogs() TimeLogRepository
	Shifts() ShiftRepository

	// WithTx 在一个事务内执行 fn, fn 返回错误时整体回滚
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Users() UserRepository { return NewUserRepository(s.db) }
func (s *store) Organizations() OrganizationRepository { return NewOrganizationRepository(s.db) }
func (s *store) Members() MemberRepository { return NewMemberRepository(s.db) }
func (s *store) Projects() ProjectRepository { return NewProjectRepository(s.db) }
func (s *store) Participants() ParticipantRepository { return NewParticipantRepository(s.db) }
func (s *store) Assignments() AssignmentRepository { return NewAssignmentRepository(s.db) }
func (s *store) Invites() InviteRepository { return NewInviteRepository(s.db) }
func (s *store) Phases() PhaseRepository { return NewPhaseRepository(s.db) }
func (s *store) Tasks() TaskRepository { return NewTaskRepository(s.db) }
func (s *store) Checklists() ChecklistRepository { return NewChecklistRepository(s.db) }
func (s *store) ChecklistItems() ChecklistItemRepository { return NewChecklistItemRepository(s.db) }
func (s *store) BudgetLines() BudgetLineRepository { return NewBudgetLineRepository(s.db) }
func (s *store) TimeLogs() TimeLogRepository { return NewTimeLogRepository(s.db) }
func (s *store) Shifts() ShiftRepository { return NewShiftRepository(s.db) }

func (s *store) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}
