package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

// memStore 只实现测试路径上用到的方法, 其余方法调用会 panic
type memStore struct {
	nextID int64

	orgs         map[int64]*model.Organization
	members      []*model.OrganizationMember
	projects     map[int64]*model.Project
	participants []*model.ProjectParticipant
	assignments  []*model.ProjectAssignment
	invites      map[int64]*model.ProjectInvite
	phases       map[int64]*model.ProjectPhase
	tasks        map[int64]*model.Task
	timeLogs     map[int64]*model.TimeLog
	checklists   map[int64]*model.Checklist
	items        map[int64]*model.ChecklistItem
	budgetLines  map[int64]*model.BudgetLine
	shifts       map[int64]*model.Shift

	seqWrites []string
	locks     []string
}

func newMemStore() *memStore {
	return &memStore{
		orgs:     map[int64]*model.Organization{},
		projects: map[int64]*model.Project{},
		invites:  map[int64]*model.ProjectInvite{},
		phases:   map[int64]*model.ProjectPhase{},
		tasks:    map[int64]*model.Task{},
		timeLogs: map[int64]*model.TimeLog{},

		checklists:  map[int64]*model.Checklist{},
		items:       map[int64]*model.ChecklistItem{},
		budgetLines: map[int64]*model.BudgetLine{},
		shifts:      map[int64]*model.Shift{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) Users() repository.UserRepository                   { return nil }
func (s *memStore) Organizations() repository.OrganizationRepository   { return memOrgs{s: s} }
func (s *memStore) Members() repository.MemberRepository               { return memMembers{s: s} }
func (s *memStore) Projects() repository.ProjectRepository             { return memProjects{s: s} }
func (s *memStore) Participants() repository.ParticipantRepository     { return memParticipants{s: s} }
func (s *memStore) Assignments() repository.AssignmentRepository       { return memAssignments{s: s} }
func (s *memStore) Invites() repository.InviteRepository               { return memInvites{s: s} }
func (s *memStore) Phases() repository.PhaseRepository                 { return memPhases{s: s} }
func (s *memStore) Tasks() repository.TaskRepository                   { return memTasks{s: s} }
func (s *memStore) Checklists() repository.ChecklistRepository         { return memChecklists{s: s} }
func (s *memStore) ChecklistItems() repository.ChecklistItemRepository { return memItems{s: s} }
func (s *memStore) BudgetLines() repository.BudgetLineRepository       { return memBudgetLines{s: s} }
func (s *memStore) TimeLogs() repository.TimeLogRepository             { return memTimeLogs{s: s} }
func (s *memStore) Shifts() repository.ShiftRepository                 { return memShifts{s: s} }

func (s *memStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

type memOrgs struct {
	repository.OrganizationRepository
	s *memStore
}

func (r memOrgs) Create(_ context.Context, org *model.Organization) error {
	org.ID = r.s.id()
	r.s.orgs[org.ID] = org
	return nil
}

func (r memOrgs) FindByID(_ context.Context, id int64) (*model.Organization, error) {
	if org, ok := r.s.orgs[id]; ok {
		return org, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memOrgs) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, o := range r.s.orgs {
		if o.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type memMembers struct {
	repository.MemberRepository
	s *memStore
}

func (r memMembers) Create(_ context.Context, m *model.OrganizationMember) error {
	m.ID = r.s.id()
	m.CreatedAt = time.Unix(m.ID, 0).UTC()
	r.s.members = append(r.s.members, m)
	return nil
}

func (r memMembers) Find(_ context.Context, orgID, userID int64) (*model.OrganizationMember, error) {
	m, ok := lo.Find(r.s.members, func(m *model.OrganizationMember) bool {
		return m.OrgID == orgID && m.UserID == userID
	})
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return m, nil
}

func (r memMembers) ListByUser(_ context.Context, userID int64) ([]*model.OrganizationMember, error) {
	list := lo.Filter(r.s.members, func(m *model.OrganizationMember, _ int) bool { return m.UserID == userID })
	for _, m := range list {
		m.Organization = r.s.orgs[m.OrgID]
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r memMembers) CountByRole(_ context.Context, orgID int64, role string) (int64, error) {
	return int64(lo.CountBy(r.s.members, func(m *model.OrganizationMember) bool {
		return m.OrgID == orgID && m.Role == role
	})), nil
}

func (r memMembers) UpdateRole(ctx context.Context, orgID, userID int64, role string) error {
	m, err := r.Find(ctx, orgID, userID)
	if err != nil {
		return err
	}
	m.Role = role
	return nil
}

func (r memMembers) Delete(_ context.Context, orgID, userID int64) error {
	before := len(r.s.members)
	r.s.members = lo.Reject(r.s.members, func(m *model.OrganizationMember, _ int) bool {
		return m.OrgID == orgID && m.UserID == userID
	})
	if len(r.s.members) == before {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

type memProjects struct {
	repository.ProjectRepository
	s *memStore
}

func (r memProjects) Create(_ context.Context, p *model.Project) error {
	p.ID = r.s.id()
	r.s.projects[p.ID] = p
	return nil
}

func (r memProjects) FindByID(_ context.Context, id int64) (*model.Project, error) {
	if p, ok := r.s.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memProjects) LockForUpdate(_ context.Context, id int64) error {
	if _, ok := r.s.projects[id]; !ok {
		return pkgErrors.ErrStaleReference
	}
	r.s.locks = append(r.s.locks, fmt.Sprintf("projects:%d", id))
	return nil
}

type memParticipants struct {
	repository.ParticipantRepository
	s *memStore
}

func (r memParticipants) Ensure(ctx context.Context, projectID, orgID int64, role string) (*model.ProjectParticipant, error) {
	if p, err := r.Find(ctx, projectID, orgID); err == nil {
		return p, nil
	}
	p := &model.ProjectParticipant{ProjectID: projectID, OrgID: orgID, Role: role}
	p.ID = r.s.id()
	r.s.participants = append(r.s.participants, p)
	return p, nil
}

func (r memParticipants) Find(_ context.Context, projectID, orgID int64) (*model.ProjectParticipant, error) {
	p, ok := lo.Find(r.s.participants, func(p *model.ProjectParticipant) bool {
		return p.ProjectID == projectID && p.OrgID == orgID
	})
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return p, nil
}

func (r memParticipants) ListByProject(_ context.Context, projectID int64) ([]*model.ProjectParticipant, error) {
	return lo.Filter(r.s.participants, func(p *model.ProjectParticipant, _ int) bool {
		return p.ProjectID == projectID
	}), nil
}

func (r memParticipants) Delete(_ context.Context, projectID, orgID int64) error {
	r.s.participants = lo.Reject(r.s.participants, func(p *model.ProjectParticipant, _ int) bool {
		return p.ProjectID == projectID && p.OrgID == orgID
	})
	return nil
}

type memAssignments struct {
	repository.AssignmentRepository
	s *memStore
}

func (r memAssignments) Create(_ context.Context, a *model.ProjectAssignment) error {
	a.ID = r.s.id()
	r.s.assignments = append(r.s.assignments, a)
	return nil
}

func (r memAssignments) Find(_ context.Context, projectID, userID int64) (*model.ProjectAssignment, error) {
	a, ok := lo.Find(r.s.assignments, func(a *model.ProjectAssignment) bool {
		return a.ProjectID == projectID && a.UserID == userID
	})
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return a, nil
}

func (r memAssignments) ListByProject(_ context.Context, projectID int64) ([]*model.ProjectAssignment, error) {
	return lo.Filter(r.s.assignments, func(a *model.ProjectAssignment, _ int) bool {
		return a.ProjectID == projectID
	}), nil
}

type memInvites struct {
	repository.InviteRepository
	s *memStore
}

func (r memInvites) Create(_ context.Context, i *model.ProjectInvite) error {
	i.ID = r.s.id()
	r.s.invites[i.ID] = i
	return nil
}

func (r memInvites) FindByID(_ context.Context, id int64, _ bool) (*model.ProjectInvite, error) {
	if i, ok := r.s.invites[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memInvites) FindByToken(_ context.Context, token string, _ bool) (*model.ProjectInvite, error) {
	for _, i := range r.s.invites {
		if i.Token == token {
			cp := *i
			return &cp, nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memInvites) FindPending(_ context.Context, projectID int64, email string, now time.Time) (*model.ProjectInvite, error) {
	for _, i := range r.s.invites {
		if i.ProjectID == projectID && i.Email == email && i.IsPending(now) {
			return i, nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memInvites) MarkAccepted(_ context.Context, id int64, at time.Time) (bool, error) {
	i, ok := r.s.invites[id]
	if !ok || i.AcceptedAt != nil {
		return false, nil
	}
	i.AcceptedAt = &at
	return true, nil
}

func (r memInvites) Delete(_ context.Context, id int64) error {
	delete(r.s.invites, id)
	return nil
}

type memPhases struct {
	repository.PhaseRepository
	s *memStore
}

func (r memPhases) Create(_ context.Context, p *model.ProjectPhase) error {
	p.ID = r.s.id()
	r.s.phases[p.ID] = p
	return nil
}

func (r memPhases) FindByID(_ context.Context, id int64) (*model.ProjectPhase, error) {
	if p, ok := r.s.phases[id]; ok {
		return p, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memPhases) ListByProject(_ context.Context, projectID int64) ([]*model.ProjectPhase, error) {
	list := lo.Filter(lo.Values(r.s.phases), func(p *model.ProjectPhase, _ int) bool { return p.ProjectID == projectID })
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

// UpdateSeq 模拟 (project_id, seq) 唯一约束
func (r memPhases) UpdateSeq(_ context.Context, id int64, seq int) error {
	p, ok := r.s.phases[id]
	if !ok {
		return pkgErrors.ErrStaleReference
	}
	for _, other := range r.s.phases {
		if other.ID != id && other.ProjectID == p.ProjectID && other.Seq == seq {
			return pkgErrors.ErrConflict
		}
	}
	p.Seq = seq
	r.s.seqWrites = append(r.s.seqWrites, formatSeqWrite(id, seq))
	return nil
}

func (r memPhases) Delete(_ context.Context, id int64) error {
	delete(r.s.phases, id)
	return nil
}

type memTasks struct {
	repository.TaskRepository
	s *memStore
}

func (r memTasks) Create(_ context.Context, t *model.Task) error {
	t.ID = r.s.id()
	r.s.tasks[t.ID] = t
	return nil
}

func (r memTasks) FindByID(_ context.Context, id int64) (*model.Task, error) {
	if t, ok := r.s.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memTasks) ListByScope(_ context.Context, projectID int64, phaseID *int64) ([]*model.Task, error) {
	list := lo.Filter(lo.Values(r.s.tasks), func(t *model.Task, _ int) bool {
		return t.ProjectID == projectID && lo.FromPtr(t.PhaseID) == lo.FromPtr(phaseID)
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

// UpdateSeq 模拟 (project_id, phase_id, seq) 唯一约束
func (r memTasks) UpdateSeq(_ context.Context, id int64, seq int) error {
	t, ok := r.s.tasks[id]
	if !ok {
		return pkgErrors.ErrStaleReference
	}
	for _, other := range r.s.tasks {
		if other.ID != id && other.ProjectID == t.ProjectID &&
			lo.FromPtr(other.PhaseID) == lo.FromPtr(t.PhaseID) && other.Seq == seq {
			return pkgErrors.ErrConflict
		}
	}
	t.Seq = seq
	r.s.seqWrites = append(r.s.seqWrites, formatSeqWrite(id, seq))
	return nil
}

func (r memTasks) MovePhase(_ context.Context, id int64, phaseID *int64, seq int) error {
	t, ok := r.s.tasks[id]
	if !ok {
		return pkgErrors.ErrStaleReference
	}
	t.PhaseID = phaseID
	t.Seq = seq
	return nil
}

type memTimeLogs struct {
	repository.TimeLogRepository
	s *memStore
}

func (r memTimeLogs) Create(_ context.Context, l *model.TimeLog) error {
	l.ID = r.s.id()
	r.s.timeLogs[l.ID] = l
	return nil
}

func (r memTimeLogs) FindByID(_ context.Context, id int64) (*model.TimeLog, error) {
	if l, ok := r.s.timeLogs[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memTimeLogs) UpdateStatus(_ context.Context, id int64, status string, reviewer int64, at time.Time) error {
	l, ok := r.s.timeLogs[id]
	if !ok {
		return pkgErrors.ErrStaleReference
	}
	l.Status = status
	l.ReviewedBy = &reviewer
	l.ReviewedAt = &at
	return nil
}

func (r memTimeLogs) SumApprovedMinutes(_ context.Context, projectID int64) (int64, error) {
	var total int64
	for _, l := range r.s.timeLogs {
		if l.ProjectID == projectID && l.Status == constants.TimeLogStatusApproved {
			total += int64(l.Minutes)
		}
	}
	return total, nil
}

func (r memTimeLogs) ListForOrg(_ context.Context, f repository.OrgTimeLogFilter) ([]*model.TimeLog, error) {
	list := lo.Filter(lo.Values(r.s.timeLogs), func(l *model.TimeLog, _ int) bool {
		return (l.BillToOrgID == f.OrgID || l.EmployerOrgID == f.OrgID) &&
			!l.StartedAt.Before(f.From) && !l.StartedAt.After(f.To) &&
			(f.ProjectID == nil || l.ProjectID == *f.ProjectID) &&
			(len(f.Statuses) == 0 || lo.Contains(f.Statuses, l.Status))
	})
	for _, l := range list {
		l.EmployerOrg = r.s.orgs[l.EmployerOrgID]
		l.Project = r.s.projects[l.ProjectID]
	}
	return list, nil
}

type memShifts struct {
	repository.ShiftRepository
	s *memStore
}

func (r memShifts) Create(_ context.Context, sh *model.Shift) error {
	sh.ID = r.s.id()
	r.s.shifts[sh.ID] = sh
	return nil
}

func (r memShifts) FindByID(_ context.Context, id int64) (*model.Shift, error) {
	if sh, ok := r.s.shifts[id]; ok {
		cp := *sh
		return &cp, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memShifts) List(_ context.Context, f repository.ShiftFilter) ([]*model.Shift, error) {
	list := lo.Filter(lo.Values(r.s.shifts), func(sh *model.Shift, _ int) bool {
		return sh.OrgID == f.OrgID &&
			(f.UserID == nil || sh.UserID == *f.UserID) &&
			(f.ProjectID == nil || lo.FromPtr(sh.ProjectID) == *f.ProjectID) &&
			(f.From == nil || !sh.StartAt.Before(*f.From)) &&
			(f.To == nil || !sh.StartAt.After(*f.To))
	})
	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	return list, nil
}

func (r memShifts) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.shifts[id]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	delete(r.s.shifts, id)
	return nil
}

type memChecklists struct {
	repository.ChecklistRepository
	s *memStore
}

func (r memChecklists) Create(_ context.Context, c *model.Checklist) error {
	c.ID = r.s.id()
	r.s.checklists[c.ID] = c
	for _, it := range c.Items {
		it.ID = r.s.id()
		it.ChecklistID = c.ID
		r.s.items[it.ID] = it
	}
	return nil
}

func (r memChecklists) FindByID(ctx context.Context, id int64, withItems bool) (*model.Checklist, error) {
	c, ok := r.s.checklists[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	cp := *c
	cp.Items = nil
	if withItems {
		cp.Items, _ = memItems{s: r.s}.ListByChecklist(ctx, id)
	}
	return &cp, nil
}

func (r memChecklists) LockForUpdate(_ context.Context, id int64) error {
	if _, ok := r.s.checklists[id]; !ok {
		return pkgErrors.ErrStaleReference
	}
	r.s.locks = append(r.s.locks, fmt.Sprintf("checklists:%d", id))
	return nil
}

type memItems struct {
	repository.ChecklistItemRepository
	s *memStore
}

func (r memItems) Create(_ context.Context, it *model.ChecklistItem) error {
	it.ID = r.s.id()
	r.s.items[it.ID] = it
	return nil
}

func (r memItems) FindByID(_ context.Context, id int64) (*model.ChecklistItem, error) {
	if it, ok := r.s.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r memItems) Update(_ context.Context, it *model.ChecklistItem) error {
	if _, ok := r.s.items[it.ID]; !ok {
		return pkgErrors.ErrStaleReference
	}
	cp := *it
	r.s.items[it.ID] = &cp
	return nil
}

func (r memItems) ListByChecklist(_ context.Context, checklistID int64) ([]*model.ChecklistItem, error) {
	list := lo.Filter(lo.Values(r.s.items), func(it *model.ChecklistItem, _ int) bool { return it.ChecklistID == checklistID })
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

func (r memItems) UpdateSeq(_ context.Context, id int64, seq int) error {
	it, ok := r.s.items[id]
	if !ok {
		return pkgErrors.ErrStaleReference
	}
	it.Seq = seq
	r.s.seqWrites = append(r.s.seqWrites, formatSeqWrite(id, seq))
	return nil
}

type memBudgetLines struct {
	repository.BudgetLineRepository
	s *memStore
}

func (r memBudgetLines) Create(_ context.Context, l *model.BudgetLine) error {
	l.ID = r.s.id()
	r.s.budgetLines[l.ID] = l
	return nil
}

func (r memBudgetLines) ListByProject(_ context.Context, projectID int64) ([]*model.BudgetLine, error) {
	list := lo.Filter(lo.Values(r.s.budgetLines), func(l *model.BudgetLine, _ int) bool { return l.ProjectID == projectID })
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

type recordingPublisher struct {
	changes []realtime.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c realtime.Change) error {
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPublisher) tables() []string {
	return lo.Map(p.changes, func(c realtime.Change, _ int) string { return c.Table })
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newDeps(store *memStore) (*Deps, *recordingPublisher) {
	pub := &recordingPublisher{}
	return &Deps{
		Store:     store,
		Publisher: pub,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return fixedNow },
	}, pub
}

// scopeCtx 按 store 中的成员关系解析访问范围
func scopeCtx(store *memStore, userID int64, email string, persisted *int64) context.Context {
	resolver := scope.NewResolver(NewAccessService(store, zap.NewNop()), zap.NewNop())
	sc, err := resolver.Resolve(context.Background(), userID, email, persisted)
	if err != nil {
		panic(err)
	}
	return scope.WithScope(context.Background(), sc)
}

func formatSeqWrite(id int64, seq int) string {
	return fmt.Sprintf("%d=%d", id, seq)
}
