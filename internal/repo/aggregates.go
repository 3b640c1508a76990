package repo

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/ident"
)

const (
	kindTask       = "task"
	kindQCCheck    = "qc_check"
	kindIssue      = "issue"
	kindAcceptance = "acceptance"
	kindMember     = "member"
	kindRole       = "role"
	kindTemplate   = "template"
	kindDailyEntry = "daily_entry"
	kindSettings   = "settings"
)

var (
	_ domain.TaskRepository       = TaskRepo{}
	_ domain.QCCheckRepository    = QCCheckRepo{}
	_ domain.IssueRepository      = IssueRepo{}
	_ domain.AcceptanceRepository = AcceptanceRepo{}
	_ domain.MemberRepository     = MemberRepo{}
	_ domain.RoleRepository       = RoleRepo{}
	_ domain.TemplateRepository   = TemplateRepo{}
	_ domain.DailyEntryRepository = DailyEntryRepo{}
	_ domain.SettingsRepository   = SettingsRepo{}
)

type TaskRepo struct {
	store[*domain.Task, domain.TaskState]
}

func (r Repo) Tasks() TaskRepo {
	return TaskRepo{store[*domain.Task, domain.TaskState]{repo: r, kind: kindTask, state: (*domain.Task).State, restore: domain.RestoreTask}}
}

func (s TaskRepo) FindByID(ctx context.Context, id ident.TaskID) (*domain.Task, error) {
	return s.find(ctx, id.String())
}

func (s TaskRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.Task, error) {
	return s.byWorkspace(ctx, workspaceID)
}

func (s TaskRepo) FindByParent(ctx context.Context, parentID ident.TaskID) ([]*domain.Task, error) {
	return s.list(ctx, `json_extract(state_json,'$.parent_id')=?`, parentID.String())
}

func (s TaskRepo) Save(ctx context.Context, t *domain.Task) error { return s.save(ctx, t) }

func (s TaskRepo) Delete(ctx context.Context, id ident.TaskID) error {
	return s.remove(ctx, id.String())
}

type QCCheckRepo struct {
	store[*domain.QCCheck, domain.QCCheckState]
}

func (r Repo) QCChecks() QCCheckRepo {
	return QCCheckRepo{store[*domain.QCCheck, domain.QCCheckState]{repo: r, kind: kindQCCheck, state: (*domain.QCCheck).State, restore: domain.RestoreQCCheck}}
}

func (s QCCheckRepo) FindByID(ctx context.Context, id ident.QCCheckID) (*domain.QCCheck, error) {
	return s.find(ctx, id.String())
}

func (s QCCheckRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.QCCheck, error) {
	return s.byWorkspace(ctx, workspaceID)
}

func (s QCCheckRepo) FindByTask(ctx context.Context, taskID ident.TaskID) ([]*domain.QCCheck, error) {
	return s.list(ctx, `json_extract(state_json,'$.task_id')=?`, taskID.String())
}

func (s QCCheckRepo) Save(ctx context.Context, c *domain.QCCheck) error { return s.save(ctx, c) }

func (s QCCheckRepo) Delete(ctx context.Context, id ident.QCCheckID) error {
	return s.remove(ctx, id.String())
}

type IssueRepo struct {
	store[*domain.Issue, domain.IssueState]
}

func (r Repo) Issues() IssueRepo {
	return IssueRepo{store[*domain.Issue, domain.IssueState]{repo: r, kind: kindIssue, state: (*domain.Issue).State, restore: domain.RestoreIssue}}
}

func (s IssueRepo) FindByID(ctx context.Context, id ident.IssueID) (*domain.Issue, error) {
	return s.find(ctx, id.String())
}

func (s IssueRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.Issue, error) {
	return s.byWorkspace(ctx, workspaceID)
}

func (s IssueRepo) FindByTask(ctx context.Context, taskID ident.TaskID) ([]*domain.Issue, error) {
	return s.list(ctx, `json_extract(state_json,'$.task_id')=?`, taskID.String())
}

func (s IssueRepo) Save(ctx context.Context, i *domain.Issue) error { return s.save(ctx, i) }

func (s IssueRepo) Delete(ctx context.Context, id ident.IssueID) error {
	return s.remove(ctx, id.String())
}

type AcceptanceRepo struct {
	store[*domain.Acceptance, domain.AcceptanceState]
}

func (r Repo) Acceptances() AcceptanceRepo {
	return AcceptanceRepo{store[*domain.Acceptance, domain.AcceptanceState]{repo: r, kind: kindAcceptance, state: (*domain.Acceptance).State, restore: domain.RestoreAcceptance}}
}

func (s AcceptanceRepo) FindByID(ctx context.Context, id ident.AcceptanceID) (*domain.Acceptance, error) {
	return s.find(ctx, id.String())
}

func (s AcceptanceRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.Acceptance, error) {
	return s.byWorkspace(ctx, workspaceID)
}

func (s AcceptanceRepo) FindByTask(ctx context.Context, taskID ident.TaskID) ([]*domain.Acceptance, error) {
	return s.list(ctx, `json_extract(state_json,'$.task_id')=?`, taskID.String())
}

func (s AcceptanceRepo) Save(ctx context.Context, a *domain.Acceptance) error {
	return s.save(ctx, a)
}

func (s AcceptanceRepo) Delete(ctx context.Context, id ident.AcceptanceID) error {
	return s.remove(ctx, id.String())
}

type MemberRepo struct {
	store[*domain.Member, domain.MemberState]
}

func (r Repo) Members() MemberRepo {
	return MemberRepo{store[*domain.Member, domain.MemberState]{repo: r, kind: kindMember, state: (*domain.Member).State, restore: domain.RestoreMember}}
}

func (s MemberRepo) FindByID(ctx context.Context, id ident.MemberID) (*domain.Member, error) {
	return s.find(ctx, id.String())
}

func (s MemberRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.Member, error) {
	return s.byWorkspace(ctx, workspaceID)
}

// FindByUser returns the membership a user holds in a workspace.
func (s MemberRepo) FindByUser(ctx context.Context, workspaceID ident.WorkspaceID, userID ident.UserID) (*domain.Member, error) {
	members, err := s.list(ctx, `workspace_id=? AND json_extract(state_json,'$.user_id')=?`, workspaceID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	return first(members, kindMember+" for user "+userID.String())
}

func (s MemberRepo) Save(ctx context.Context, m *domain.Member) error { return s.save(ctx, m) }

func (s MemberRepo) Delete(ctx context.Context, id ident.MemberID) error {
	return s.remove(ctx, id.String())
}

type RoleRepo struct {
	store[*domain.Role, domain.RoleState]
}

func (r Repo) Roles() RoleRepo {
	return RoleRepo{store[*domain.Role, domain.RoleState]{repo: r, kind: kindRole, state: (*domain.Role).State, restore: domain.RestoreRole}}
}

func (s RoleRepo) FindByID(ctx context.Context, id ident.RoleID) (*domain.Role, error) {
	return s.find(ctx, id.String())
}

func (s RoleRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.Role, error) {
	return s.byWorkspace(ctx, workspaceID)
}

func (s RoleRepo) Save(ctx context.Context, role *domain.Role) error { return s.save(ctx, role) }

func (s RoleRepo) Delete(ctx context.Context, id ident.RoleID) error {
	return s.remove(ctx, id.String())
}

type TemplateRepo struct {
	store[*domain.Template, domain.TemplateState]
}

func (r Repo) Templates() TemplateRepo {
	return TemplateRepo{store[*domain.Template, domain.TemplateState]{repo: r, kind: kindTemplate, state: (*domain.Template).State, restore: domain.RestoreTemplate}}
}

func (s TemplateRepo) FindByID(ctx context.Context, id ident.TemplateID) (*domain.Template, error) {
	return s.find(ctx, id.String())
}

func (s TemplateRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.Template, error) {
	return s.byWorkspace(ctx, workspaceID)
}

func (s TemplateRepo) Save(ctx context.Context, t *domain.Template) error { return s.save(ctx, t) }

func (s TemplateRepo) Delete(ctx context.Context, id ident.TemplateID) error {
	return s.remove(ctx, id.String())
}

type DailyEntryRepo struct {
	store[*domain.DailyEntry, domain.DailyEntryState]
}

func (r Repo) DailyEntries() DailyEntryRepo {
	return DailyEntryRepo{store[*domain.DailyEntry, domain.DailyEntryState]{repo: r, kind: kindDailyEntry, state: (*domain.DailyEntry).State, restore: domain.RestoreDailyEntry}}
}

func (s DailyEntryRepo) FindByID(ctx context.Context, id ident.DailyEntryID) (*domain.DailyEntry, error) {
	return s.find(ctx, id.String())
}

func (s DailyEntryRepo) FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]*domain.DailyEntry, error) {
	return s.byWorkspace(ctx, workspaceID)
}

// FindByUserAndDate returns every entry a user logged on a YYYY-MM-DD date.
func (s DailyEntryRepo) FindByUserAndDate(ctx context.Context, userID ident.UserID, date string) ([]*domain.DailyEntry, error) {
	return s.list(ctx, `json_extract(state_json,'$.user_id')=? AND json_extract(state_json,'$.date')=?`, userID.String(), date)
}

func (s DailyEntryRepo) Save(ctx context.Context, d *domain.DailyEntry) error {
	return s.save(ctx, d)
}

func (s DailyEntryRepo) Delete(ctx context.Context, id ident.DailyEntryID) error {
	return s.remove(ctx, id.String())
}

// SettingsRepo stores one settings document per workspace, keyed by the workspace id.
type SettingsRepo struct {
	store[*domain.WorkspaceSettings, domain.SettingsState]
}

func (r Repo) Settings() SettingsRepo {
	return SettingsRepo{store[*domain.WorkspaceSettings, domain.SettingsState]{repo: r, kind: kindSettings, state: (*domain.WorkspaceSettings).State, restore: domain.RestoreSettings}}
}

func (s SettingsRepo) FindByID(ctx context.Context, workspaceID ident.WorkspaceID) (*domain.WorkspaceSettings, error) {
	return s.find(ctx, workspaceID.String())
}

func (s SettingsRepo) Save(ctx context.Context, settings *domain.WorkspaceSettings) error {
	return s.save(ctx, settings)
}
