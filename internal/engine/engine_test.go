package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/migrate"
	"taskflow/internal/repo"
)

const actor = "alice"

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	factory := events.Factory{
		IDs: &ident.Sequence{Prefix: "id"},
		Now: func() time.Time { return time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC) },
	}
	eng := engine.New(conn, config.Default("ws-1"), engine.WithFactory(factory))
	ctx := context.Background()
	res := eng.InitWorkspace(ctx, engine.InitWorkspaceRequest{ActorID: actor})
	require.True(t, res.Success, res.Error)
	return testEnv{Engine: eng, Ctx: ctx}
}

// readyTask creates a task at full progress, ready for QC.
func readyTask(t *testing.T, env testEnv, title string) domain.TaskState {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: title, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.ChangeTaskStatus(env.Ctx, engine.ChangeTaskStatusRequest{TaskID: task.ID.String(), Status: "in_progress", ActorID: actor}).Unwrap()
	require.NoError(t, err)
	task, err = env.Engine.UpdateProgress(env.Ctx, engine.UpdateProgressRequest{TaskID: task.ID.String(), Progress: 100, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	return task
}

func TestInitWorkspaceSeedsRolesAndOwner(t *testing.T) {
	env := newTestEnv(t)
	view, err := env.Engine.Workspace(env.Ctx).Unwrap()
	require.NoError(t, err)
	require.Len(t, view.Roles, 3)
	require.Len(t, view.Members, 1)
	assert.Equal(t, domain.MemberActive, view.Members[0].Status)
	assert.Equal(t, "manager", view.Members[0].RoleID.String())

	again := env.Engine.InitWorkspace(env.Ctx, engine.InitWorkspaceRequest{ActorID: actor})
	require.True(t, again.Success, again.Error)
	assert.Len(t, again.Data.Roles, 3)
	assert.Len(t, again.Data.Members, 1)
}

func TestTaskLifecycleThroughQCAndAcceptance(t *testing.T) {
	env := newTestEnv(t)
	task := readyTask(t, env, "Pour foundation")
	id := task.ID.String()

	task, err := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInQC, task.Status)

	checks, err := env.Engine.ListQCChecks(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, domain.QCPending, checks[0].Status)

	_, err = env.Engine.FailQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, Reason: "cracks in slab", ActorID: actor}).Unwrap()
	require.NoError(t, err)

	task, err = env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)
	issues, err := env.Engine.ListIssues(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Blocking)
	assert.Equal(t, "QC failed: cracks in slab", issues[0].Title)
	assert.Equal(t, checks[0].ID, *issues[0].QCCheckID)

	blocked := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor})
	assert.False(t, blocked.Success)
	assert.Equal(t, engine.CodeValidation, blocked.Code)

	_, err = env.Engine.ResolveIssue(env.Ctx, engine.IssueRequest{IssueID: issues[0].ID.String(), ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)

	checks, err = env.Engine.ListQCChecks(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, checks, 1, "resubmission rechecks the failed check")
	assert.Equal(t, domain.QCPending, checks[0].Status)
	assert.Equal(t, 2, checks[0].Attempt)

	_, err = env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	task, err = env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInAcceptance, task.Status)

	acc, err := env.Engine.ApproveAcceptance(env.Ctx, engine.AcceptanceDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptanceApproved, acc.Status)

	task, err = env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, task.Status)
}

func TestAcceptanceRejectionReturnsTaskAndResubmits(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Paint walls").ID.String()

	_, err := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	notes := "wrong colour"
	_, err = env.Engine.RejectAcceptance(env.Ctx, engine.AcceptanceDecisionRequest{TaskID: id, Notes: &notes, ActorID: actor}).Unwrap()
	require.NoError(t, err)

	task, err := env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)

	_, err = env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	checks, err := env.Engine.ListQCChecks(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, checks, 2, "a passed check is not reused")

	_, err = env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	list, err := env.Engine.ListAcceptances(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.AcceptancePending, list[0].Status)
	assert.Equal(t, 2, list[0].Round)
}

func TestAcceptanceDecisionsNeedTaskInAcceptance(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Tile bathroom").ID.String()

	_, err := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.RejectAcceptance(env.Ctx, engine.AcceptanceDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)

	resubmit := env.Engine.ResubmitAcceptance(env.Ctx, engine.AcceptanceDecisionRequest{TaskID: id, ActorID: actor})
	assert.False(t, resubmit.Success)
	assert.Equal(t, engine.CodeValidation, resubmit.Code)
	assert.Contains(t, resubmit.Error, "IN_PROGRESS")

	approve := env.Engine.ApproveAcceptance(env.Ctx, engine.AcceptanceDecisionRequest{TaskID: id, ActorID: actor})
	assert.False(t, approve.Success)
	assert.Equal(t, engine.CodeValidation, approve.Code)

	list, err := env.Engine.ListAcceptances(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.AcceptanceRejected, list[0].Status)
	task, err := env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)
}

func TestRecheckResubmitsTaskThroughReadiness(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Seal roof").ID.String()

	_, err := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.FailQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, Reason: "leaks at ridge", ActorID: actor}).Unwrap()
	require.NoError(t, err)

	// the blocking issue from the failure keeps the task out of QC
	blocked := env.Engine.RequestRecheck(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor})
	assert.False(t, blocked.Success)
	assert.Equal(t, engine.CodeValidation, blocked.Code)

	pass := env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor})
	assert.False(t, pass.Success)
	assert.Equal(t, engine.CodeValidation, pass.Code)

	checks, err := env.Engine.ListQCChecks(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, domain.QCFailed, checks[0].Status)
	assert.Equal(t, 1, checks[0].Attempt)

	issues, err := env.Engine.ListIssues(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	_, err = env.Engine.ResolveIssue(env.Ctx, engine.IssueRequest{IssueID: issues[0].ID.String(), ActorID: actor}).Unwrap()
	require.NoError(t, err)

	check, err := env.Engine.RequestRecheck(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.QCPending, check.Status)
	assert.Equal(t, 2, check.Attempt)
	task, err := env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInQC, task.Status)

	_, err = env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	task, err = env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInAcceptance, task.Status)
	checks, err = env.Engine.ListQCChecks(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Len(t, checks, 1)
}

func TestRefusedReactionRollsBackDecision(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Hang doors").ID.String()
	_, err := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)

	env.Engine.Bus.Subscribe(events.QCPassed, func(context.Context, events.CausalEvent) error {
		return &domain.ValidationError{Field: "task", Message: "refused"}
	})
	res := env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor})
	assert.False(t, res.Success)
	assert.Equal(t, engine.CodeValidation, res.Code)

	checks, err := env.Engine.ListQCChecks(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, domain.QCPending, checks[0].Status)
	task, err := env.Engine.GetTask(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInQC, task.Status)
	passed, err := env.Engine.ListEvents(env.Ctx, engine.ListEventsRequest{
		EventFilters: repo.EventFilters{Type: string(events.QCPassed)},
		ActorID:      actor,
	}).Unwrap()
	require.NoError(t, err)
	assert.Empty(t, passed)
	acceptances, err := env.Engine.ListAcceptances(env.Ctx, id).Unwrap()
	require.NoError(t, err)
	assert.Empty(t, acceptances)
}

func TestAuditTrailFollowsOneWorkflow(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Install windows").ID.String()
	_, err := env.Engine.SubmitForQC(env.Ctx, engine.SubmitForQCRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.PassQC(env.Ctx, engine.QCDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.ApproveAcceptance(env.Ctx, engine.AcceptanceDecisionRequest{TaskID: id, ActorID: actor}).Unwrap()
	require.NoError(t, err)

	done, err := env.Engine.ListEvents(env.Ctx, engine.ListEventsRequest{
		EventFilters: repo.EventFilters{Type: string(events.TaskCompleted)},
		ActorID:      actor,
	}).Unwrap()
	require.NoError(t, err)
	require.Len(t, done, 1)

	trail, err := env.Engine.AuditTrail(env.Ctx, engine.AuditTrailRequest{CorrelationID: done[0].CorrelationID, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	var got []string
	var depths []int
	for _, entry := range trail {
		got = append(got, entry.Type)
		depths = append(depths, entry.Depth)
	}
	assert.Equal(t, []string{
		"TaskSubmittedForQC",
		"QCCheckCreated",
		"QCPassed",
		"TaskStatusChanged",
		"AcceptanceRequested",
		"AcceptanceApproved",
		"TaskCompleted",
	}, got)
	assert.Equal(t, []int{0, 1, 2, 3, 3, 4, 5}, depths)
	assert.Nil(t, trail[0].CausationID)

	chain, err := env.Engine.AuditTrail(env.Ctx, engine.AuditTrailRequest{
		CorrelationID: done[0].CorrelationID,
		EventID:       done[0].EventID,
		ActorID:       actor,
	}).Unwrap()
	require.NoError(t, err)
	require.Len(t, chain, 6)
	assert.Equal(t, "TaskCompleted", chain[0].Type)
	assert.Equal(t, "TaskSubmittedForQC", chain[5].Type)
}

func TestPermissionsComeFromRole(t *testing.T) {
	env := newTestEnv(t)

	res := env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "Sneaky", ActorID: "mallory"})
	assert.False(t, res.Success)
	assert.Equal(t, engine.CodeForbidden, res.Code)

	inv, err := env.Engine.InviteMember(env.Ctx, engine.InviteMemberRequest{Email: "ivy@example.com", RoleID: "inspector", ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.MemberInvited, inv.Status)

	// invited is not active yet
	res = env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "Too early", ActorID: "ivy"})
	assert.Equal(t, engine.CodeForbidden, res.Code)

	joined, err := env.Engine.JoinMember(env.Ctx, engine.JoinMemberRequest{MemberID: inv.ID.String(), UserID: "ivy"}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.MemberActive, joined.Status)

	res = env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "Inspectors cannot", ActorID: "ivy"})
	assert.Equal(t, engine.CodeForbidden, res.Code)

	_, err = env.Engine.GrantPermission(env.Ctx, engine.RoleRequest{RoleID: "inspector", Value: "task.write", ActorID: actor}).Unwrap()
	require.NoError(t, err)
	res = env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "Now they can", ActorID: "ivy"})
	assert.True(t, res.Success, res.Error)

	_, err = env.Engine.ChangeMemberStatus(env.Ctx, engine.ChangeMemberStatusRequest{MemberID: inv.ID.String(), Status: "suspended", ActorID: actor}).Unwrap()
	require.NoError(t, err)
	res = env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "Suspended", ActorID: "ivy"})
	assert.Equal(t, engine.CodeForbidden, res.Code)
}

func TestRoleValidation(t *testing.T) {
	env := newTestEnv(t)

	dup := env.Engine.CreateRole(env.Ctx, engine.CreateRoleRequest{Name: "MANAGER", ActorID: actor})
	assert.Equal(t, engine.CodeValidation, dup.Code)

	reserved := env.Engine.CreateRole(env.Ctx, engine.CreateRoleRequest{Name: "admin", ActorID: actor})
	assert.Equal(t, engine.CodeValidation, reserved.Code)

	unknown := env.Engine.CreateRole(env.Ctx, engine.CreateRoleRequest{Name: "Auditor", Permissions: []string{"everything"}, ActorID: actor})
	assert.Equal(t, engine.CodeValidation, unknown.Code)

	role, err := env.Engine.CreateRole(env.Ctx, engine.CreateRoleRequest{Name: "Auditor", Permissions: []string{"events.read"}, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, role.Permissions["events.read"])
}

func TestChangeTaskStatusRejectsWorkflowStatuses(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Fit doors").ID.String()
	for _, status := range []string{"IN_QC", "in_acceptance", "COMPLETED"} {
		res := env.Engine.ChangeTaskStatus(env.Ctx, engine.ChangeTaskStatusRequest{TaskID: id, Status: status, ActorID: actor})
		assert.Equal(t, engine.CodeValidation, res.Code, status)
	}
	missing := env.Engine.GetTask(env.Ctx, "nope")
	assert.Equal(t, engine.CodeNotFound, missing.Code)
	empty := env.Engine.GetTask(env.Ctx, "")
	assert.Equal(t, engine.CodeValidation, empty.Code)
}

func TestSubtasks(t *testing.T) {
	env := newTestEnv(t)
	parent, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "House", ActorID: actor}).Unwrap()
	require.NoError(t, err)
	child, err := env.Engine.AddSubtask(env.Ctx, engine.CreateTaskRequest{Title: "Roof", ParentID: parent.ID.String(), ActorID: actor}).Unwrap()
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	kids, err := env.Engine.ListTasks(env.Ctx, engine.ListTasksRequest{ParentID: parent.ID.String()}).Unwrap()
	require.NoError(t, err)
	require.Len(t, kids, 1)

	missingParent := env.Engine.AddSubtask(env.Ctx, engine.CreateTaskRequest{Title: "Orphan", ActorID: actor})
	assert.Equal(t, engine.CodeValidation, missingParent.Code)
}

func TestConcurrentSaveIsConflict(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskRequest{Title: "Race", ActorID: actor}).Unwrap()
	require.NoError(t, err)

	a, err := env.Engine.Tasks.FindByID(env.Ctx, task.ID)
	require.NoError(t, err)
	b, err := env.Engine.Tasks.FindByID(env.Ctx, task.ID)
	require.NoError(t, err)
	require.NoError(t, a.ChangeStatus(domain.TaskInProgress, nil))
	require.NoError(t, env.Engine.Tasks.Save(env.Ctx, a))
	require.NoError(t, b.ChangeStatus(domain.TaskCancelled, nil))
	err = env.Engine.Tasks.Save(env.Ctx, b)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, engine.CodeConflict, engine.Classify(err))
}

func TestDailyLogCapsOneManDay(t *testing.T) {
	env := newTestEnv(t)
	task := readyTask(t, env, "Survey site")
	id := task.ID.String()

	first, err := env.Engine.LogWork(env.Ctx, engine.LogWorkRequest{TaskID: id, Date: "2024-03-05", Headcount: 0.6, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, actor, first.UserID.String())

	over := env.Engine.LogWork(env.Ctx, engine.LogWorkRequest{TaskID: id, Date: "2024-03-05", Headcount: 0.5, ActorID: actor})
	assert.Equal(t, engine.CodeValidation, over.Code)

	_, err = env.Engine.AdjustEntry(env.Ctx, engine.AdjustEntryRequest{EntryID: first.ID.String(), Headcount: 0.4, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.LogWork(env.Ctx, engine.LogWorkRequest{TaskID: id, Date: "2024-03-05", Headcount: 0.5, ActorID: actor}).Unwrap()
	require.NoError(t, err)

	old := env.Engine.LogWork(env.Ctx, engine.LogWorkRequest{TaskID: id, Date: "2023-12-01", Headcount: 0.1, ActorID: actor})
	assert.Equal(t, engine.CodeValidation, old.Code)

	entries, err := env.Engine.ListEntries(env.Ctx, engine.ListEntriesRequest{UserID: actor, Date: "2024-03-05"}).Unwrap()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestConcurrentLogWorkKeepsDailyCap(t *testing.T) {
	env := newTestEnv(t)
	id := readyTask(t, env, "Clear site").ID.String()

	const writers = 4
	var wg sync.WaitGroup
	results := make([]engine.Result[domain.DailyEntryState], writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = env.Engine.LogWork(env.Ctx, engine.LogWorkRequest{TaskID: id, Date: "2024-03-05", Headcount: 0.6, ActorID: actor})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
			continue
		}
		assert.Equal(t, engine.CodeValidation, r.Code, r.Error)
	}
	assert.Equal(t, 1, succeeded)
	entries, err := env.Engine.ListEntries(env.Ctx, engine.ListEntriesRequest{UserID: actor, Date: "2024-03-05"}).Unwrap()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.GetSettings(env.Ctx).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTheme, s.Theme)
	assert.Equal(t, domain.DefaultLanguage, s.Language)

	dark := "dark"
	s, err = env.Engine.UpdateSettings(env.Ctx, engine.UpdateSettingsRequest{Theme: &dark, ActorID: actor}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "dark", s.Theme)

	bad := "klingon"
	res := env.Engine.UpdateSettings(env.Ctx, engine.UpdateSettingsRequest{Language: &bad, ActorID: actor})
	assert.Equal(t, engine.CodeValidation, res.Code)

	s, err = env.Engine.GetSettings(env.Ctx).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "dark", s.Theme)
}

func TestTemplateHistory(t *testing.T) {
	env := newTestEnv(t)
	tpl, err := env.Engine.CreateTemplate(env.Ctx, engine.CreateTemplateRequest{Name: "Kitchen fit-out", ActorID: actor}).Unwrap()
	require.NoError(t, err)
	_, err = env.Engine.RenameTemplate(env.Ctx, engine.RenameTemplateRequest{TemplateID: tpl.ID.String(), Name: "Kitchen install", ActorID: actor}).Unwrap()
	require.NoError(t, err)

	dup := env.Engine.CreateTemplate(env.Ctx, engine.CreateTemplateRequest{Name: "kitchen INSTALL", ActorID: actor})
	assert.Equal(t, engine.CodeValidation, dup.Code)

	history, err := env.Engine.GetTemplateHistory(env.Ctx, tpl.ID.String()).Unwrap()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "TemplateCreated", history[0].Type)
	assert.Equal(t, "TemplateRenamed", history[1].Type)
	assert.Less(t, history[0].Seq, history[1].Seq)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, engine.Code(""), engine.Classify(nil))
	assert.Equal(t, engine.CodeValidation, engine.Classify(&domain.ValidationError{Field: "x", Message: "bad"}))
	assert.Equal(t, engine.CodeNotFound, engine.Classify(domain.ErrNotFound))
	assert.Equal(t, engine.CodeInternal, engine.Classify(assert.AnError))
}
