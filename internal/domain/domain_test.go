package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func testFactory() events.Factory {
	return events.Factory{IDs: &ident.Sequence{Prefix: "id"}, Now: func() time.Time { return testNow }}
}

var ws = ident.MustCreate[ident.Workspace]("ws-1")

func str(s string) *string { return &s }

func newTask(t *testing.T, f events.Factory, title string) *Task {
	t.Helper()
	task, err := NewTask(f, NewTaskParams{WorkspaceID: ws, Title: title})
	require.NoError(t, err)
	return task
}

func isViolation(t *testing.T, err error) *policy.Violation {
	t.Helper()
	var v *policy.Violation
	require.True(t, errors.As(err, &v), "expected policy violation, got %v", err)
	return v
}

func TestValueObjects(t *testing.T) {
	_, err := NewManDay(1.01)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "man_day", ve.Field)
	_, err = NewManDay(math.NaN())
	assert.Error(t, err)
	md, err := NewManDay(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, md.Float())

	_, err = NewProgress(101)
	assert.Error(t, err)
	_, err = NewProgress(-1)
	assert.Error(t, err)

	_, err = NewMoney(100, "usd")
	assert.Error(t, err)
	a, err := NewMoney(150, "TWD")
	require.NoError(t, err)
	sum, err := a.Add(Money{Amount: 50, Currency: "TWD"})
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum.Amount)
	_, err = a.Add(Money{Amount: 1, Currency: "USD"})
	assert.Error(t, err)

	r, err := NewDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, 31, r.Days())
	assert.True(t, r.Contains("2024-01-15"))
	assert.False(t, r.Contains("2024-02-01"))
	_, err = NewDateRange("2024-02-01", "2024-01-01")
	assert.Error(t, err)
}

func TestPullDomainEventsDrainsOnce(t *testing.T) {
	task := newTask(t, testFactory(), "Install rebar")
	require.True(t, task.HasPendingEvents())

	first := task.PullDomainEvents()
	require.Len(t, first, 1)
	assert.Equal(t, events.TaskCreated, first[0].Type)
	assert.Empty(t, task.PullDomainEvents())

	p, _ := NewProgress(40)
	require.NoError(t, task.UpdateProgress(p))
	require.NoError(t, task.ChangeStatus(TaskInProgress, nil))
	evts := task.PullDomainEvents()
	require.Len(t, evts, 2)
	assert.Equal(t, events.TaskProgressUpdated, evts[0].Type)
	assert.Equal(t, events.TaskStatusChanged, evts[1].Type)
}

func TestClearDomainEvents(t *testing.T) {
	task := newTask(t, testFactory(), "Install rebar")
	task.ClearDomainEvents()
	assert.False(t, task.HasPendingEvents())
	assert.Empty(t, task.PullDomainEvents())
}

func TestEqualityIsByIdentity(t *testing.T) {
	f := testFactory()
	task := newTask(t, f, "Formwork")
	copyOf := RestoreTask(f, task.State(), 3)
	assert.True(t, task.Equals(copyOf))
	assert.False(t, task.Equals(newTask(t, f, "Formwork")))
	assert.False(t, task.Equals(nil))
}

func TestNewTaskRejectsShortTitleWithoutEvents(t *testing.T) {
	_, err := NewTask(testFactory(), NewTaskParams{WorkspaceID: ws, Title: "ab"})
	v := isViolation(t, err)
	assert.Equal(t, "task title", v.Policy)
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	task := newTask(t, testFactory(), "Formwork")
	task.PullDomainEvents()

	err := task.ChangeStatus(TaskCompleted, nil)
	v := isViolation(t, err)
	assert.Equal(t, []string{"Cannot transition from TODO to COMPLETED"}, v.Reasons)
	assert.Equal(t, TaskTodo, task.Status())
	assert.False(t, task.HasPendingEvents())
}

func TestSubmitForQCReportsEveryReason(t *testing.T) {
	task := newTask(t, testFactory(), "Formwork")
	err := task.SubmitForQC(2, nil)
	v := isViolation(t, err)
	assert.Len(t, v.Reasons, 3)

	require.NoError(t, task.ChangeStatus(TaskInProgress, nil))
	p, _ := NewProgress(100)
	require.NoError(t, task.UpdateProgress(p))
	task.PullDomainEvents()

	require.NoError(t, task.SubmitForQC(0, nil))
	assert.Equal(t, TaskInQC, task.Status())
	evts := task.PullDomainEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TaskSubmittedForQC, evts[0].Type)
	assert.Equal(t, "IN_PROGRESS", evts[0].Payload.(events.TaskSubmittedForQCPayload).From)
}

func TestTaskLifecycleToCompletion(t *testing.T) {
	task := newTask(t, testFactory(), "Formwork")
	require.NoError(t, task.ChangeStatus(TaskInProgress, nil))
	p, _ := NewProgress(100)
	require.NoError(t, task.UpdateProgress(p))
	require.NoError(t, task.SubmitForQC(0, nil))
	assert.Error(t, task.UpdateProgress(p))
	require.NoError(t, task.MoveToAcceptance())
	require.NoError(t, task.Complete(nil))
	assert.Equal(t, "Completed", task.Status().DisplayName())
	assert.Equal(t, "In QC", TaskInQC.DisplayName())
}

func TestAddSubtaskHonoursDepthLimit(t *testing.T) {
	f := testFactory()
	var tasks []*Task
	var nodes []policy.TaskNode
	root := newTask(t, f, "Level 0")
	tasks = append(tasks, root)
	nodes = append(nodes, root.Node())
	for i := 1; i <= 10; i++ {
		parent := tasks[i-1]
		pid := parent.ID()
		child, err := NewTask(f, NewTaskParams{WorkspaceID: ws, Title: "Level deeper", ParentID: &pid})
		require.NoError(t, err)
		require.NoError(t, parent.AddSubtask(child, nodes))
		tasks = append(tasks, child)
		nodes = append(nodes, child.Node())
	}
	deepest := tasks[10]
	pid := deepest.ID()
	child, err := NewTask(f, NewTaskParams{WorkspaceID: ws, Title: "Too deep", ParentID: &pid})
	require.NoError(t, err)
	isViolation(t, deepest.AddSubtask(child, nodes))

	evts := tasks[9].PullDomainEvents()
	last := evts[len(evts)-1]
	assert.Equal(t, 10, last.Payload.(events.SubtaskAddedPayload).Depth)

	stranger := newTask(t, f, "Unrelated")
	var ve *ValidationError
	assert.True(t, errors.As(root.AddSubtask(stranger, nodes), &ve))
}

func TestAcceptanceTransitions(t *testing.T) {
	assert.Equal(t, policy.Transition{Valid: false, Reason: "No change"}, ValidateAcceptanceTransition(AcceptancePending, AcceptancePending))
	assert.Equal(t, policy.Transition{Valid: true}, ValidateAcceptanceTransition(AcceptanceRejected, AcceptancePending))
	assert.Equal(t, policy.Transition{Valid: false, Reason: "Cannot transition from APPROVED to PENDING"}, ValidateAcceptanceTransition(AcceptanceApproved, AcceptancePending))
}

func TestContextAllowLists(t *testing.T) {
	assert.True(t, ValidateQCTransition(QCFailed, QCPending).Valid)
	assert.False(t, ValidateQCTransition(QCPassed, QCFailed).Valid)
	assert.True(t, ValidateIssueTransition(IssueResolved, IssueOpen).Valid)
	assert.False(t, ValidateIssueTransition(IssueClosed, IssueOpen).Valid)
	assert.True(t, ValidatePermissionTransition(PermissionRevoked, PermissionGranted).Valid)
	assert.Equal(t, "No change", ValidatePermissionTransition(PermissionGranted, PermissionGranted).Reason)
	assert.True(t, ValidateMemberTransition(MemberSuspended, MemberActive).Valid)
	assert.False(t, ValidateMemberTransition(MemberRemoved, MemberActive).Valid)
	assert.True(t, ValidateTaskTransition(TaskReady, TaskInQC).Valid)
}

func TestAcceptanceRoundTrip(t *testing.T) {
	f := testFactory()
	task := ident.MustCreate[ident.Task]("task-1")
	acc, err := RequestAcceptance(f, ws, task, nil)
	require.NoError(t, err)
	created := acc.PullDomainEvents()[0]

	require.NoError(t, acc.Reject(nil, nil))
	assert.Error(t, acc.Approve(nil, nil))
	require.NoError(t, acc.Resubmit())
	require.NoError(t, acc.Approve(str("ok"), nil))
	assert.Equal(t, 2, acc.State().Round)

	evts := acc.PullDomainEvents()
	require.Len(t, evts, 3)
	for _, e := range evts {
		assert.Equal(t, created.CorrelationID, e.CorrelationID, e.Type)
	}
	assert.Equal(t, created.EventID.String(), evts[0].CausationID.String())
	assert.Equal(t, evts[1].EventID.String(), evts[2].CausationID.String())

	rejected := evts[0].Payload.(events.AcceptanceRejectedPayload)
	assert.Nil(t, rejected.ReviewNotes)
	approved := evts[2].Payload.(events.AcceptanceApprovedPayload)
	require.NotNil(t, approved.ApprovalNotes)
}

func TestIssueContinuesWorkflowAfterRestore(t *testing.T) {
	f := testFactory()
	trigger, err := f.New("qc-1", events.QCFailedPayload{CheckID: ident.MustCreate[ident.QCCheck]("qc-1"), TaskID: ident.MustCreate[ident.Task]("task-1"), Reason: "gap"})
	require.NoError(t, err)

	issue, err := OpenIssue(f, OpenIssueParams{WorkspaceID: ws, TaskID: ident.MustCreate[ident.Task]("task-1"), Title: "Gap in slab", Blocking: true}, events.CausedBy(trigger))
	require.NoError(t, err)
	created := issue.PullDomainEvents()[0]
	assert.Equal(t, trigger.CorrelationID, created.CorrelationID)
	assert.True(t, issue.IsBlockingOpen())

	loaded := RestoreIssue(f, issue.State(), 1)
	require.NoError(t, loaded.Resolve(str("patched"), nil))
	resolved := loaded.PullDomainEvents()[0]
	assert.Equal(t, trigger.CorrelationID, resolved.CorrelationID)
	assert.Equal(t, created.EventID.String(), resolved.CausationID.String())
	assert.False(t, loaded.IsBlockingOpen())

	require.NoError(t, loaded.Close())
	isViolation(t, loaded.Reopen(nil))
}

func TestQCCheckFailAndRecheck(t *testing.T) {
	f := testFactory()
	check, err := OpenQCCheck(f, ws, ident.MustCreate[ident.Task]("task-1"))
	require.NoError(t, err)
	var ve *ValidationError
	require.True(t, errors.As(check.Fail("  ", nil, nil), &ve))
	require.NoError(t, check.Fail("uneven surface", nil, nil))
	isViolation(t, check.Pass(nil, nil))
	require.NoError(t, check.RequestRecheck())
	require.NoError(t, check.Pass(nil, nil))
	assert.Equal(t, 2, check.State().Attempt)
}

func TestMemberLifecycle(t *testing.T) {
	f := testFactory()
	role := ident.MustCreate[ident.Role]("inspector")
	_, err := InviteMember(f, ws, "not-an-email", role, nil)
	assert.Error(t, err)

	m, err := InviteMember(f, ws, "Ana <ana@example.com>", role, nil)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", m.State().Email)
	isViolation(t, m.ChangeStatus(MemberActive))
	require.NoError(t, m.Join(ident.MustCreate[ident.User]("u-ana")))
	require.NoError(t, m.ChangeStatus(MemberSuspended))
	isViolation(t, m.ChangeRole(ident.MustCreate[ident.Role]("viewer")))
	require.NoError(t, m.ChangeStatus(MemberActive))
	isViolation(t, m.ChangeRole(role))
	require.NoError(t, m.ChangeRole(ident.MustCreate[ident.Role]("viewer")))
	require.NoError(t, m.ChangeStatus(MemberRemoved))
	isViolation(t, m.Join(ident.MustCreate[ident.User]("u-ana")))
}

func TestRolePermissions(t *testing.T) {
	f := testFactory()
	_, err := NewRole(f, ident.RoleID{}, ws, "admin")
	isViolation(t, err)

	r, err := NewRole(f, ident.RoleID{}, ws, "Inspector")
	require.NoError(t, err)
	isViolation(t, r.Revoke("qc.decide"))
	require.NoError(t, r.Grant("qc.decide"))
	assert.True(t, r.HasPermission("qc.decide"))
	v := isViolation(t, r.Grant("qc.decide"))
	assert.Equal(t, []string{"No change"}, v.Reasons)
	require.NoError(t, r.Revoke("qc.decide"))
	assert.False(t, r.HasPermission("qc.decide"))
	require.NoError(t, r.Grant("task.write"))
	assert.Equal(t, []string{"task.write"}, r.Granted())
}

func TestTemplateNaming(t *testing.T) {
	f := testFactory()
	_, err := NewTemplate(f, ws, "Untitled", nil)
	isViolation(t, err)
	tpl, err := NewTemplate(f, ws, "Slab checklist", str("- level\n- cure"))
	require.NoError(t, err)
	require.NoError(t, tpl.Rename("Slab checklist v2"))
	isViolation(t, tpl.Rename("deprecated slab"))
	assert.Equal(t, "Slab checklist v2", tpl.Name())
	assert.Len(t, tpl.PullDomainEvents(), 2)
}

func TestLogWorkPolicies(t *testing.T) {
	f := testFactory()
	u1 := ident.MustCreate[ident.User]("u1")
	task := ident.MustCreate[ident.Task]("task-1")
	half, _ := NewManDay(0.5)
	six, _ := NewManDay(0.6)
	four, _ := NewManDay(0.4)
	base := LogWorkParams{WorkspaceID: ws, UserID: u1, TaskID: task, TaskStatus: "In Progress", Date: "2024-01-09"}

	p := base
	p.Headcount = half
	entry, err := LogWork(f, p)
	require.NoError(t, err)
	existing := []policy.WorkEntry{entry.WorkEntry()}

	p = base
	p.Headcount = six
	p.Existing = existing
	_, err = LogWork(f, p)
	assert.Equal(t, "work hour", isViolation(t, err).Policy)

	p.Headcount = half
	_, err = LogWork(f, p)
	require.NoError(t, err)

	p = base
	p.Headcount = four
	p.TaskStatus = TaskCompleted.DisplayName()
	_, err = LogWork(f, p)
	assert.Equal(t, "task completion", isViolation(t, err).Policy)

	p = base
	p.Headcount = four
	p.Date = "2023-12-01"
	_, err = LogWork(f, p)
	assert.Equal(t, "historical entry", isViolation(t, err).Policy)

	p.Date = "2024-01-11"
	_, err = LogWork(f, p)
	assert.Equal(t, "historical entry", isViolation(t, err).Policy)

	p.Date = "09/01/2024"
	_, err = LogWork(f, p)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	require.NoError(t, entry.Adjust(four, nil))
	assert.Equal(t, 0.4, entry.State().Headcount)
	isViolation(t, entry.Adjust(six, []policy.WorkEntry{{UserID: u1, Date: "2024-01-09", Headcount: 0.5}}))
}

func TestSettingsUpdate(t *testing.T) {
	f := testFactory()
	s := DefaultSettings(f, ws)
	v := isViolation(t, s.Update(str("neon"), str("tlh")))
	assert.Len(t, v.Reasons, 2)
	assert.False(t, s.HasPendingEvents())

	require.NoError(t, s.Update(str("dark"), nil))
	evts := s.PullDomainEvents()
	require.Len(t, evts, 1)
	payload := evts[0].Payload.(events.SettingsUpdatedPayload)
	require.NotNil(t, payload.Theme)
	assert.Nil(t, payload.Language)

	require.NoError(t, s.Update(str("dark"), str("en")))
	assert.False(t, s.HasPendingEvents())
}
