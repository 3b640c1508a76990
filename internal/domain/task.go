package domain

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type TaskStatus string

const (
	TaskTodo         TaskStatus = "TODO"
	TaskInProgress   TaskStatus = "IN_PROGRESS"
	TaskReady        TaskStatus = "READY"
	TaskInQC         TaskStatus = "IN_QC"
	TaskInAcceptance TaskStatus = "IN_ACCEPTANCE"
	TaskCompleted    TaskStatus = "COMPLETED"
	TaskCancelled    TaskStatus = "CANCELLED"
)

var taskTransitions = policy.Transitions[TaskStatus]{
	TaskTodo:         {TaskInProgress, TaskCancelled},
	TaskInProgress:   {TaskReady, TaskInQC, TaskCancelled},
	TaskReady:        {TaskInProgress, TaskInQC, TaskCancelled},
	TaskInQC:         {TaskInProgress, TaskInAcceptance},
	TaskInAcceptance: {TaskInProgress, TaskCompleted},
}

// ValidateTaskTransition checks a task status change against the task allow-list.
func ValidateTaskTransition(from, to TaskStatus) policy.Transition {
	return taskTransitions.Validate(from, to)
}

// DisplayName is the human label of a status, e.g. "In Progress", "Completed".
func (s TaskStatus) DisplayName() string {
	words := strings.Split(strings.ToLower(string(s)), "_")
	for i, w := range words {
		switch w {
		case "qc":
			words[i] = "QC"
		case "":
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (s TaskStatus) IsTerminal() bool { return s == TaskCompleted || s == TaskCancelled }

// TaskState is the persisted shape of a Task.
type TaskState struct {
	ID          ident.TaskID      `json:"id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	ParentID    *ident.TaskID     `json:"parent_id,omitempty"`
	Title       string            `json:"title"`
	Status      TaskStatus        `json:"status"`
	Progress    int               `json:"progress"`
	Budget      *Money            `json:"budget,omitempty"`
	Schedule    *DateRange        `json:"schedule,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type Task struct {
	Root[ident.TaskID]
	state TaskState
}

type NewTaskParams struct {
	ID          ident.TaskID
	WorkspaceID ident.WorkspaceID
	Title       string
	ParentID    *ident.TaskID
	Budget      *Money
	Schedule    *DateRange
	CreatedBy   *ident.UserID
}

// NewTask validates the title and raises TaskCreated.
func NewTask(f events.Factory, p NewTaskParams, opts ...events.Option) (*Task, error) {
	if p.WorkspaceID.IsZero() {
		return nil, invalid("workspace_id", "is required")
	}
	if err := policy.TaskNaming.AssertIsValid(p.Title); err != nil {
		return nil, err
	}
	id := p.ID
	if id.IsZero() {
		id = ident.Generate[ident.Task](f.IDs)
	}
	t := &Task{Root: newRoot(id, f)}
	title := strings.TrimSpace(p.Title)
	evts, err := t.build(opts, events.TaskCreatedPayload{
		TaskID:      id,
		WorkspaceID: p.WorkspaceID,
		Title:       title,
		ParentID:    p.ParentID,
		CreatedBy:   p.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	now := t.now()
	t.state = TaskState{
		ID:          id,
		WorkspaceID: p.WorkspaceID,
		ParentID:    p.ParentID,
		Title:       title,
		Status:      TaskTodo,
		Budget:      p.Budget,
		Schedule:    p.Schedule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.record(evts)
	return t, nil
}

// RestoreTask rebuilds a Task loaded from storage.
func RestoreTask(f events.Factory, s TaskState, version int) *Task {
	return &Task{Root: restoreRoot(s.ID, f, version, nil), state: s}
}

func (t *Task) State() TaskState               { return t.state }
func (t *Task) WorkspaceID() ident.WorkspaceID { return t.state.WorkspaceID }
func (t *Task) Title() string                  { return t.state.Title }
func (t *Task) Status() TaskStatus             { return t.state.Status }
func (t *Task) Progress() int                  { return t.state.Progress }
func (t *Task) ParentID() *ident.TaskID        { return t.state.ParentID }
func (t *Task) Equals(other *Task) bool        { return other != nil && t.SameIdentity(other.Entity) }

func (t *Task) Node() policy.TaskNode {
	return policy.TaskNode{ID: t.ID(), ParentID: t.state.ParentID}
}

func (t *Task) QCCandidate(blocking int) policy.QCCandidate {
	return policy.QCCandidate{Status: string(t.state.Status), Progress: t.state.Progress, BlockingIssues: blocking}
}

// AddSubtask attaches child below t if t is shallow enough.
func (t *Task) AddSubtask(child *Task, all []policy.TaskNode, opts ...events.Option) error {
	if child == nil || child.ParentID() == nil || !child.ParentID().Equals(t.ID()) {
		return invalid("parent_id", "subtask must reference task %s", t.ID())
	}
	if t.state.Status.IsTerminal() {
		return &policy.Violation{Policy: "task hierarchy", Reasons: []string{fmt.Sprintf("cannot add subtasks to a %s task", t.state.Status.DisplayName())}}
	}
	node := t.Node()
	if err := policy.DefaultHierarchy.AssertCanAddSubtask(node, all); err != nil {
		return err
	}
	evts, err := t.build(opts, events.SubtaskAddedPayload{
		ParentID:  t.ID(),
		SubtaskID: child.ID(),
		Depth:     policy.CalculateDepth(node, all) + 1,
	})
	if err != nil {
		return err
	}
	t.state.UpdatedAt = t.now()
	t.record(evts)
	return nil
}

// UpdateProgress records a new percentage. Setting the current value is a no-op.
func (t *Task) UpdateProgress(p Progress, opts ...events.Option) error {
	switch t.state.Status {
	case TaskTodo, TaskInProgress, TaskReady:
	default:
		return &policy.Violation{Policy: "task progress", Reasons: []string{fmt.Sprintf("progress cannot change while task is %s", t.state.Status)}}
	}
	if p.Int() == t.state.Progress {
		return nil
	}
	evts, err := t.build(opts, events.TaskProgressUpdatedPayload{TaskID: t.ID(), From: t.state.Progress, To: p.Int()})
	if err != nil {
		return err
	}
	t.state.Progress = p.Int()
	t.state.UpdatedAt = t.now()
	t.record(evts)
	return nil
}

// ChangeStatus moves the task along the allow-list.
func (t *Task) ChangeStatus(to TaskStatus, reason *string, opts ...events.Option) error {
	if err := taskTransitions.Assert("task status", t.state.Status, to); err != nil {
		return err
	}
	evts, err := t.build(opts, events.TaskStatusChangedPayload{TaskID: t.ID(), From: string(t.state.Status), To: string(to), Reason: reason})
	if err != nil {
		return err
	}
	t.state.Status = to
	t.state.UpdatedAt = t.now()
	t.record(evts)
	return nil
}

// SubmitForQC requires QC readiness and moves the task into QC.
func (t *Task) SubmitForQC(blockingIssues int, by *ident.UserID, opts ...events.Option) error {
	if err := policy.AssertReadyForQC(t.QCCandidate(blockingIssues)); err != nil {
		return err
	}
	if err := taskTransitions.Assert("task status", t.state.Status, TaskInQC); err != nil {
		return err
	}
	evts, err := t.build(opts, events.TaskSubmittedForQCPayload{TaskID: t.ID(), From: string(t.state.Status), SubmittedBy: by})
	if err != nil {
		return err
	}
	t.state.Status = TaskInQC
	t.state.UpdatedAt = t.now()
	t.record(evts)
	return nil
}

func (t *Task) ReturnToWork(reason string, opts ...events.Option) error {
	var r *string
	if reason != "" {
		r = &reason
	}
	return t.ChangeStatus(TaskInProgress, r, opts...)
}

func (t *Task) MoveToAcceptance(opts ...events.Option) error {
	return t.ChangeStatus(TaskInAcceptance, nil, opts...)
}

// Complete closes an accepted task.
func (t *Task) Complete(acceptanceID *ident.AcceptanceID, opts ...events.Option) error {
	if err := taskTransitions.Assert("task status", t.state.Status, TaskCompleted); err != nil {
		return err
	}
	evts, err := t.build(opts, events.TaskCompletedPayload{TaskID: t.ID(), AcceptanceID: acceptanceID})
	if err != nil {
		return err
	}
	t.state.Status = TaskCompleted
	t.state.UpdatedAt = t.now()
	t.record(evts)
	return nil
}
