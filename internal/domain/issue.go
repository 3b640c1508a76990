package domain

import (
	"strings"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type IssueStatus string

const (
	IssueOpen     IssueStatus = "OPEN"
	IssueResolved IssueStatus = "RESOLVED"
	IssueClosed   IssueStatus = "CLOSED"
)

var issueTransitions = policy.Transitions[IssueStatus]{
	IssueOpen:     {IssueResolved},
	IssueResolved: {IssueOpen, IssueClosed},
}

func ValidateIssueTransition(from, to IssueStatus) policy.Transition {
	return issueTransitions.Validate(from, to)
}

type IssueState struct {
	ID          ident.IssueID     `json:"id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	TaskID      ident.TaskID      `json:"task_id"`
	Title       string            `json:"title"`
	Blocking    bool              `json:"blocking"`
	Status      IssueStatus       `json:"status"`
	QCCheckID   *ident.QCCheckID  `json:"qc_check_id,omitempty"`
	Resolution  *string           `json:"resolution,omitempty"`
	Trail       *events.Link      `json:"trail,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type Issue struct {
	Root[ident.IssueID]
	state IssueState
}

type OpenIssueParams struct {
	WorkspaceID ident.WorkspaceID
	TaskID      ident.TaskID
	Title       string
	Blocking    bool
	QCCheckID   *ident.QCCheckID
}

func OpenIssue(f events.Factory, p OpenIssueParams, opts ...events.Option) (*Issue, error) {
	if p.WorkspaceID.IsZero() || p.TaskID.IsZero() {
		return nil, invalid("task_id", "issue requires a workspace and a task")
	}
	if err := policy.IssueNaming.AssertIsValid(p.Title); err != nil {
		return nil, err
	}
	id := ident.Generate[ident.Issue](f.IDs)
	i := &Issue{Root: newRoot(id, f)}
	title := strings.TrimSpace(p.Title)
	evts, err := i.build(opts, events.IssueCreatedPayload{IssueID: id, TaskID: p.TaskID, Title: title, Blocking: p.Blocking, QCCheckID: p.QCCheckID})
	if err != nil {
		return nil, err
	}
	now := i.now()
	i.state = IssueState{
		ID:          id,
		WorkspaceID: p.WorkspaceID,
		TaskID:      p.TaskID,
		Title:       title,
		Blocking:    p.Blocking,
		Status:      IssueOpen,
		QCCheckID:   p.QCCheckID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	i.record(evts)
	return i, nil
}

func RestoreIssue(f events.Factory, s IssueState, version int) *Issue {
	return &Issue{Root: restoreRoot(s.ID, f, version, s.Trail), state: s}
}

func (i *Issue) State() IssueState {
	s := i.state
	s.Trail = i.Trail()
	return s
}

func (i *Issue) WorkspaceID() ident.WorkspaceID { return i.state.WorkspaceID }
func (i *Issue) TaskID() ident.TaskID           { return i.state.TaskID }
func (i *Issue) Status() IssueStatus            { return i.state.Status }
func (i *Issue) Equals(other *Issue) bool       { return other != nil && i.SameIdentity(other.Entity) }

// IsBlockingOpen reports whether the issue currently keeps its task out of QC.
func (i *Issue) IsBlockingOpen() bool {
	return i.state.Blocking && i.state.Status == IssueOpen
}

func (i *Issue) transition(to IssueStatus, payload events.Payload, opts []events.Option) error {
	if err := issueTransitions.Assert("issue status", i.state.Status, to); err != nil {
		return err
	}
	evts, err := i.build(i.followTrail(opts), payload)
	if err != nil {
		return err
	}
	i.state.Status = to
	i.state.UpdatedAt = i.now()
	i.record(evts)
	return nil
}

func (i *Issue) Resolve(resolution *string, by *ident.UserID, opts ...events.Option) error {
	if err := i.transition(IssueResolved, events.IssueResolvedPayload{IssueID: i.ID(), TaskID: i.state.TaskID, Resolution: resolution, ResolvedBy: by}, opts); err != nil {
		return err
	}
	i.state.Resolution = resolution
	return nil
}

func (i *Issue) Reopen(reason *string, opts ...events.Option) error {
	if err := i.transition(IssueOpen, events.IssueReopenedPayload{IssueID: i.ID(), TaskID: i.state.TaskID, Reason: reason}, opts); err != nil {
		return err
	}
	i.state.Resolution = nil
	return nil
}

func (i *Issue) Close(opts ...events.Option) error {
	return i.transition(IssueClosed, events.IssueClosedPayload{IssueID: i.ID(), TaskID: i.state.TaskID}, opts)
}
