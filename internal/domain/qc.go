package domain

import (
	"strings"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type QCStatus string

const (
	QCPending QCStatus = "PENDING"
	QCPassed  QCStatus = "PASSED"
	QCFailed  QCStatus = "FAILED"
)

var qcTransitions = policy.Transitions[QCStatus]{
	QCPending: {QCPassed, QCFailed},
	QCFailed:  {QCPending},
}

func ValidateQCTransition(from, to QCStatus) policy.Transition {
	return qcTransitions.Validate(from, to)
}

type QCCheckState struct {
	ID          ident.QCCheckID   `json:"id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	TaskID      ident.TaskID      `json:"task_id"`
	Status      QCStatus          `json:"status"`
	Attempt     int               `json:"attempt"`
	LastReason  *string           `json:"last_reason,omitempty"`
	Trail       *events.Link      `json:"trail,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// QCCheck is one inspection of a task. Its events continue the workflow that opened it.
type QCCheck struct {
	Root[ident.QCCheckID]
	state QCCheckState
}

// OpenQCCheck starts a pending inspection for task.
func OpenQCCheck(f events.Factory, workspaceID ident.WorkspaceID, taskID ident.TaskID, opts ...events.Option) (*QCCheck, error) {
	if workspaceID.IsZero() || taskID.IsZero() {
		return nil, invalid("task_id", "qc check requires a workspace and a task")
	}
	id := ident.Generate[ident.QCCheck](f.IDs)
	c := &QCCheck{Root: newRoot(id, f)}
	evts, err := c.build(opts, events.QCCheckCreatedPayload{CheckID: id, TaskID: taskID})
	if err != nil {
		return nil, err
	}
	now := c.now()
	c.state = QCCheckState{ID: id, WorkspaceID: workspaceID, TaskID: taskID, Status: QCPending, Attempt: 1, CreatedAt: now, UpdatedAt: now}
	c.record(evts)
	return c, nil
}

func RestoreQCCheck(f events.Factory, s QCCheckState, version int) *QCCheck {
	return &QCCheck{Root: restoreRoot(s.ID, f, version, s.Trail), state: s}
}

func (c *QCCheck) State() QCCheckState {
	s := c.state
	s.Trail = c.Trail()
	return s
}

func (c *QCCheck) WorkspaceID() ident.WorkspaceID { return c.state.WorkspaceID }
func (c *QCCheck) TaskID() ident.TaskID           { return c.state.TaskID }
func (c *QCCheck) Status() QCStatus               { return c.state.Status }

func (c *QCCheck) Equals(other *QCCheck) bool {
	return other != nil && c.SameIdentity(other.Entity)
}

func (c *QCCheck) Pass(notes *string, inspector *ident.UserID, opts ...events.Option) error {
	if err := qcTransitions.Assert("qc status", c.state.Status, QCPassed); err != nil {
		return err
	}
	evts, err := c.build(c.followTrail(opts), events.QCPassedPayload{CheckID: c.ID(), TaskID: c.state.TaskID, Notes: notes, InspectorID: inspector})
	if err != nil {
		return err
	}
	c.state.Status = QCPassed
	c.state.UpdatedAt = c.now()
	c.record(evts)
	return nil
}

// Fail requires a reason; it becomes the title of the blocking issue.
func (c *QCCheck) Fail(reason string, notes *string, inspector *ident.UserID, opts ...events.Option) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason", "is required when failing a qc check")
	}
	if err := qcTransitions.Assert("qc status", c.state.Status, QCFailed); err != nil {
		return err
	}
	evts, err := c.build(c.followTrail(opts), events.QCFailedPayload{CheckID: c.ID(), TaskID: c.state.TaskID, Reason: reason, Notes: notes, InspectorID: inspector})
	if err != nil {
		return err
	}
	c.state.Status = QCFailed
	c.state.LastReason = &reason
	c.state.UpdatedAt = c.now()
	c.record(evts)
	return nil
}

// RequestRecheck reopens a failed check for another attempt.
func (c *QCCheck) RequestRecheck(opts ...events.Option) error {
	if err := qcTransitions.Assert("qc status", c.state.Status, QCPending); err != nil {
		return err
	}
	evts, err := c.build(c.followTrail(opts), events.QCRecheckRequestedPayload{CheckID: c.ID(), TaskID: c.state.TaskID, Attempt: c.state.Attempt + 1})
	if err != nil {
		return err
	}
	c.state.Status = QCPending
	c.state.Attempt++
	c.state.UpdatedAt = c.now()
	c.record(evts)
	return nil
}
