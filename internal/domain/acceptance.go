package domain

import (
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "PENDING"
	AcceptanceApproved AcceptanceStatus = "APPROVED"
	AcceptanceRejected AcceptanceStatus = "REJECTED"
)

var acceptanceTransitions = policy.Transitions[AcceptanceStatus]{
	AcceptancePending:  {AcceptanceApproved, AcceptanceRejected},
	AcceptanceRejected: {AcceptancePending},
}

// ValidateAcceptanceTransition checks an acceptance review status change.
func ValidateAcceptanceTransition(from, to AcceptanceStatus) policy.Transition {
	return acceptanceTransitions.Validate(from, to)
}

type AcceptanceState struct {
	ID            ident.AcceptanceID `json:"id"`
	WorkspaceID   ident.WorkspaceID  `json:"workspace_id"`
	TaskID        ident.TaskID       `json:"task_id"`
	Status        AcceptanceStatus   `json:"status"`
	ApprovalNotes *string            `json:"approval_notes,omitempty"`
	ReviewNotes   *string            `json:"review_notes,omitempty"`
	Round         int                `json:"round"`
	Trail         *events.Link       `json:"trail,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type Acceptance struct {
	Root[ident.AcceptanceID]
	state AcceptanceState
}

func RequestAcceptance(f events.Factory, workspaceID ident.WorkspaceID, taskID ident.TaskID, requestedBy *ident.UserID, opts ...events.Option) (*Acceptance, error) {
	if workspaceID.IsZero() || taskID.IsZero() {
		return nil, invalid("task_id", "acceptance requires a workspace and a task")
	}
	id := ident.Generate[ident.Acceptance](f.IDs)
	a := &Acceptance{Root: newRoot(id, f)}
	evts, err := a.build(opts, events.AcceptanceRequestedPayload{AcceptanceID: id, TaskID: taskID, RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	now := a.now()
	a.state = AcceptanceState{ID: id, WorkspaceID: workspaceID, TaskID: taskID, Status: AcceptancePending, Round: 1, CreatedAt: now, UpdatedAt: now}
	a.record(evts)
	return a, nil
}

func RestoreAcceptance(f events.Factory, s AcceptanceState, version int) *Acceptance {
	return &Acceptance{Root: restoreRoot(s.ID, f, version, s.Trail), state: s}
}

func (a *Acceptance) State() AcceptanceState {
	s := a.state
	s.Trail = a.Trail()
	return s
}

func (a *Acceptance) WorkspaceID() ident.WorkspaceID { return a.state.WorkspaceID }
func (a *Acceptance) TaskID() ident.TaskID           { return a.state.TaskID }
func (a *Acceptance) Status() AcceptanceStatus       { return a.state.Status }

func (a *Acceptance) Equals(other *Acceptance) bool {
	return other != nil && a.SameIdentity(other.Entity)
}

func (a *Acceptance) Approve(approvalNotes *string, by *ident.UserID, opts ...events.Option) error {
	if err := acceptanceTransitions.Assert("acceptance status", a.state.Status, AcceptanceApproved); err != nil {
		return err
	}
	evts, err := a.build(a.followTrail(opts), events.AcceptanceApprovedPayload{AcceptanceID: a.ID(), TaskID: a.state.TaskID, ApprovalNotes: approvalNotes, UserID: by})
	if err != nil {
		return err
	}
	a.state.Status = AcceptanceApproved
	a.state.ApprovalNotes = approvalNotes
	a.state.UpdatedAt = a.now()
	a.record(evts)
	return nil
}

func (a *Acceptance) Reject(reviewNotes *string, by *ident.UserID, opts ...events.Option) error {
	if err := acceptanceTransitions.Assert("acceptance status", a.state.Status, AcceptanceRejected); err != nil {
		return err
	}
	evts, err := a.build(a.followTrail(opts), events.AcceptanceRejectedPayload{AcceptanceID: a.ID(), TaskID: a.state.TaskID, ReviewNotes: reviewNotes, UserID: by})
	if err != nil {
		return err
	}
	a.state.Status = AcceptanceRejected
	a.state.ReviewNotes = reviewNotes
	a.state.UpdatedAt = a.now()
	a.record(evts)
	return nil
}

// Resubmit sends a rejected task back for another review round.
func (a *Acceptance) Resubmit(opts ...events.Option) error {
	if err := acceptanceTransitions.Assert("acceptance status", a.state.Status, AcceptancePending); err != nil {
		return err
	}
	evts, err := a.build(a.followTrail(opts), events.AcceptanceResubmittedPayload{AcceptanceID: a.ID(), TaskID: a.state.TaskID})
	if err != nil {
		return err
	}
	a.state.Status = AcceptancePending
	a.state.Round++
	a.state.UpdatedAt = a.now()
	a.record(evts)
	return nil
}
