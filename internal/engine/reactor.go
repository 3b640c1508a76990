package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/events"
	"taskflow/internal/ident"
)

// maxIssueTitle mirrors the issue naming limit so a long QC reason still yields a valid title.
const maxIssueTitle = 200

// registerReactions wires the cross-context workflow. Every reaction is caused by the
// event that triggered it, so one correlation id follows a task from QC submission
// to completion.
func (e Engine) registerReactions() {
	e.Bus.Subscribe(events.TaskSubmittedForQC, e.onSubmittedForQC)
	e.Bus.Subscribe(events.QCFailed, e.onQCFailed)
	e.Bus.Subscribe(events.QCPassed, e.onQCPassed)
	e.Bus.Subscribe(events.AcceptanceApproved, e.onAcceptanceApproved)
	e.Bus.Subscribe(events.AcceptanceRejected, e.onAcceptanceRejected)
}

// onSubmittedForQC opens a check, or re-arms the failed one of a resubmitted task.
func (e Engine) onSubmittedForQC(ctx context.Context, evt events.CausalEvent) error {
	p, ok := evt.Payload.(events.TaskSubmittedForQCPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", evt.Payload)
	}
	task, err := e.Tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	check, err := latestCheck(ctx, e.QCChecks, p.TaskID)
	if err != nil {
		return err
	}
	switch {
	case check != nil && check.Status() == domain.QCPending:
		e.Log.Debug("qc check already pending", zap.String("task_id", p.TaskID.String()))
		return nil
	case check != nil && check.Status() == domain.QCFailed:
		if err := check.RequestRecheck(events.CausedBy(evt)); err != nil {
			return err
		}
	default:
		if check, err = domain.OpenQCCheck(e.Factory, task.WorkspaceID(), p.TaskID, events.CausedBy(evt)); err != nil {
			return err
		}
	}
	return e.commit(ctx, check.PullDomainEvents(), save(e.QCChecks, check))
}

// onQCFailed raises a blocking issue and sends the task back to work.
func (e Engine) onQCFailed(ctx context.Context, evt events.CausalEvent) error {
	p, ok := evt.Payload.(events.QCFailedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", evt.Payload)
	}
	task, err := e.Tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	checkID := p.CheckID
	issue, err := domain.OpenIssue(e.Factory, domain.OpenIssueParams{
		WorkspaceID: task.WorkspaceID(),
		TaskID:      p.TaskID,
		Title:       truncate("QC failed: "+p.Reason, maxIssueTitle),
		Blocking:    true,
		QCCheckID:   &checkID,
	}, events.CausedBy(evt))
	if err != nil {
		return err
	}
	if err := task.ReturnToWork(p.Reason, events.CausedBy(evt)); err != nil {
		return err
	}
	return e.commit(ctx, pull(issue, task), save(e.Issues, issue), save(e.Tasks, task))
}

// onQCPassed moves the task into acceptance and opens, or resubmits, its review.
func (e Engine) onQCPassed(ctx context.Context, evt events.CausalEvent) error {
	p, ok := evt.Payload.(events.QCPassedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", evt.Payload)
	}
	task, err := e.Tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	if err := task.MoveToAcceptance(events.CausedBy(evt)); err != nil {
		return err
	}
	acc, err := latestAcceptance(ctx, e.Acceptances, p.TaskID)
	if err != nil {
		return err
	}
	switch {
	case acc != nil && acc.Status() == domain.AcceptanceRejected:
		if err := acc.Resubmit(events.CausedBy(evt)); err != nil {
			return err
		}
	case acc != nil && acc.Status() == domain.AcceptancePending:
	default:
		if acc, err = domain.RequestAcceptance(e.Factory, task.WorkspaceID(), p.TaskID, p.InspectorID, events.CausedBy(evt)); err != nil {
			return err
		}
	}
	return e.commit(ctx, pull(task, acc), save(e.Tasks, task), save(e.Acceptances, acc))
}

func (e Engine) onAcceptanceApproved(ctx context.Context, evt events.CausalEvent) error {
	p, ok := evt.Payload.(events.AcceptanceApprovedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", evt.Payload)
	}
	task, err := e.Tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	accID := p.AcceptanceID
	if err := task.Complete(ident.Ptr(accID), events.CausedBy(evt)); err != nil {
		return err
	}
	return e.commit(ctx, task.PullDomainEvents(), save(e.Tasks, task))
}

func (e Engine) onAcceptanceRejected(ctx context.Context, evt events.CausalEvent) error {
	p, ok := evt.Payload.(events.AcceptanceRejectedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", evt.Payload)
	}
	task, err := e.Tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	reason := "acceptance rejected"
	if p.ReviewNotes != nil && *p.ReviewNotes != "" {
		reason = *p.ReviewNotes
	}
	if err := task.ReturnToWork(reason, events.CausedBy(evt)); err != nil {
		return err
	}
	return e.commit(ctx, task.PullDomainEvents(), save(e.Tasks, task))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
