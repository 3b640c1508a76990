package engine

import (
	"context"
	"fmt"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

// QCDecisionRequest targets a check by id, or the latest check of TaskID.
type QCDecisionRequest struct {
	CheckID string
	TaskID  string
	Reason  string
	Notes   *string
	ActorID string
}

// PassQC passes the check of a task in QC; the task then moves into acceptance.
func (e Engine) PassQC(ctx context.Context, req QCDecisionRequest) Result[domain.QCCheckState] {
	return e.mutateCheck(ctx, req, func(c *domain.QCCheck, actor ident.UserID) error {
		return c.Pass(req.Notes, &actor, events.ByActor(actor))
	})
}

// FailQC records a failed inspection. The task returns to work behind a blocking issue.
func (e Engine) FailQC(ctx context.Context, req QCDecisionRequest) Result[domain.QCCheckState] {
	return e.mutateCheck(ctx, req, func(c *domain.QCCheck, actor ident.UserID) error {
		return c.Fail(req.Reason, req.Notes, &actor, events.ByActor(actor))
	})
}

// RequestRecheck reopens the failed latest check of a task and resubmits the task in
// the same commit, so the task must be ready for QC again.
func (e Engine) RequestRecheck(ctx context.Context, req QCDecisionRequest) Result[domain.QCCheckState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermQCDecide)
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	check, err := e.loadCheck(ctx, ws, req.CheckID, req.TaskID)
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	latest, err := latestCheck(ctx, e.QCChecks, check.TaskID())
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	if !check.Equals(latest) {
		return fail[domain.QCCheckState](&policy.Violation{Policy: "qc workflow", Reasons: []string{"only the latest check of a task can be rechecked"}})
	}
	task, err := e.Tasks.FindByID(ctx, check.TaskID())
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	blocking, err := e.blockingIssues(ctx, task.ID())
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	if err := check.RequestRecheck(events.ByActor(actor)); err != nil {
		return fail[domain.QCCheckState](err)
	}
	rechecked := check.PullDomainEvents()
	if err := task.SubmitForQC(blocking, &actor, events.CausedBy(rechecked[0]), events.ByActor(actor)); err != nil {
		return fail[domain.QCCheckState](err)
	}
	evts := append(rechecked, task.PullDomainEvents()...)
	if err := e.commit(ctx, evts, save(e.QCChecks, check), save(e.Tasks, task)); err != nil {
		return fail[domain.QCCheckState](err)
	}
	return ok(check.State())
}

func (e Engine) ListQCChecks(ctx context.Context, taskID string) Result[[]domain.QCCheckState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.QCCheckState](err)
	}
	task, err := e.loadTask(ctx, ws, taskID)
	if err != nil {
		return fail[[]domain.QCCheckState](err)
	}
	checks, err := e.QCChecks.FindByTask(ctx, task.ID())
	if err != nil {
		return fail[[]domain.QCCheckState](err)
	}
	out := make([]domain.QCCheckState, 0, len(checks))
	for _, c := range checks {
		out = append(out, c.State())
	}
	return ok(out)
}

func (e Engine) mutateCheck(ctx context.Context, req QCDecisionRequest, fn func(*domain.QCCheck, ident.UserID) error) Result[domain.QCCheckState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermQCDecide)
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	check, err := e.loadCheck(ctx, ws, req.CheckID, req.TaskID)
	if err != nil {
		return fail[domain.QCCheckState](err)
	}
	if err := e.requireTaskStatus(ctx, check.TaskID(), domain.TaskInQC, "decide qc"); err != nil {
		return fail[domain.QCCheckState](err)
	}
	if err := fn(check, actor); err != nil {
		return fail[domain.QCCheckState](err)
	}
	if err := e.commit(ctx, check.PullDomainEvents(), save(e.QCChecks, check)); err != nil {
		return fail[domain.QCCheckState](err)
	}
	return ok(check.State())
}

func (e Engine) loadCheck(ctx context.Context, ws ident.WorkspaceID, checkID, taskID string) (*domain.QCCheck, error) {
	if checkID != "" {
		id, err := parseID[ident.QCCheck]("check_id", checkID)
		if err != nil {
			return nil, err
		}
		check, err := e.QCChecks.FindByID(ctx, id)
		return inWorkspace(check, err, ws, "qc check "+id.String())
	}
	task, err := e.loadTask(ctx, ws, taskID)
	if err != nil {
		return nil, err
	}
	check, err := latestCheck(ctx, e.QCChecks, task.ID())
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, fmt.Errorf("qc check for task %s: %w", task.ID(), domain.ErrNotFound)
	}
	return check, nil
}

func latestCheck(ctx context.Context, r domain.QCCheckRepository, taskID ident.TaskID) (*domain.QCCheck, error) {
	checks, err := r.FindByTask(ctx, taskID)
	if err != nil || len(checks) == 0 {
		return nil, err
	}
	return checks[len(checks)-1], nil
}

// AcceptanceDecisionRequest targets an acceptance by id, or the latest one of TaskID.
type AcceptanceDecisionRequest struct {
	AcceptanceID string
	TaskID       string
	Notes        *string
	ActorID      string
}

// ApproveAcceptance approves the review; the task is then completed.
func (e Engine) ApproveAcceptance(ctx context.Context, req AcceptanceDecisionRequest) Result[domain.AcceptanceState] {
	return e.mutateAcceptance(ctx, req, func(a *domain.Acceptance, actor ident.UserID) error {
		return a.Approve(req.Notes, &actor, events.ByActor(actor))
	})
}

// RejectAcceptance rejects the review; the task returns to work.
func (e Engine) RejectAcceptance(ctx context.Context, req AcceptanceDecisionRequest) Result[domain.AcceptanceState] {
	return e.mutateAcceptance(ctx, req, func(a *domain.Acceptance, actor ident.UserID) error {
		return a.Reject(req.Notes, &actor, events.ByActor(actor))
	})
}

// ResubmitAcceptance reopens a rejected review of a task in acceptance. A rejection
// sends the task back to work, so the usual path is a new QC pass, which resubmits
// the review automatically.
func (e Engine) ResubmitAcceptance(ctx context.Context, req AcceptanceDecisionRequest) Result[domain.AcceptanceState] {
	return e.mutateAcceptance(ctx, req, func(a *domain.Acceptance, actor ident.UserID) error {
		return a.Resubmit(events.ByActor(actor))
	})
}

func (e Engine) ListAcceptances(ctx context.Context, taskID string) Result[[]domain.AcceptanceState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.AcceptanceState](err)
	}
	task, err := e.loadTask(ctx, ws, taskID)
	if err != nil {
		return fail[[]domain.AcceptanceState](err)
	}
	list, err := e.Acceptances.FindByTask(ctx, task.ID())
	if err != nil {
		return fail[[]domain.AcceptanceState](err)
	}
	out := make([]domain.AcceptanceState, 0, len(list))
	for _, a := range list {
		out = append(out, a.State())
	}
	return ok(out)
}

func (e Engine) mutateAcceptance(ctx context.Context, req AcceptanceDecisionRequest, fn func(*domain.Acceptance, ident.UserID) error) Result[domain.AcceptanceState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermAcceptanceDecide)
	if err != nil {
		return fail[domain.AcceptanceState](err)
	}
	acc, err := e.loadAcceptance(ctx, ws, req.AcceptanceID, req.TaskID)
	if err != nil {
		return fail[domain.AcceptanceState](err)
	}
	if err := e.requireTaskStatus(ctx, acc.TaskID(), domain.TaskInAcceptance, "decide acceptance"); err != nil {
		return fail[domain.AcceptanceState](err)
	}
	if err := fn(acc, actor); err != nil {
		return fail[domain.AcceptanceState](err)
	}
	if err := e.commit(ctx, acc.PullDomainEvents(), save(e.Acceptances, acc)); err != nil {
		return fail[domain.AcceptanceState](err)
	}
	return ok(acc.State())
}

func (e Engine) loadAcceptance(ctx context.Context, ws ident.WorkspaceID, acceptanceID, taskID string) (*domain.Acceptance, error) {
	if acceptanceID != "" {
		id, err := parseID[ident.Acceptance]("acceptance_id", acceptanceID)
		if err != nil {
			return nil, err
		}
		acc, err := e.Acceptances.FindByID(ctx, id)
		return inWorkspace(acc, err, ws, "acceptance "+id.String())
	}
	task, err := e.loadTask(ctx, ws, taskID)
	if err != nil {
		return nil, err
	}
	acc, err := latestAcceptance(ctx, e.Acceptances, task.ID())
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("acceptance for task %s: %w", task.ID(), domain.ErrNotFound)
	}
	return acc, nil
}

// requireTaskStatus keeps QC and acceptance decisions in step with the task workflow.
func (e Engine) requireTaskStatus(ctx context.Context, taskID ident.TaskID, want domain.TaskStatus, action string) error {
	task, err := e.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status() != want {
		return &policy.Violation{
			Policy:  "qc workflow",
			Reasons: []string{fmt.Sprintf("cannot %s while task is %s", action, task.Status())},
		}
	}
	return nil
}

func latestAcceptance(ctx context.Context, r domain.AcceptanceRepository, taskID ident.TaskID) (*domain.Acceptance, error) {
	list, err := r.FindByTask(ctx, taskID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[len(list)-1], nil
}
