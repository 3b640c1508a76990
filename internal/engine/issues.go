package engine

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
)

type OpenIssueRequest struct {
	TaskID   string
	Title    string
	Blocking bool
	ActorID  string
}

func (e Engine) OpenIssue(ctx context.Context, req OpenIssueRequest) Result[domain.IssueState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermIssueWrite)
	if err != nil {
		return fail[domain.IssueState](err)
	}
	task, err := e.loadTask(ctx, ws, req.TaskID)
	if err != nil {
		return fail[domain.IssueState](err)
	}
	issue, err := domain.OpenIssue(e.Factory, domain.OpenIssueParams{
		WorkspaceID: ws,
		TaskID:      task.ID(),
		Title:       req.Title,
		Blocking:    req.Blocking,
	}, events.ByActor(actor))
	if err != nil {
		return fail[domain.IssueState](err)
	}
	if err := e.commit(ctx, issue.PullDomainEvents(), save(e.Issues, issue)); err != nil {
		return fail[domain.IssueState](err)
	}
	return ok(issue.State())
}

type IssueRequest struct {
	IssueID string
	// Note is the resolution for Resolve and the reason for Reopen.
	Note    *string
	ActorID string
}

func (e Engine) ResolveIssue(ctx context.Context, req IssueRequest) Result[domain.IssueState] {
	return e.mutateIssue(ctx, req, func(i *domain.Issue, actor ident.UserID) error {
		return i.Resolve(req.Note, &actor, events.ByActor(actor))
	})
}

func (e Engine) ReopenIssue(ctx context.Context, req IssueRequest) Result[domain.IssueState] {
	return e.mutateIssue(ctx, req, func(i *domain.Issue, actor ident.UserID) error {
		return i.Reopen(req.Note, events.ByActor(actor))
	})
}

func (e Engine) CloseIssue(ctx context.Context, req IssueRequest) Result[domain.IssueState] {
	return e.mutateIssue(ctx, req, func(i *domain.Issue, actor ident.UserID) error {
		return i.Close(events.ByActor(actor))
	})
}

func (e Engine) ListIssues(ctx context.Context, taskID string) Result[[]domain.IssueState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.IssueState](err)
	}
	var issues []*domain.Issue
	if taskID == "" {
		issues, err = e.Issues.FindByWorkspaceID(ctx, ws)
	} else {
		task, terr := e.loadTask(ctx, ws, taskID)
		if terr != nil {
			return fail[[]domain.IssueState](terr)
		}
		issues, err = e.Issues.FindByTask(ctx, task.ID())
	}
	if err != nil {
		return fail[[]domain.IssueState](err)
	}
	out := make([]domain.IssueState, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.State())
	}
	return ok(out)
}

func (e Engine) mutateIssue(ctx context.Context, req IssueRequest, fn func(*domain.Issue, ident.UserID) error) Result[domain.IssueState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermIssueWrite)
	if err != nil {
		return fail[domain.IssueState](err)
	}
	id, err := parseID[ident.Issue]("issue_id", req.IssueID)
	if err != nil {
		return fail[domain.IssueState](err)
	}
	issue, err := e.Issues.FindByID(ctx, id)
	if issue, err = inWorkspace(issue, err, ws, "issue "+id.String()); err != nil {
		return fail[domain.IssueState](err)
	}
	if err := fn(issue, actor); err != nil {
		return fail[domain.IssueState](err)
	}
	if err := e.commit(ctx, issue.PullDomainEvents(), save(e.Issues, issue)); err != nil {
		return fail[domain.IssueState](err)
	}
	return ok(issue.State())
}
