package engine

import (
	"context"
	"fmt"
	"strings"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

// MoneyInput is a budget in minor units.
type MoneyInput struct {
	Amount   int64
	Currency string
}

// CreateTaskRequest creates a top-level task, or a subtask when ParentID is set.
type CreateTaskRequest struct {
	ID        string
	Title     string
	ParentID  string
	Budget    *MoneyInput
	StartDate string
	DueDate   string
	ActorID   string
}

func (e Engine) CreateTask(ctx context.Context, req CreateTaskRequest) Result[domain.TaskState] {
	state, err := e.createTask(ctx, req)
	if err != nil {
		return fail[domain.TaskState](err)
	}
	return ok(state)
}

// AddSubtask creates a task below ParentID, enforcing the hierarchy depth limit.
func (e Engine) AddSubtask(ctx context.Context, req CreateTaskRequest) Result[domain.TaskState] {
	if strings.TrimSpace(req.ParentID) == "" {
		return fail[domain.TaskState](&domain.ValidationError{Field: "parent_id", Message: "is required"})
	}
	return e.CreateTask(ctx, req)
}

func (e Engine) createTask(ctx context.Context, req CreateTaskRequest) (domain.TaskState, error) {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermTaskWrite)
	if err != nil {
		return domain.TaskState{}, err
	}
	params := domain.NewTaskParams{WorkspaceID: ws, Title: req.Title, CreatedBy: &actor}
	if req.ID != "" {
		if params.ID, err = parseID[ident.Task]("id", req.ID); err != nil {
			return domain.TaskState{}, err
		}
	}
	if req.Budget != nil {
		m, err := domain.NewMoney(req.Budget.Amount, req.Budget.Currency)
		if err != nil {
			return domain.TaskState{}, err
		}
		params.Budget = &m
	}
	if req.StartDate != "" || req.DueDate != "" {
		r, err := domain.NewDateRange(req.StartDate, req.DueDate)
		if err != nil {
			return domain.TaskState{}, err
		}
		params.Schedule = &r
	}
	if req.ParentID == "" {
		task, err := domain.NewTask(e.Factory, params, events.ByActor(actor))
		if err != nil {
			return domain.TaskState{}, err
		}
		if err := e.commit(ctx, task.PullDomainEvents(), save(e.Tasks, task)); err != nil {
			return domain.TaskState{}, err
		}
		return task.State(), nil
	}

	parentID, err := parseID[ident.Task]("parent_id", req.ParentID)
	if err != nil {
		return domain.TaskState{}, err
	}
	parent, err := e.Tasks.FindByID(ctx, parentID)
	if parent, err = inWorkspace(parent, err, ws, "parent task "+parentID.String()); err != nil {
		return domain.TaskState{}, err
	}
	siblings, err := e.Tasks.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return domain.TaskState{}, err
	}
	nodes := make([]policy.TaskNode, 0, len(siblings))
	for _, t := range siblings {
		nodes = append(nodes, t.Node())
	}
	params.ParentID = &parentID
	child, err := domain.NewTask(e.Factory, params, events.ByActor(actor))
	if err != nil {
		return domain.TaskState{}, err
	}
	created := child.PullDomainEvents()
	if err := parent.AddSubtask(child, nodes, events.ByActor(actor), events.CausedBy(created[0])); err != nil {
		return domain.TaskState{}, err
	}
	evts := append(created, parent.PullDomainEvents()...)
	if err := e.commit(ctx, evts, save(e.Tasks, child), save(e.Tasks, parent)); err != nil {
		return domain.TaskState{}, err
	}
	return child.State(), nil
}

func (e Engine) GetTask(ctx context.Context, id string) Result[domain.TaskState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[domain.TaskState](err)
	}
	task, err := e.loadTask(ctx, ws, id)
	if err != nil {
		return fail[domain.TaskState](err)
	}
	return ok(task.State())
}

type ListTasksRequest struct {
	Status   string
	ParentID string
}

func (e Engine) ListTasks(ctx context.Context, req ListTasksRequest) Result[[]domain.TaskState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.TaskState](err)
	}
	var tasks []*domain.Task
	if req.ParentID != "" {
		parentID, err := parseID[ident.Task]("parent_id", req.ParentID)
		if err != nil {
			return fail[[]domain.TaskState](err)
		}
		tasks, err = e.Tasks.FindByParent(ctx, parentID)
		if err != nil {
			return fail[[]domain.TaskState](err)
		}
	} else if tasks, err = e.Tasks.FindByWorkspaceID(ctx, ws); err != nil {
		return fail[[]domain.TaskState](err)
	}
	out := []domain.TaskState{}
	for _, t := range tasks {
		if !t.WorkspaceID().Equals(ws) {
			continue
		}
		if req.Status != "" && !strings.EqualFold(string(t.Status()), req.Status) {
			continue
		}
		out = append(out, t.State())
	}
	return ok(out)
}

type UpdateProgressRequest struct {
	TaskID   string
	Progress int
	ActorID  string
}

func (e Engine) UpdateProgress(ctx context.Context, req UpdateProgressRequest) Result[domain.TaskState] {
	return e.mutateTask(ctx, req.ActorID, req.TaskID, func(t *domain.Task, actor ident.UserID) error {
		p, err := domain.NewProgress(req.Progress)
		if err != nil {
			return err
		}
		return t.UpdateProgress(p, events.ByActor(actor))
	})
}

type ChangeTaskStatusRequest struct {
	TaskID  string
	Status  string
	Reason  *string
	ActorID string
}

// workflowStatuses are only reached through QC and acceptance.
var workflowStatuses = map[domain.TaskStatus]string{
	domain.TaskInQC:         "submit the task for QC",
	domain.TaskInAcceptance: "pass its QC check",
	domain.TaskCompleted:    "approve its acceptance",
}

func (e Engine) ChangeTaskStatus(ctx context.Context, req ChangeTaskStatusRequest) Result[domain.TaskState] {
	to := domain.TaskStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if hint, found := workflowStatuses[to]; found {
		return fail[domain.TaskState](&policy.Violation{Policy: "task status", Reasons: []string{fmt.Sprintf("status %s is set by the workflow; %s", to, hint)}})
	}
	return e.mutateTask(ctx, req.ActorID, req.TaskID, func(t *domain.Task, actor ident.UserID) error {
		return t.ChangeStatus(to, req.Reason, events.ByActor(actor))
	})
}

type SubmitForQCRequest struct {
	TaskID  string
	ActorID string
}

// SubmitForQC moves a finished task into QC. Open blocking issues keep it out.
func (e Engine) SubmitForQC(ctx context.Context, req SubmitForQCRequest) Result[domain.TaskState] {
	return e.mutateTask(ctx, req.ActorID, req.TaskID, func(t *domain.Task, actor ident.UserID) error {
		blocking, err := e.blockingIssues(ctx, t.ID())
		if err != nil {
			return err
		}
		return t.SubmitForQC(blocking, &actor, events.ByActor(actor))
	})
}

func (e Engine) mutateTask(ctx context.Context, actorID, taskID string, fn func(*domain.Task, ident.UserID) error) Result[domain.TaskState] {
	ws, actor, err := e.authorize(ctx, actorID, auth.PermTaskWrite)
	if err != nil {
		return fail[domain.TaskState](err)
	}
	task, err := e.loadTask(ctx, ws, taskID)
	if err != nil {
		return fail[domain.TaskState](err)
	}
	if err := fn(task, actor); err != nil {
		return fail[domain.TaskState](err)
	}
	if err := e.commit(ctx, task.PullDomainEvents(), save(e.Tasks, task)); err != nil {
		return fail[domain.TaskState](err)
	}
	return ok(task.State())
}

func (e Engine) loadTask(ctx context.Context, ws ident.WorkspaceID, raw string) (*domain.Task, error) {
	id, err := parseID[ident.Task]("task_id", raw)
	if err != nil {
		return nil, err
	}
	task, err := e.Tasks.FindByID(ctx, id)
	return inWorkspace(task, err, ws, "task "+id.String())
}

func (e Engine) blockingIssues(ctx context.Context, taskID ident.TaskID) (int, error) {
	issues, err := e.Issues.FindByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, i := range issues {
		if i.IsBlockingOpen() {
			n++
		}
	}
	return n, nil
}
