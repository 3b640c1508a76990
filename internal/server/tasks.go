package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
)

// TaskPath binds the {id} segment of task routes.
type TaskPath struct {
	ID string `path:"id"`
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*output[domain.TaskState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.CreateTask(ctx, createTaskRequest(input.Body, "", actor)))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-subtask",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/subtasks",
		Summary:       "Add subtask",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body CreateTaskRequest
	}) (*output[domain.TaskState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.AddSubtask(ctx, createTaskRequest(input.Body, input.ID, actor)))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status"`
		ParentID string `query:"parent_id"`
	}) (*output[[]domain.TaskState], error) {
		return respond(e.ListTasks(ctx, engine.ListTasksRequest{Status: input.Status, ParentID: input.ParentID}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *TaskPath) (*output[domain.TaskState], error) {
		return respond(e.GetTask(ctx, input.ID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-progress",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/progress",
		Summary:     "Set task progress",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body ProgressRequest
	}) (*output[domain.TaskState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.UpdateProgress(ctx, engine.UpdateProgressRequest{TaskID: input.ID, Progress: input.Body.Progress, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-task-status",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/status",
		Summary:     "Change task status",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body StatusRequest
	}) (*output[domain.TaskState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.ChangeTaskStatus(ctx, engine.ChangeTaskStatusRequest{TaskID: input.ID, Status: input.Body.Status, Reason: input.Body.Reason, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-for-qc",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/submit",
		Summary:     "Submit task for QC",
		Description: "Opens or re-arms the task's QC check.",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *TaskPath) (*output[domain.TaskState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.SubmitForQC(ctx, engine.SubmitForQCRequest{TaskID: input.ID, ActorID: actor}))
	})
}

func createTaskRequest(body CreateTaskRequest, parentID, actor string) engine.CreateTaskRequest {
	req := engine.CreateTaskRequest{
		ID:        body.ID,
		Title:     body.Title,
		ParentID:  parentID,
		StartDate: body.StartDate,
		DueDate:   body.DueDate,
		ActorID:   actor,
	}
	if body.Budget != nil {
		req.Budget = &engine.MoneyInput{Amount: body.Budget.Amount, Currency: body.Budget.Currency}
	}
	return req
}

func registerQC(api huma.API, e engine.Engine) {
	type qcInput struct {
		TaskPath
		Body QCDecisionRequest `required:"false"`
	}
	qcDecision := func(id, summary string, decide func(engine.Engine, context.Context, engine.QCDecisionRequest) engine.Result[domain.QCCheckState]) {
		huma.Register(api, huma.Operation{
			OperationID: id,
			Method:      http.MethodPost,
			Path:        "/tasks/{id}/qc/" + id[len("qc-"):],
			Summary:     summary,
			Errors:      errorStatuses,
		}, func(ctx context.Context, input *qcInput) (*output[domain.QCCheckState], error) {
			actor, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			return respond(decide(e, ctx, engine.QCDecisionRequest{
				CheckID: input.Body.CheckID,
				TaskID:  input.ID,
				Reason:  input.Body.Reason,
				Notes:   input.Body.Notes,
				ActorID: actor,
			}))
		})
	}
	qcDecision("qc-pass", "Pass QC", engine.Engine.PassQC)
	qcDecision("qc-fail", "Fail QC", engine.Engine.FailQC)
	qcDecision("qc-recheck", "Request QC recheck", engine.Engine.RequestRecheck)

	huma.Register(api, huma.Operation{
		OperationID: "list-qc-checks",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/qc",
		Summary:     "List QC checks of a task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *TaskPath) (*output[[]domain.QCCheckState], error) {
		return respond(e.ListQCChecks(ctx, input.ID))
	})

	type acceptanceInput struct {
		TaskPath
		Body AcceptanceDecisionRequest `required:"false"`
	}
	acceptanceDecision := func(id, summary string, decide func(engine.Engine, context.Context, engine.AcceptanceDecisionRequest) engine.Result[domain.AcceptanceState]) {
		huma.Register(api, huma.Operation{
			OperationID: id,
			Method:      http.MethodPost,
			Path:        "/tasks/{id}/acceptance/" + id[len("acceptance-"):],
			Summary:     summary,
			Errors:      errorStatuses,
		}, func(ctx context.Context, input *acceptanceInput) (*output[domain.AcceptanceState], error) {
			actor, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			return respond(decide(e, ctx, engine.AcceptanceDecisionRequest{
				AcceptanceID: input.Body.AcceptanceID,
				TaskID:       input.ID,
				Notes:        input.Body.Notes,
				ActorID:      actor,
			}))
		})
	}
	acceptanceDecision("acceptance-approve", "Approve acceptance", engine.Engine.ApproveAcceptance)
	acceptanceDecision("acceptance-reject", "Reject acceptance", engine.Engine.RejectAcceptance)
	acceptanceDecision("acceptance-resubmit", "Resubmit a rejected acceptance", engine.Engine.ResubmitAcceptance)

	huma.Register(api, huma.Operation{
		OperationID: "list-acceptances",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/acceptance",
		Summary:     "List acceptance reviews of a task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *TaskPath) (*output[[]domain.AcceptanceState], error) {
		return respond(e.ListAcceptances(ctx, input.ID))
	})
}

func registerIssues(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "open-issue",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/issues",
		Summary:       "Open issue on a task",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body OpenIssueRequest
	}) (*output[domain.IssueState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.OpenIssue(ctx, engine.OpenIssueRequest{TaskID: input.ID, Title: input.Body.Title, Blocking: input.Body.Blocking, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-issues",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/issues",
		Summary:     "List issues of a task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *TaskPath) (*output[[]domain.IssueState], error) {
		return respond(e.ListIssues(ctx, input.ID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-issues",
		Method:      http.MethodGet,
		Path:        "/issues",
		Summary:     "List issues",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.IssueState], error) {
		return respond(e.ListIssues(ctx, ""))
	})

	type issueInput struct {
		ID   string           `path:"id"`
		Body IssueNoteRequest `required:"false"`
	}
	issueAction := func(action, summary string, do func(engine.Engine, context.Context, engine.IssueRequest) engine.Result[domain.IssueState]) {
		huma.Register(api, huma.Operation{
			OperationID: "issue-" + action,
			Method:      http.MethodPost,
			Path:        "/issues/{id}/" + action,
			Summary:     summary,
			Errors:      errorStatuses,
		}, func(ctx context.Context, input *issueInput) (*output[domain.IssueState], error) {
			actor, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			return respond(do(e, ctx, engine.IssueRequest{IssueID: input.ID, Note: input.Body.Note, ActorID: actor}))
		})
	}
	issueAction("resolve", "Resolve issue", engine.Engine.ResolveIssue)
	issueAction("reopen", "Reopen issue", engine.Engine.ReopenIssue)
	issueAction("close", "Close issue", engine.Engine.CloseIssue)
}
