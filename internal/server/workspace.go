package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/repo"
)

func registerWorkspace(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-workspace",
		Method:      http.MethodGet,
		Path:        "/workspace",
		Summary:     "Get workspace with roles and members",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[engine.WorkspaceView], error) {
		return respond(e.Workspace(ctx))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/members",
		Summary:     "List members",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.MemberState], error) {
		return respond(e.ListMembers(ctx))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "invite-member",
		Method:        http.MethodPost,
		Path:          "/members",
		Summary:       "Invite member",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body InviteMemberRequest
	}) (*output[domain.MemberState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.InviteMember(ctx, engine.InviteMemberRequest{Email: input.Body.Email, RoleID: input.Body.RoleID, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "join-member",
		Method:      http.MethodPost,
		Path:        "/members/{id}/join",
		Summary:     "Accept an invitation as the caller",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*output[domain.MemberState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.JoinMember(ctx, engine.JoinMemberRequest{MemberID: input.ID, UserID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-member-status",
		Method:      http.MethodPost,
		Path:        "/members/{id}/status",
		Summary:     "Change member status",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body MemberStatusRequest
	}) (*output[domain.MemberState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.ChangeMemberStatus(ctx, engine.ChangeMemberStatusRequest{MemberID: input.ID, Status: input.Body.Status, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-member-role",
		Method:      http.MethodPost,
		Path:        "/members/{id}/role",
		Summary:     "Change member role",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body MemberRoleRequest
	}) (*output[domain.MemberState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.ChangeMemberRole(ctx, engine.ChangeMemberRoleRequest{MemberID: input.ID, RoleID: input.Body.RoleID, ActorID: actor}))
	})

	registerRoles(api, e)
	registerSettings(api, e)
}

func registerRoles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-roles",
		Method:      http.MethodGet,
		Path:        "/roles",
		Summary:     "List roles",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.RoleState], error) {
		return respond(e.ListRoles(ctx))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-role",
		Method:        http.MethodPost,
		Path:          "/roles",
		Summary:       "Create role",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateRoleRequest
	}) (*output[domain.RoleState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.CreateRole(ctx, engine.CreateRoleRequest{
			ID:          input.Body.ID,
			Name:        input.Body.Name,
			Permissions: input.Body.Permissions,
			ActorID:     actor,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-role",
		Method:      http.MethodPatch,
		Path:        "/roles/{id}",
		Summary:     "Rename role",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body RenameRequest
	}) (*output[domain.RoleState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.RenameRole(ctx, engine.RoleRequest{RoleID: input.ID, Value: input.Body.Name, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "grant-permission",
		Method:      http.MethodPost,
		Path:        "/roles/{id}/grants",
		Summary:     "Grant permission to role",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body GrantRequest
	}) (*output[domain.RoleState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.GrantPermission(ctx, engine.RoleRequest{RoleID: input.ID, Value: input.Body.Permission, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-permission",
		Method:      http.MethodDelete,
		Path:        "/roles/{id}/grants/{permission}",
		Summary:     "Revoke permission from role",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID         string `path:"id"`
		Permission string `path:"permission"`
	}) (*output[domain.RoleState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.RevokePermission(ctx, engine.RoleRequest{RoleID: input.ID, Value: input.Permission, ActorID: actor}))
	})
}

func registerSettings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "Get workspace settings",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[domain.SettingsState], error) {
		return respond(e.GetSettings(ctx))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPatch,
		Path:        "/settings",
		Summary:     "Update workspace settings",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body SettingsRequest
	}) (*output[domain.SettingsState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.UpdateSettings(ctx, engine.UpdateSettingsRequest{Theme: input.Body.Theme, Language: input.Body.Language, ActorID: actor}))
	})
}

func registerTemplates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-templates",
		Method:      http.MethodGet,
		Path:        "/templates",
		Summary:     "List templates",
		Errors:      errorStatuses,
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.TemplateState], error) {
		return respond(e.ListTemplates(ctx))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-template",
		Method:        http.MethodPost,
		Path:          "/templates",
		Summary:       "Create template",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateTemplateRequest
	}) (*output[domain.TemplateState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.CreateTemplate(ctx, engine.CreateTemplateRequest{Name: input.Body.Name, Body: input.Body.Body, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-template",
		Method:      http.MethodPatch,
		Path:        "/templates/{id}",
		Summary:     "Rename template",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body RenameRequest
	}) (*output[domain.TemplateState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.RenameTemplate(ctx, engine.RenameTemplateRequest{TemplateID: input.ID, Name: input.Body.Name, ActorID: actor}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "template-history",
		Method:      http.MethodGet,
		Path:        "/templates/{id}/history",
		Summary:     "Template event history",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*output[[]engine.EventView], error) {
		return respond(e.GetTemplateHistory(ctx, input.ID))
	})
}

func registerDailyLog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-daily-entries",
		Method:      http.MethodGet,
		Path:        "/daily-log",
		Summary:     "List daily log entries",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id"`
		Date   string `query:"date" example:"2024-03-05"`
	}) (*output[[]domain.DailyEntryState], error) {
		return respond(e.ListEntries(ctx, engine.ListEntriesRequest{UserID: input.UserID, Date: input.Date}))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "log-work",
		Method:        http.MethodPost,
		Path:          "/daily-log",
		Summary:       "Log work",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body LogWorkRequest
	}) (*output[domain.DailyEntryState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.LogWork(ctx, engine.LogWorkRequest{
			UserID:    input.Body.UserID,
			TaskID:    input.Body.TaskID,
			Date:      input.Body.Date,
			Headcount: input.Body.Headcount,
			Note:      input.Body.Note,
			ActorID:   actor,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "adjust-daily-entry",
		Method:      http.MethodPatch,
		Path:        "/daily-log/{id}",
		Summary:     "Adjust logged headcount",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body AdjustEntryRequest
	}) (*output[domain.DailyEntryState], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.AdjustEntry(ctx, engine.AdjustEntryRequest{EntryID: input.ID, Headcount: input.Body.Headcount, ActorID: actor}))
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events, newest first",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		Type        string `query:"type"`
		Domain      string `query:"domain" doc:"Event type prefix such as qc or task"`
		AggregateID string `query:"aggregate_id"`
		Limit       int    `query:"limit" minimum:"0" maximum:"1000"`
	}) (*output[[]engine.EventView], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.ListEvents(ctx, engine.ListEventsRequest{
			EventFilters: repo.EventFilters{
				Type:        input.Type,
				Domain:      input.Domain,
				AggregateID: input.AggregateID,
				Limit:       input.Limit,
			},
			ActorID: actor,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "audit-trail",
		Method:      http.MethodGet,
		Path:        "/trail/{correlation_id}",
		Summary:     "Causation tree of one workflow",
		Description: "With event_id set, returns the causal chain from that event back to the root.",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		CorrelationID string `path:"correlation_id"`
		EventID       string `query:"event_id"`
	}) (*output[[]engine.AuditEntry], error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return respond(e.AuditTrail(ctx, engine.AuditTrailRequest{CorrelationID: input.CorrelationID, EventID: input.EventID, ActorID: actor}))
	})
}
