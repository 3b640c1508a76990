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

type CreateTemplateRequest struct {
	Name    string
	Body    string
	ActorID string
}

func (e Engine) CreateTemplate(ctx context.Context, req CreateTemplateRequest) Result[domain.TemplateState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermTemplateWrite)
	if err != nil {
		return fail[domain.TemplateState](err)
	}
	if err := e.assertTemplateNameFree(ctx, ws, ident.TemplateID{}, req.Name); err != nil {
		return fail[domain.TemplateState](err)
	}
	t, err := domain.NewTemplate(e.Factory, ws, req.Name, optionalString(req.Body), events.ByActor(actor))
	if err != nil {
		return fail[domain.TemplateState](err)
	}
	if err := e.commit(ctx, t.PullDomainEvents(), save(e.Templates, t)); err != nil {
		return fail[domain.TemplateState](err)
	}
	return ok(t.State())
}

type RenameTemplateRequest struct {
	TemplateID string
	Name       string
	ActorID    string
}

func (e Engine) RenameTemplate(ctx context.Context, req RenameTemplateRequest) Result[domain.TemplateState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermTemplateWrite)
	if err != nil {
		return fail[domain.TemplateState](err)
	}
	t, err := e.loadTemplate(ctx, ws, req.TemplateID)
	if err != nil {
		return fail[domain.TemplateState](err)
	}
	if err := e.assertTemplateNameFree(ctx, ws, t.ID(), req.Name); err != nil {
		return fail[domain.TemplateState](err)
	}
	if err := t.Rename(req.Name, events.ByActor(actor)); err != nil {
		return fail[domain.TemplateState](err)
	}
	if err := e.commit(ctx, t.PullDomainEvents(), save(e.Templates, t)); err != nil {
		return fail[domain.TemplateState](err)
	}
	return ok(t.State())
}

// GetTemplateHistory returns every event of the template, oldest first.
func (e Engine) GetTemplateHistory(ctx context.Context, templateID string) Result[[]EventView] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]EventView](err)
	}
	t, err := e.loadTemplate(ctx, ws, templateID)
	if err != nil {
		return fail[[]EventView](err)
	}
	stored, err := e.Events.ByAggregate(ctx, t.AggregateID())
	if err != nil {
		return fail[[]EventView](err)
	}
	views, err := eventViews(stored)
	if err != nil {
		return fail[[]EventView](err)
	}
	return ok(views)
}

func (e Engine) ListTemplates(ctx context.Context) Result[[]domain.TemplateState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.TemplateState](err)
	}
	list, err := e.Templates.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return fail[[]domain.TemplateState](err)
	}
	out := make([]domain.TemplateState, 0, len(list))
	for _, t := range list {
		out = append(out, t.State())
	}
	return ok(out)
}

func (e Engine) loadTemplate(ctx context.Context, ws ident.WorkspaceID, raw string) (*domain.Template, error) {
	id, err := parseID[ident.Template]("template_id", raw)
	if err != nil {
		return nil, err
	}
	t, err := e.Templates.FindByID(ctx, id)
	return inWorkspace(t, err, ws, "template "+id.String())
}

func (e Engine) assertTemplateNameFree(ctx context.Context, ws ident.WorkspaceID, self ident.TemplateID, name string) error {
	list, err := e.Templates.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	for _, t := range list {
		if !t.ID().Equals(self) && strings.EqualFold(t.Name(), name) {
			return &policy.Violation{Policy: "template name", Reasons: []string{fmt.Sprintf("template %q already exists", t.Name())}}
		}
	}
	return nil
}
