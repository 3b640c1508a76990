package domain

import (
	"strings"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type TemplateState struct {
	ID          ident.TemplateID  `json:"id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Name        string            `json:"name"`
	Body        *string           `json:"body,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Template is a reusable task or checklist blueprint.
type Template struct {
	Root[ident.TemplateID]
	state TemplateState
}

func NewTemplate(f events.Factory, workspaceID ident.WorkspaceID, name string, body *string, opts ...events.Option) (*Template, error) {
	if workspaceID.IsZero() {
		return nil, invalid("workspace_id", "is required")
	}
	if err := policy.TemplateNaming.AssertIsValid(name); err != nil {
		return nil, err
	}
	id := ident.Generate[ident.Template](f.IDs)
	t := &Template{Root: newRoot(id, f)}
	name = strings.TrimSpace(name)
	evts, err := t.build(opts, events.TemplateCreatedPayload{TemplateID: id, WorkspaceID: workspaceID, Name: name, Body: body})
	if err != nil {
		return nil, err
	}
	now := t.now()
	t.state = TemplateState{ID: id, WorkspaceID: workspaceID, Name: name, Body: body, CreatedAt: now, UpdatedAt: now}
	t.record(evts)
	return t, nil
}

func RestoreTemplate(f events.Factory, s TemplateState, version int) *Template {
	return &Template{Root: restoreRoot(s.ID, f, version, nil), state: s}
}

func (t *Template) State() TemplateState           { return t.state }
func (t *Template) WorkspaceID() ident.WorkspaceID { return t.state.WorkspaceID }
func (t *Template) Name() string                   { return t.state.Name }

func (t *Template) Equals(other *Template) bool {
	return other != nil && t.SameIdentity(other.Entity)
}

func (t *Template) Rename(name string, opts ...events.Option) error {
	if err := policy.TemplateNaming.AssertIsValid(name); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == t.state.Name {
		return nil
	}
	evts, err := t.build(opts, events.TemplateRenamedPayload{TemplateID: t.ID(), From: t.state.Name, To: name})
	if err != nil {
		return err
	}
	t.state.Name = name
	t.state.UpdatedAt = t.now()
	t.record(evts)
	return nil
}
