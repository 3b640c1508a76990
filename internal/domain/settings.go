package domain

import (
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

const (
	DefaultTheme    = "system"
	DefaultLanguage = "en"
)

type SettingsState struct {
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Theme       string            `json:"theme"`
	Language    string            `json:"language"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// WorkspaceSettings holds a workspace's preferences, keyed by the workspace id.
type WorkspaceSettings struct {
	Root[ident.WorkspaceID]
	state SettingsState
}

// DefaultSettings returns unsaved defaults for a workspace that has none stored.
func DefaultSettings(f events.Factory, workspaceID ident.WorkspaceID) *WorkspaceSettings {
	return &WorkspaceSettings{
		Root:  newRoot(workspaceID, f),
		state: SettingsState{WorkspaceID: workspaceID, Theme: DefaultTheme, Language: DefaultLanguage},
	}
}

func RestoreSettings(f events.Factory, s SettingsState, version int) *WorkspaceSettings {
	return &WorkspaceSettings{Root: restoreRoot(s.WorkspaceID, f, version, nil), state: s}
}

func (s *WorkspaceSettings) State() SettingsState           { return s.state }
func (s *WorkspaceSettings) WorkspaceID() ident.WorkspaceID { return s.state.WorkspaceID }

// Update applies the supplied fields. Every invalid field is reported together.
// Only changed fields appear in the SettingsUpdated payload.
func (s *WorkspaceSettings) Update(theme, language *string, opts ...events.Option) error {
	next := policy.SettingsValues{Theme: s.state.Theme, Language: s.state.Language}
	if theme != nil {
		next.Theme = *theme
	}
	if language != nil {
		next.Language = *language
	}
	if err := (policy.Settings{}).AssertIsValid(next); err != nil {
		return err
	}
	payload := events.SettingsUpdatedPayload{WorkspaceID: s.state.WorkspaceID}
	if next.Theme != s.state.Theme {
		payload.Theme = &next.Theme
	}
	if next.Language != s.state.Language {
		payload.Language = &next.Language
	}
	if payload.Theme == nil && payload.Language == nil {
		return nil
	}
	evts, err := s.build(opts, payload)
	if err != nil {
		return err
	}
	s.state.Theme = next.Theme
	s.state.Language = next.Language
	s.state.UpdatedAt = s.now()
	s.record(evts)
	return nil
}
