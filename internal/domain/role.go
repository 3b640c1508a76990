package domain

import (
	"sort"
	"strings"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "GRANTED"
	PermissionRevoked PermissionStatus = "REVOKED"
)

var permissionTransitions = policy.Transitions[PermissionStatus]{
	PermissionRevoked: {PermissionGranted},
	PermissionGranted: {PermissionRevoked},
}

func ValidatePermissionTransition(from, to PermissionStatus) policy.Transition {
	return permissionTransitions.Validate(from, to)
}

type RoleState struct {
	ID          ident.RoleID                `json:"id"`
	WorkspaceID ident.WorkspaceID           `json:"workspace_id"`
	Name        string                      `json:"name"`
	Permissions map[string]PermissionStatus `json:"permissions"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// Role is a named set of permissions inside a workspace.
type Role struct {
	Root[ident.RoleID]
	state RoleState
}

// NewRole creates a role. A zero id is generated.
func NewRole(f events.Factory, id ident.RoleID, workspaceID ident.WorkspaceID, name string, opts ...events.Option) (*Role, error) {
	if workspaceID.IsZero() {
		return nil, invalid("workspace_id", "is required")
	}
	if err := policy.RoleNaming.AssertIsValid(name); err != nil {
		return nil, err
	}
	if id.IsZero() {
		id = ident.Generate[ident.Role](f.IDs)
	}
	r := &Role{Root: newRoot(id, f)}
	name = strings.TrimSpace(name)
	evts, err := r.build(opts, events.RoleCreatedPayload{RoleID: id, WorkspaceID: workspaceID, Name: name})
	if err != nil {
		return nil, err
	}
	now := r.now()
	r.state = RoleState{ID: id, WorkspaceID: workspaceID, Name: name, Permissions: map[string]PermissionStatus{}, CreatedAt: now, UpdatedAt: now}
	r.record(evts)
	return r, nil
}

func RestoreRole(f events.Factory, s RoleState, version int) *Role {
	if s.Permissions == nil {
		s.Permissions = map[string]PermissionStatus{}
	}
	return &Role{Root: restoreRoot(s.ID, f, version, nil), state: s}
}

func (r *Role) State() RoleState {
	s := r.state
	s.Permissions = make(map[string]PermissionStatus, len(r.state.Permissions))
	for k, v := range r.state.Permissions {
		s.Permissions[k] = v
	}
	return s
}

func (r *Role) WorkspaceID() ident.WorkspaceID { return r.state.WorkspaceID }
func (r *Role) Name() string                   { return r.state.Name }
func (r *Role) Equals(other *Role) bool        { return other != nil && r.SameIdentity(other.Entity) }

func (r *Role) HasPermission(permission string) bool {
	return r.state.Permissions[permission] == PermissionGranted
}

// Granted lists granted permissions, sorted.
func (r *Role) Granted() []string {
	var out []string
	for p, s := range r.state.Permissions {
		if s == PermissionGranted {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Role) permissionStatus(permission string) PermissionStatus {
	if s, ok := r.state.Permissions[permission]; ok {
		return s
	}
	return PermissionRevoked
}

func (r *Role) Rename(name string, opts ...events.Option) error {
	if err := policy.RoleNaming.AssertIsValid(name); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == r.state.Name {
		return nil
	}
	evts, err := r.build(opts, events.RoleRenamedPayload{RoleID: r.ID(), From: r.state.Name, To: name})
	if err != nil {
		return err
	}
	r.state.Name = name
	r.state.UpdatedAt = r.now()
	r.record(evts)
	return nil
}

func (r *Role) Grant(permission string, opts ...events.Option) error {
	return r.setPermission(permission, PermissionGranted, opts)
}

func (r *Role) Revoke(permission string, opts ...events.Option) error {
	return r.setPermission(permission, PermissionRevoked, opts)
}

func (r *Role) setPermission(permission string, to PermissionStatus, opts []events.Option) error {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return invalid("permission", "is required")
	}
	if err := permissionTransitions.Assert("permission "+permission, r.permissionStatus(permission), to); err != nil {
		return err
	}
	var payload events.Payload = events.PermissionGrantedPayload{RoleID: r.ID(), Permission: permission}
	if to == PermissionRevoked {
		payload = events.PermissionRevokedPayload{RoleID: r.ID(), Permission: permission}
	}
	evts, err := r.build(opts, payload)
	if err != nil {
		return err
	}
	r.state.Permissions[permission] = to
	r.state.UpdatedAt = r.now()
	r.record(evts)
	return nil
}
