package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

// OwnerRole receives the initializing actor when the config defines it.
const OwnerRole = "manager"

type InitWorkspaceRequest struct {
	ActorID string
	Email   string
}

type WorkspaceView struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Roles   []domain.RoleState   `json:"roles"`
	Members []domain.MemberState `json:"members"`
}

// InitWorkspace seeds the configured roles and makes the actor an active member of the
// owner role. Running it again only adds what is missing.
func (e Engine) InitWorkspace(ctx context.Context, req InitWorkspaceRequest) Result[WorkspaceView] {
	ws, actor, err := e.authorize(ctx, req.ActorID, "")
	if err != nil {
		return fail[WorkspaceView](err)
	}
	keys := make([]string, 0, len(e.Config.Roles))
	for k := range e.Config.Roles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return fail[WorkspaceView](&domain.ValidationError{Field: "roles", Message: "config defines no roles"})
	}
	for _, key := range keys {
		if err := e.seedRole(ctx, ws, actor, key); err != nil {
			return fail[WorkspaceView](err)
		}
	}
	owner := keys[0]
	if _, found := e.Config.Roles[OwnerRole]; found {
		owner = OwnerRole
	}
	if _, err := e.Members.FindByUser(ctx, ws, actor); errors.Is(err, domain.ErrNotFound) {
		email := strings.TrimSpace(req.Email)
		if email == "" {
			email = actor.String() + "@localhost"
		}
		m, err := domain.InviteMember(e.Factory, ws, email, ident.MustCreate[ident.Role](owner), &actor, events.ByActor(actor))
		if err != nil {
			return fail[WorkspaceView](err)
		}
		evts := m.PullDomainEvents()
		if err := m.Join(actor, events.ByActor(actor), events.CausedBy(evts[0])); err != nil {
			return fail[WorkspaceView](err)
		}
		evts = append(evts, m.PullDomainEvents()...)
		if err := e.commit(ctx, evts, save(e.Members, m)); err != nil {
			return fail[WorkspaceView](err)
		}
		e.Log.Info("workspace owner joined", zap.String("workspace_id", ws.String()), zap.String("user_id", actor.String()))
	} else if err != nil {
		return fail[WorkspaceView](err)
	}
	return e.workspaceView(ctx, ws)
}

func (e Engine) seedRole(ctx context.Context, ws ident.WorkspaceID, actor ident.UserID, key string) error {
	id := ident.MustCreate[ident.Role](key)
	if _, err := e.Roles.FindByID(ctx, id); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	cfg := e.Config.Roles[key]
	role, evts, err := e.newRole(id, ws, actor, cfg.Name, cfg.Permissions)
	if err != nil {
		return fmt.Errorf("role %s: %w", key, err)
	}
	return e.commit(ctx, evts, save(e.Roles, role))
}

// newRole creates a role with its grants, each caused by the creation.
func (e Engine) newRole(id ident.RoleID, ws ident.WorkspaceID, actor ident.UserID, name string, perms []string) (*domain.Role, []events.CausalEvent, error) {
	for _, p := range perms {
		if !auth.IsKnown(p) {
			return nil, nil, &domain.ValidationError{Field: "permissions", Message: fmt.Sprintf("unknown permission %q", p)}
		}
	}
	role, err := domain.NewRole(e.Factory, id, ws, name, events.ByActor(actor))
	if err != nil {
		return nil, nil, err
	}
	evts := role.PullDomainEvents()
	for _, p := range perms {
		if role.HasPermission(p) {
			continue
		}
		if err := role.Grant(p, events.ByActor(actor), events.CausedBy(evts[0])); err != nil {
			return nil, nil, err
		}
	}
	return role, append(evts, role.PullDomainEvents()...), nil
}

func (e Engine) Workspace(ctx context.Context) Result[WorkspaceView] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[WorkspaceView](err)
	}
	return e.workspaceView(ctx, ws)
}

func (e Engine) workspaceView(ctx context.Context, ws ident.WorkspaceID) Result[WorkspaceView] {
	roles, err := e.Roles.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return fail[WorkspaceView](err)
	}
	members, err := e.Members.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return fail[WorkspaceView](err)
	}
	view := WorkspaceView{ID: ws.String(), Name: e.Config.Workspace.Name}
	for _, r := range roles {
		view.Roles = append(view.Roles, r.State())
	}
	for _, m := range members {
		view.Members = append(view.Members, m.State())
	}
	return ok(view)
}

type InviteMemberRequest struct {
	Email   string
	RoleID  string
	ActorID string
}

func (e Engine) InviteMember(ctx context.Context, req InviteMemberRequest) Result[domain.MemberState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermMemberManage)
	if err != nil {
		return fail[domain.MemberState](err)
	}
	role, err := e.loadRole(ctx, ws, req.RoleID)
	if err != nil {
		return fail[domain.MemberState](err)
	}
	m, err := domain.InviteMember(e.Factory, ws, req.Email, role.ID(), &actor, events.ByActor(actor))
	if err != nil {
		return fail[domain.MemberState](err)
	}
	if err := e.commit(ctx, m.PullDomainEvents(), save(e.Members, m)); err != nil {
		return fail[domain.MemberState](err)
	}
	return ok(m.State())
}

type JoinMemberRequest struct {
	MemberID string
	UserID   string
}

// JoinMember accepts an invitation. The joining user needs no permission but must not
// already belong to the workspace.
func (e Engine) JoinMember(ctx context.Context, req JoinMemberRequest) Result[domain.MemberState] {
	ws, user, err := e.authorize(ctx, req.UserID, "")
	if err != nil {
		return fail[domain.MemberState](err)
	}
	if _, err := e.Members.FindByUser(ctx, ws, user); err == nil {
		return fail[domain.MemberState](&policy.Violation{Policy: "member", Reasons: []string{fmt.Sprintf("user %s is already a member", user)}})
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fail[domain.MemberState](err)
	}
	m, err := e.loadMember(ctx, ws, req.MemberID)
	if err != nil {
		return fail[domain.MemberState](err)
	}
	if err := m.Join(user, events.ByActor(user)); err != nil {
		return fail[domain.MemberState](err)
	}
	if err := e.commit(ctx, m.PullDomainEvents(), save(e.Members, m)); err != nil {
		return fail[domain.MemberState](err)
	}
	return ok(m.State())
}

type ChangeMemberStatusRequest struct {
	MemberID string
	Status   string
	ActorID  string
}

func (e Engine) ChangeMemberStatus(ctx context.Context, req ChangeMemberStatusRequest) Result[domain.MemberState] {
	to := domain.MemberStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	return e.mutateMember(ctx, req.ActorID, req.MemberID, func(m *domain.Member, actor ident.UserID) error {
		if m.UserID() != nil && m.UserID().Equals(actor) && to != domain.MemberActive {
			return &policy.Violation{Policy: "member status", Reasons: []string{"members cannot change their own status"}}
		}
		return m.ChangeStatus(to, events.ByActor(actor))
	})
}

type ChangeMemberRoleRequest struct {
	MemberID string
	RoleID   string
	ActorID  string
}

func (e Engine) ChangeMemberRole(ctx context.Context, req ChangeMemberRoleRequest) Result[domain.MemberState] {
	return e.mutateMember(ctx, req.ActorID, req.MemberID, func(m *domain.Member, actor ident.UserID) error {
		role, err := e.loadRole(ctx, m.WorkspaceID(), req.RoleID)
		if err != nil {
			return err
		}
		return m.ChangeRole(role.ID(), events.ByActor(actor))
	})
}

func (e Engine) ListMembers(ctx context.Context) Result[[]domain.MemberState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.MemberState](err)
	}
	members, err := e.Members.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return fail[[]domain.MemberState](err)
	}
	out := make([]domain.MemberState, 0, len(members))
	for _, m := range members {
		out = append(out, m.State())
	}
	return ok(out)
}

func (e Engine) mutateMember(ctx context.Context, actorID, memberID string, fn func(*domain.Member, ident.UserID) error) Result[domain.MemberState] {
	ws, actor, err := e.authorize(ctx, actorID, auth.PermMemberManage)
	if err != nil {
		return fail[domain.MemberState](err)
	}
	m, err := e.loadMember(ctx, ws, memberID)
	if err != nil {
		return fail[domain.MemberState](err)
	}
	if err := fn(m, actor); err != nil {
		return fail[domain.MemberState](err)
	}
	if err := e.commit(ctx, m.PullDomainEvents(), save(e.Members, m)); err != nil {
		return fail[domain.MemberState](err)
	}
	return ok(m.State())
}

func (e Engine) loadMember(ctx context.Context, ws ident.WorkspaceID, raw string) (*domain.Member, error) {
	id, err := parseID[ident.Member]("member_id", raw)
	if err != nil {
		return nil, err
	}
	m, err := e.Members.FindByID(ctx, id)
	return inWorkspace(m, err, ws, "member "+id.String())
}

type CreateRoleRequest struct {
	ID          string
	Name        string
	Permissions []string
	ActorID     string
}

// CreateRole adds a role. Names are unique per workspace, ignoring case.
func (e Engine) CreateRole(ctx context.Context, req CreateRoleRequest) Result[domain.RoleState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermRoleManage)
	if err != nil {
		return fail[domain.RoleState](err)
	}
	var id ident.RoleID
	if req.ID != "" {
		if id, err = parseID[ident.Role]("id", req.ID); err != nil {
			return fail[domain.RoleState](err)
		}
	}
	if err := e.assertRoleNameFree(ctx, ws, id, req.Name); err != nil {
		return fail[domain.RoleState](err)
	}
	role, evts, err := e.newRole(id, ws, actor, req.Name, req.Permissions)
	if err != nil {
		return fail[domain.RoleState](err)
	}
	if err := e.commit(ctx, evts, save(e.Roles, role)); err != nil {
		return fail[domain.RoleState](err)
	}
	return ok(role.State())
}

type RoleRequest struct {
	RoleID string
	// Value is the new name for RenameRole and the permission for Grant and Revoke.
	Value   string
	ActorID string
}

func (e Engine) RenameRole(ctx context.Context, req RoleRequest) Result[domain.RoleState] {
	return e.mutateRole(ctx, req, func(r *domain.Role, actor ident.UserID) error {
		if err := e.assertRoleNameFree(ctx, r.WorkspaceID(), r.ID(), req.Value); err != nil {
			return err
		}
		return r.Rename(req.Value, events.ByActor(actor))
	})
}

func (e Engine) GrantPermission(ctx context.Context, req RoleRequest) Result[domain.RoleState] {
	return e.mutateRole(ctx, req, func(r *domain.Role, actor ident.UserID) error {
		if !auth.IsKnown(req.Value) {
			return &domain.ValidationError{Field: "permission", Message: fmt.Sprintf("unknown permission %q", req.Value)}
		}
		return r.Grant(req.Value, events.ByActor(actor))
	})
}

func (e Engine) RevokePermission(ctx context.Context, req RoleRequest) Result[domain.RoleState] {
	return e.mutateRole(ctx, req, func(r *domain.Role, actor ident.UserID) error {
		return r.Revoke(req.Value, events.ByActor(actor))
	})
}

func (e Engine) ListRoles(ctx context.Context) Result[[]domain.RoleState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.RoleState](err)
	}
	roles, err := e.Roles.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return fail[[]domain.RoleState](err)
	}
	out := make([]domain.RoleState, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.State())
	}
	return ok(out)
}

func (e Engine) mutateRole(ctx context.Context, req RoleRequest, fn func(*domain.Role, ident.UserID) error) Result[domain.RoleState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermRoleManage)
	if err != nil {
		return fail[domain.RoleState](err)
	}
	role, err := e.loadRole(ctx, ws, req.RoleID)
	if err != nil {
		return fail[domain.RoleState](err)
	}
	if err := fn(role, actor); err != nil {
		return fail[domain.RoleState](err)
	}
	if err := e.commit(ctx, role.PullDomainEvents(), save(e.Roles, role)); err != nil {
		return fail[domain.RoleState](err)
	}
	return ok(role.State())
}

func (e Engine) loadRole(ctx context.Context, ws ident.WorkspaceID, raw string) (*domain.Role, error) {
	id, err := parseID[ident.Role]("role_id", raw)
	if err != nil {
		return nil, err
	}
	role, err := e.Roles.FindByID(ctx, id)
	return inWorkspace(role, err, ws, "role "+id.String())
}

func (e Engine) assertRoleNameFree(ctx context.Context, ws ident.WorkspaceID, self ident.RoleID, name string) error {
	roles, err := e.Roles.FindByWorkspaceID(ctx, ws)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	for _, r := range roles {
		if !r.ID().Equals(self) && strings.EqualFold(r.Name(), name) {
			return &policy.Violation{Policy: "role name", Reasons: []string{fmt.Sprintf("role %q already exists", r.Name())}}
		}
	}
	return nil
}
