package auth

import (
	"context"
	"errors"
	"fmt"

	"taskflow/internal/domain"
	"taskflow/internal/ident"
)

// Permission ids granted to roles.
const (
	PermTaskWrite        = "task.write"
	PermQCDecide         = "qc.decide"
	PermAcceptanceDecide = "acceptance.decide"
	PermIssueWrite       = "issue.write"
	PermMemberManage     = "member.manage"
	PermRoleManage       = "role.manage"
	PermTemplateWrite    = "template.write"
	PermLogWrite         = "log.write"
	PermSettingsWrite    = "settings.write"
	PermEventsRead       = "events.read"
)

// Known lists every permission the engine checks.
var Known = []string{
	PermTaskWrite, PermQCDecide, PermAcceptanceDecide, PermIssueWrite, PermMemberManage,
	PermRoleManage, PermTemplateWrite, PermLogWrite, PermSettingsWrite, PermEventsRead,
}

// IsKnown reports whether perm is one of Known.
func IsKnown(perm string) bool {
	for _, p := range Known {
		if p == perm {
			return true
		}
	}
	return false
}

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Service resolves an actor's permissions through their membership and role.
type Service struct {
	Members domain.MemberRepository
	Roles   domain.RoleRepository
}

// ActorPermissions lists the permissions of an active member; anyone else has none.
func (s Service) ActorPermissions(ctx context.Context, workspaceID ident.WorkspaceID, actorID ident.UserID) ([]string, error) {
	role, err := s.activeRole(ctx, workspaceID, actorID)
	if err != nil || role == nil {
		return nil, err
	}
	return role.Granted(), nil
}

func (s Service) ActorHasPermission(ctx context.Context, workspaceID ident.WorkspaceID, actorID ident.UserID, perm string) (bool, error) {
	role, err := s.activeRole(ctx, workspaceID, actorID)
	if err != nil || role == nil {
		return false, err
	}
	return role.HasPermission(perm), nil
}

// Require returns ForbiddenError unless the actor holds perm.
func (s Service) Require(ctx context.Context, workspaceID ident.WorkspaceID, actorID ident.UserID, perm string) error {
	ok, err := s.ActorHasPermission(ctx, workspaceID, actorID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

func (s Service) activeRole(ctx context.Context, workspaceID ident.WorkspaceID, actorID ident.UserID) (*domain.Role, error) {
	m, err := s.Members.FindByUser(ctx, workspaceID, actorID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.Status() != domain.MemberActive {
		return nil, nil
	}
	role, err := s.Roles.FindByID(ctx, m.RoleID())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}
