package domain

import (
	"net/mail"
	"strings"
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type MemberStatus string

const (
	MemberInvited   MemberStatus = "INVITED"
	MemberActive    MemberStatus = "ACTIVE"
	MemberSuspended MemberStatus = "SUSPENDED"
	MemberRemoved   MemberStatus = "REMOVED"
	MemberRevoked   MemberStatus = "REVOKED"
)

var memberTransitions = policy.Transitions[MemberStatus]{
	MemberInvited:   {MemberActive, MemberRevoked},
	MemberActive:    {MemberSuspended, MemberRemoved},
	MemberSuspended: {MemberActive, MemberRemoved},
}

func ValidateMemberTransition(from, to MemberStatus) policy.Transition {
	return memberTransitions.Validate(from, to)
}

type MemberState struct {
	ID          ident.MemberID    `json:"id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Email       string            `json:"email"`
	UserID      *ident.UserID     `json:"user_id,omitempty"`
	RoleID      ident.RoleID      `json:"role_id"`
	Status      MemberStatus      `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type Member struct {
	Root[ident.MemberID]
	state MemberState
}

func InviteMember(f events.Factory, workspaceID ident.WorkspaceID, email string, roleID ident.RoleID, invitedBy *ident.UserID, opts ...events.Option) (*Member, error) {
	if workspaceID.IsZero() {
		return nil, invalid("workspace_id", "is required")
	}
	if roleID.IsZero() {
		return nil, invalid("role_id", "is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, invalid("email", "%q is not a valid address", email)
	}
	id := ident.Generate[ident.Member](f.IDs)
	m := &Member{Root: newRoot(id, f)}
	evts, err := m.build(opts, events.MemberInvitedPayload{MemberID: id, WorkspaceID: workspaceID, Email: addr.Address, RoleID: roleID, InvitedBy: invitedBy})
	if err != nil {
		return nil, err
	}
	now := m.now()
	m.state = MemberState{ID: id, WorkspaceID: workspaceID, Email: addr.Address, RoleID: roleID, Status: MemberInvited, CreatedAt: now, UpdatedAt: now}
	m.record(evts)
	return m, nil
}

func RestoreMember(f events.Factory, s MemberState, version int) *Member {
	return &Member{Root: restoreRoot(s.ID, f, version, nil), state: s}
}

func (m *Member) State() MemberState             { return m.state }
func (m *Member) WorkspaceID() ident.WorkspaceID { return m.state.WorkspaceID }
func (m *Member) RoleID() ident.RoleID           { return m.state.RoleID }
func (m *Member) Status() MemberStatus           { return m.state.Status }
func (m *Member) UserID() *ident.UserID          { return m.state.UserID }
func (m *Member) Equals(other *Member) bool      { return other != nil && m.SameIdentity(other.Entity) }

// Join accepts the invitation on behalf of userID.
func (m *Member) Join(userID ident.UserID, opts ...events.Option) error {
	if userID.IsZero() {
		return invalid("user_id", "is required")
	}
	if err := memberTransitions.Assert("member status", m.state.Status, MemberActive); err != nil {
		return err
	}
	if m.state.Status != MemberInvited {
		return &policy.Violation{Policy: "member status", Reasons: []string{"only invited members can join"}}
	}
	evts, err := m.build(opts, events.MemberJoinedPayload{MemberID: m.ID(), UserID: userID})
	if err != nil {
		return err
	}
	m.state.Status = MemberActive
	m.state.UserID = &userID
	m.state.UpdatedAt = m.now()
	m.record(evts)
	return nil
}

// ChangeStatus suspends, reactivates, removes or revokes along the allow-list.
func (m *Member) ChangeStatus(to MemberStatus, opts ...events.Option) error {
	if to == MemberActive && m.state.Status == MemberInvited {
		return &policy.Violation{Policy: "member status", Reasons: []string{"invited members become active by joining"}}
	}
	if err := memberTransitions.Assert("member status", m.state.Status, to); err != nil {
		return err
	}
	evts, err := m.build(opts, events.MemberStatusChangedPayload{MemberID: m.ID(), From: string(m.state.Status), To: string(to)})
	if err != nil {
		return err
	}
	m.state.Status = to
	m.state.UpdatedAt = m.now()
	m.record(evts)
	return nil
}

func (m *Member) ChangeRole(roleID ident.RoleID, opts ...events.Option) error {
	if roleID.IsZero() {
		return invalid("role_id", "is required")
	}
	if m.state.Status != MemberInvited && m.state.Status != MemberActive {
		return &policy.Violation{Policy: "member role", Reasons: []string{"role can only change for invited or active members"}}
	}
	if roleID.Equals(m.state.RoleID) {
		return &policy.Violation{Policy: "member role", Reasons: []string{"No change"}}
	}
	evts, err := m.build(opts, events.MemberRoleChangedPayload{MemberID: m.ID(), From: m.state.RoleID, To: roleID})
	if err != nil {
		return err
	}
	m.state.RoleID = roleID
	m.state.UpdatedAt = m.now()
	m.record(evts)
	return nil
}
