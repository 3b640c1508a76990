package events

import (
	"encoding/json"

	"taskflow/internal/ident"
)

// Payload is the variant-specific body of an event. Its Go type fixes the event Type.
// Optional fields are pointers tagged omitempty so an absent input never serializes as a key.
type Payload interface {
	EventType() Type
}

type TaskCreatedPayload struct {
	TaskID      ident.TaskID      `json:"task_id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Title       string            `json:"title"`
	ParentID    *ident.TaskID     `json:"parent_id,omitempty"`
	CreatedBy   *ident.UserID     `json:"created_by,omitempty"`
}

type SubtaskAddedPayload struct {
	ParentID  ident.TaskID `json:"parent_id"`
	SubtaskID ident.TaskID `json:"subtask_id"`
	Depth     int          `json:"depth"`
}

type TaskProgressUpdatedPayload struct {
	TaskID ident.TaskID `json:"task_id"`
	From   int          `json:"from"`
	To     int          `json:"to"`
}

type TaskStatusChangedPayload struct {
	TaskID ident.TaskID `json:"task_id"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Reason *string      `json:"reason,omitempty"`
}

type TaskSubmittedForQCPayload struct {
	TaskID      ident.TaskID  `json:"task_id"`
	From        string        `json:"from"`
	SubmittedBy *ident.UserID `json:"submitted_by,omitempty"`
}

type TaskCompletedPayload struct {
	TaskID       ident.TaskID        `json:"task_id"`
	AcceptanceID *ident.AcceptanceID `json:"acceptance_id,omitempty"`
}

type QCCheckCreatedPayload struct {
	CheckID ident.QCCheckID `json:"check_id"`
	TaskID  ident.TaskID    `json:"task_id"`
}

type QCPassedPayload struct {
	CheckID     ident.QCCheckID `json:"check_id"`
	TaskID      ident.TaskID    `json:"task_id"`
	Notes       *string         `json:"notes,omitempty"`
	InspectorID *ident.UserID   `json:"inspector_id,omitempty"`
}

type QCFailedPayload struct {
	CheckID     ident.QCCheckID `json:"check_id"`
	TaskID      ident.TaskID    `json:"task_id"`
	Reason      string          `json:"reason"`
	Notes       *string         `json:"notes,omitempty"`
	InspectorID *ident.UserID   `json:"inspector_id,omitempty"`
}

type QCRecheckRequestedPayload struct {
	CheckID ident.QCCheckID `json:"check_id"`
	TaskID  ident.TaskID    `json:"task_id"`
	Attempt int             `json:"attempt"`
}

type IssueCreatedPayload struct {
	IssueID   ident.IssueID    `json:"issue_id"`
	TaskID    ident.TaskID     `json:"task_id"`
	Title     string           `json:"title"`
	Blocking  bool             `json:"blocking"`
	QCCheckID *ident.QCCheckID `json:"qc_check_id,omitempty"`
}

type IssueResolvedPayload struct {
	IssueID    ident.IssueID `json:"issue_id"`
	TaskID     ident.TaskID  `json:"task_id"`
	Resolution *string       `json:"resolution,omitempty"`
	ResolvedBy *ident.UserID `json:"resolved_by,omitempty"`
}

type IssueReopenedPayload struct {
	IssueID ident.IssueID `json:"issue_id"`
	TaskID  ident.TaskID  `json:"task_id"`
	Reason  *string       `json:"reason,omitempty"`
}

type IssueClosedPayload struct {
	IssueID ident.IssueID `json:"issue_id"`
	TaskID  ident.TaskID  `json:"task_id"`
}

type AcceptanceRequestedPayload struct {
	AcceptanceID ident.AcceptanceID `json:"acceptance_id"`
	TaskID       ident.TaskID       `json:"task_id"`
	RequestedBy  *ident.UserID      `json:"requested_by,omitempty"`
}

type AcceptanceApprovedPayload struct {
	AcceptanceID  ident.AcceptanceID `json:"acceptance_id"`
	TaskID        ident.TaskID       `json:"task_id"`
	ApprovalNotes *string            `json:"approval_notes,omitempty"`
	UserID        *ident.UserID      `json:"user_id,omitempty"`
}

type AcceptanceRejectedPayload struct {
	AcceptanceID ident.AcceptanceID `json:"acceptance_id"`
	TaskID       ident.TaskID       `json:"task_id"`
	ReviewNotes  *string            `json:"review_notes,omitempty"`
	UserID       *ident.UserID      `json:"user_id,omitempty"`
}

type AcceptanceResubmittedPayload struct {
	AcceptanceID ident.AcceptanceID `json:"acceptance_id"`
	TaskID       ident.TaskID       `json:"task_id"`
}

type MemberInvitedPayload struct {
	MemberID    ident.MemberID    `json:"member_id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Email       string            `json:"email"`
	RoleID      ident.RoleID      `json:"role_id"`
	InvitedBy   *ident.UserID     `json:"invited_by,omitempty"`
}

type MemberJoinedPayload struct {
	MemberID ident.MemberID `json:"member_id"`
	UserID   ident.UserID   `json:"user_id"`
}

type MemberStatusChangedPayload struct {
	MemberID ident.MemberID `json:"member_id"`
	From     string         `json:"from"`
	To       string         `json:"to"`
}

type MemberRoleChangedPayload struct {
	MemberID ident.MemberID `json:"member_id"`
	From     ident.RoleID   `json:"from"`
	To       ident.RoleID   `json:"to"`
}

type RoleCreatedPayload struct {
	RoleID      ident.RoleID      `json:"role_id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Name        string            `json:"name"`
}

type RoleRenamedPayload struct {
	RoleID ident.RoleID `json:"role_id"`
	From   string       `json:"from"`
	To     string       `json:"to"`
}

type PermissionGrantedPayload struct {
	RoleID     ident.RoleID `json:"role_id"`
	Permission string       `json:"permission"`
}

type PermissionRevokedPayload struct {
	RoleID     ident.RoleID `json:"role_id"`
	Permission string       `json:"permission"`
}

type TemplateCreatedPayload struct {
	TemplateID  ident.TemplateID  `json:"template_id"`
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Name        string            `json:"name"`
	Body        *string           `json:"body,omitempty"`
}

type TemplateRenamedPayload struct {
	TemplateID ident.TemplateID `json:"template_id"`
	From       string           `json:"from"`
	To         string           `json:"to"`
}

type DailyEntryLoggedPayload struct {
	EntryID   ident.DailyEntryID `json:"entry_id"`
	UserID    ident.UserID       `json:"user_id"`
	TaskID    ident.TaskID       `json:"task_id"`
	Date      string             `json:"date"`
	Headcount float64            `json:"headcount"`
	Note      *string            `json:"note,omitempty"`
}

type DailyEntryAdjustedPayload struct {
	EntryID ident.DailyEntryID `json:"entry_id"`
	From    float64            `json:"from"`
	To      float64            `json:"to"`
}

type SettingsUpdatedPayload struct {
	WorkspaceID ident.WorkspaceID `json:"workspace_id"`
	Theme       *string           `json:"theme,omitempty"`
	Language    *string           `json:"language,omitempty"`
}

func (TaskCreatedPayload) EventType() Type           { return TaskCreated }
func (SubtaskAddedPayload) EventType() Type          { return SubtaskAdded }
func (TaskProgressUpdatedPayload) EventType() Type   { return TaskProgressUpdated }
func (TaskStatusChangedPayload) EventType() Type     { return TaskStatusChanged }
func (TaskSubmittedForQCPayload) EventType() Type    { return TaskSubmittedForQC }
func (TaskCompletedPayload) EventType() Type         { return TaskCompleted }
func (QCCheckCreatedPayload) EventType() Type        { return QCCheckCreated }
func (QCPassedPayload) EventType() Type              { return QCPassed }
func (QCFailedPayload) EventType() Type              { return QCFailed }
func (QCRecheckRequestedPayload) EventType() Type    { return QCRecheckRequested }
func (IssueCreatedPayload) EventType() Type          { return IssueCreated }
func (IssueResolvedPayload) EventType() Type         { return IssueResolved }
func (IssueReopenedPayload) EventType() Type         { return IssueReopened }
func (IssueClosedPayload) EventType() Type           { return IssueClosed }
func (AcceptanceRequestedPayload) EventType() Type   { return AcceptanceRequested }
func (AcceptanceApprovedPayload) EventType() Type    { return AcceptanceApproved }
func (AcceptanceRejectedPayload) EventType() Type    { return AcceptanceRejected }
func (AcceptanceResubmittedPayload) EventType() Type { return AcceptanceResubmitted }
func (MemberInvitedPayload) EventType() Type         { return MemberInvited }
func (MemberJoinedPayload) EventType() Type          { return MemberJoined }
func (MemberStatusChangedPayload) EventType() Type   { return MemberStatusChanged }
func (MemberRoleChangedPayload) EventType() Type     { return MemberRoleChanged }
func (RoleCreatedPayload) EventType() Type           { return RoleCreated }
func (RoleRenamedPayload) EventType() Type           { return RoleRenamed }
func (PermissionGrantedPayload) EventType() Type     { return PermissionGranted }
func (PermissionRevokedPayload) EventType() Type     { return PermissionRevoked }
func (TemplateCreatedPayload) EventType() Type       { return TemplateCreated }
func (TemplateRenamedPayload) EventType() Type       { return TemplateRenamed }
func (DailyEntryLoggedPayload) EventType() Type      { return DailyEntryLogged }
func (DailyEntryAdjustedPayload) EventType() Type    { return DailyEntryAdjusted }
func (SettingsUpdatedPayload) EventType() Type       { return SettingsUpdated }

var decoders = map[Type]func(json.RawMessage) (Payload, error){
	TaskCreated:           decodeAs[TaskCreatedPayload],
	SubtaskAdded:          decodeAs[SubtaskAddedPayload],
	TaskProgressUpdated:   decodeAs[TaskProgressUpdatedPayload],
	TaskStatusChanged:     decodeAs[TaskStatusChangedPayload],
	TaskSubmittedForQC:    decodeAs[TaskSubmittedForQCPayload],
	TaskCompleted:         decodeAs[TaskCompletedPayload],
	QCCheckCreated:        decodeAs[QCCheckCreatedPayload],
	QCPassed:              decodeAs[QCPassedPayload],
	QCFailed:              decodeAs[QCFailedPayload],
	QCRecheckRequested:    decodeAs[QCRecheckRequestedPayload],
	IssueCreated:          decodeAs[IssueCreatedPayload],
	IssueResolved:         decodeAs[IssueResolvedPayload],
	IssueReopened:         decodeAs[IssueReopenedPayload],
	IssueClosed:           decodeAs[IssueClosedPayload],
	AcceptanceRequested:   decodeAs[AcceptanceRequestedPayload],
	AcceptanceApproved:    decodeAs[AcceptanceApprovedPayload],
	AcceptanceRejected:    decodeAs[AcceptanceRejectedPayload],
	AcceptanceResubmitted: decodeAs[AcceptanceResubmittedPayload],
	MemberInvited:         decodeAs[MemberInvitedPayload],
	MemberJoined:          decodeAs[MemberJoinedPayload],
	MemberStatusChanged:   decodeAs[MemberStatusChangedPayload],
	MemberRoleChanged:     decodeAs[MemberRoleChangedPayload],
	RoleCreated:           decodeAs[RoleCreatedPayload],
	RoleRenamed:           decodeAs[RoleRenamedPayload],
	PermissionGranted:     decodeAs[PermissionGrantedPayload],
	PermissionRevoked:     decodeAs[PermissionRevokedPayload],
	TemplateCreated:       decodeAs[TemplateCreatedPayload],
	TemplateRenamed:       decodeAs[TemplateRenamedPayload],
	DailyEntryLogged:      decodeAs[DailyEntryLoggedPayload],
	DailyEntryAdjusted:    decodeAs[DailyEntryAdjustedPayload],
	SettingsUpdated:       decodeAs[SettingsUpdatedPayload],
}

func decodeAs[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
