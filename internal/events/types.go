package events

import "strings"

// Type identifies a business fact. One constant per payload struct.
type Type string

const (
	TaskCreated         Type = "TaskCreated"
	SubtaskAdded        Type = "SubtaskAdded"
	TaskProgressUpdated Type = "TaskProgressUpdated"
	TaskStatusChanged   Type = "TaskStatusChanged"
	TaskSubmittedForQC  Type = "TaskSubmittedForQC"
	TaskCompleted       Type = "TaskCompleted"

	QCCheckCreated     Type = "QCCheckCreated"
	QCPassed           Type = "QCPassed"
	QCFailed           Type = "QCFailed"
	QCRecheckRequested Type = "QCRecheckRequested"

	IssueCreated  Type = "IssueCreated"
	IssueResolved Type = "IssueResolved"
	IssueReopened Type = "IssueReopened"
	IssueClosed   Type = "IssueClosed"

	AcceptanceRequested   Type = "AcceptanceRequested"
	AcceptanceApproved    Type = "AcceptanceApproved"
	AcceptanceRejected    Type = "AcceptanceRejected"
	AcceptanceResubmitted Type = "AcceptanceResubmitted"

	MemberInvited       Type = "MemberInvited"
	MemberJoined        Type = "MemberJoined"
	MemberStatusChanged Type = "MemberStatusChanged"
	MemberRoleChanged   Type = "MemberRoleChanged"

	RoleCreated       Type = "RoleCreated"
	RoleRenamed       Type = "RoleRenamed"
	PermissionGranted Type = "PermissionGranted"
	PermissionRevoked Type = "PermissionRevoked"

	TemplateCreated Type = "TemplateCreated"
	TemplateRenamed Type = "TemplateRenamed"

	DailyEntryLogged   Type = "DailyEntryLogged"
	DailyEntryAdjusted Type = "DailyEntryAdjusted"

	SettingsUpdated Type = "SettingsUpdated"
)

// IsValid reports whether t has a registered payload.
func (t Type) IsValid() bool {
	_, ok := decoders[t]
	return ok
}

// Domain returns the bounded context that owns t, or "" when unknown.
func (t Type) Domain() string {
	if !t.IsValid() {
		return ""
	}
	s := string(t)
	switch {
	case strings.HasPrefix(s, "Task"), s == string(SubtaskAdded):
		return "task"
	case strings.HasPrefix(s, "QC"):
		return "qc"
	case strings.HasPrefix(s, "Issue"):
		return "issue"
	case strings.HasPrefix(s, "Acceptance"):
		return "acceptance"
	case strings.HasPrefix(s, "Member"):
		return "member"
	case strings.HasPrefix(s, "Role"), strings.HasPrefix(s, "Permission"):
		return "permission"
	case strings.HasPrefix(s, "Template"):
		return "template"
	case strings.HasPrefix(s, "DailyEntry"):
		return "daily_log"
	case strings.HasPrefix(s, "Settings"):
		return "settings"
	}
	return ""
}

// Types lists every registered type in declaration order.
func Types() []Type {
	return []Type{
		TaskCreated, SubtaskAdded, TaskProgressUpdated, TaskStatusChanged, TaskSubmittedForQC, TaskCompleted,
		QCCheckCreated, QCPassed, QCFailed, QCRecheckRequested,
		IssueCreated, IssueResolved, IssueReopened, IssueClosed,
		AcceptanceRequested, AcceptanceApproved, AcceptanceRejected, AcceptanceResubmitted,
		MemberInvited, MemberJoined, MemberStatusChanged, MemberRoleChanged,
		RoleCreated, RoleRenamed, PermissionGranted, PermissionRevoked,
		TemplateCreated, TemplateRenamed,
		DailyEntryLogged, DailyEntryAdjusted,
		SettingsUpdated,
	}
}
