package server

import "time"

const devTokenTTL = 12 * time.Hour

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type MoneyRequest struct {
	Amount   int64  `json:"amount" doc:"Minor units"`
	Currency string `json:"currency" example:"EUR"`
}

type CreateTaskRequest struct {
	ID        string        `json:"id,omitempty"`
	Title     string        `json:"title"`
	Budget    *MoneyRequest `json:"budget,omitempty"`
	StartDate string        `json:"start_date,omitempty" example:"2024-03-01"`
	DueDate   string        `json:"due_date,omitempty" example:"2024-03-31"`
}

type ProgressRequest struct {
	Progress int `json:"progress" minimum:"0" maximum:"100"`
}

type StatusRequest struct {
	Status string  `json:"status" example:"IN_PROGRESS"`
	Reason *string `json:"reason,omitempty"`
}

type QCDecisionRequest struct {
	CheckID string  `json:"check_id,omitempty" doc:"Defaults to the latest check of the task"`
	Reason  string  `json:"reason,omitempty" doc:"Required when failing"`
	Notes   *string `json:"notes,omitempty"`
}

type AcceptanceDecisionRequest struct {
	AcceptanceID string  `json:"acceptance_id,omitempty" doc:"Defaults to the latest acceptance of the task"`
	Notes        *string `json:"notes,omitempty"`
}

type OpenIssueRequest struct {
	Title    string `json:"title"`
	Blocking bool   `json:"blocking,omitempty"`
}

type IssueNoteRequest struct {
	Note *string `json:"note,omitempty" doc:"Resolution or reopen reason"`
}

type InviteMemberRequest struct {
	Email  string `json:"email" format:"email"`
	RoleID string `json:"role_id"`
}

type MemberStatusRequest struct {
	Status string `json:"status" enum:"ACTIVE,SUSPENDED,REMOVED,REVOKED"`
}

type MemberRoleRequest struct {
	RoleID string `json:"role_id"`
}

type CreateRoleRequest struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type GrantRequest struct {
	Permission string `json:"permission"`
}

type CreateTemplateRequest struct {
	Name string `json:"name"`
	Body string `json:"body,omitempty"`
}

type LogWorkRequest struct {
	UserID    string  `json:"user_id,omitempty" doc:"Defaults to the caller"`
	TaskID    string  `json:"task_id"`
	Date      string  `json:"date" example:"2024-03-05"`
	Headcount float64 `json:"headcount" minimum:"0" maximum:"1"`
	Note      string  `json:"note,omitempty"`
}

type AdjustEntryRequest struct {
	Headcount float64 `json:"headcount" minimum:"0" maximum:"1"`
}

type SettingsRequest struct {
	Theme    *string `json:"theme,omitempty" enum:"light,dark,system"`
	Language *string `json:"language,omitempty"`
}
