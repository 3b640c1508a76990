package domain

import (
	"context"
	"errors"

	"taskflow/internal/events"
	"taskflow/internal/ident"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConcurrentModification is returned by Save when the stored version moved on
	// since the aggregate was loaded.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Repository is the persistence contract shared by every aggregate.
type Repository[A any, ID any] interface {
	FindByID(ctx context.Context, id ID) (A, error)
	FindByWorkspaceID(ctx context.Context, workspaceID ident.WorkspaceID) ([]A, error)
	Save(ctx context.Context, aggregate A) error
	Delete(ctx context.Context, id ID) error
}

type TaskRepository interface {
	Repository[*Task, ident.TaskID]
	FindByParent(ctx context.Context, parentID ident.TaskID) ([]*Task, error)
}

type QCCheckRepository interface {
	Repository[*QCCheck, ident.QCCheckID]
	FindByTask(ctx context.Context, taskID ident.TaskID) ([]*QCCheck, error)
}

type IssueRepository interface {
	Repository[*Issue, ident.IssueID]
	FindByTask(ctx context.Context, taskID ident.TaskID) ([]*Issue, error)
}

type AcceptanceRepository interface {
	Repository[*Acceptance, ident.AcceptanceID]
	FindByTask(ctx context.Context, taskID ident.TaskID) ([]*Acceptance, error)
}

type MemberRepository interface {
	Repository[*Member, ident.MemberID]
	FindByUser(ctx context.Context, workspaceID ident.WorkspaceID, userID ident.UserID) (*Member, error)
}

type RoleRepository interface {
	Repository[*Role, ident.RoleID]
}

type TemplateRepository interface {
	Repository[*Template, ident.TemplateID]
}

type DailyEntryRepository interface {
	Repository[*DailyEntry, ident.DailyEntryID]
	FindByUserAndDate(ctx context.Context, userID ident.UserID, date string) ([]*DailyEntry, error)
}

type SettingsRepository interface {
	FindByID(ctx context.Context, workspaceID ident.WorkspaceID) (*WorkspaceSettings, error)
	Save(ctx context.Context, s *WorkspaceSettings) error
}

// EventLog is the append-only store of every raised event.
type EventLog interface {
	Append(ctx context.Context, evts ...events.CausalEvent) error
	ByAggregate(ctx context.Context, aggregateID string) ([]events.Stored, error)
	ByCorrelation(ctx context.Context, correlationID ident.CorrelationID) ([]events.Stored, error)
	After(ctx context.Context, seq int64, limit int) ([]events.Stored, error)
}

// Transactor runs fn so that every save and append inside it commits together.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher hands committed events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evts ...events.CausalEvent) error
}
