package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/repo"
)

// Engine runs the use cases: load through a port, mutate the aggregate, then save
// and append its events in one transaction before publishing them.
type Engine struct {
	Repo        repo.Repo
	Tasks       domain.TaskRepository
	QCChecks    domain.QCCheckRepository
	Issues      domain.IssueRepository
	Acceptances domain.AcceptanceRepository
	Members     domain.MemberRepository
	Roles       domain.RoleRepository
	Templates   domain.TemplateRepository
	DailyLog    domain.DailyEntryRepository
	Settings    domain.SettingsRepository
	Events      domain.EventLog
	Tx          domain.Transactor
	Publisher   domain.Publisher
	Bus         *events.Bus
	Auth        auth.Service
	Factory     events.Factory
	Config      *config.Config
	Log         *zap.Logger
}

type Option func(*Engine)

// WithFactory replaces the id generator and clock used for aggregates and events.
func WithFactory(f events.Factory) Option {
	return func(e *Engine) { e.Factory = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Log = l
		}
	}
}

func New(db *sql.DB, cfg *config.Config, opts ...Option) Engine {
	e := Engine{Factory: events.NewFactory(), Config: cfg, Log: zap.NewNop()}
	for _, opt := range opts {
		opt(&e)
	}
	r := repo.Repo{DB: db, Factory: e.Factory}
	e.Repo = r
	e.Tasks = r.Tasks()
	e.QCChecks = r.QCChecks()
	e.Issues = r.Issues()
	e.Acceptances = r.Acceptances()
	e.Members = r.Members()
	e.Roles = r.Roles()
	e.Templates = r.Templates()
	e.DailyLog = r.DailyEntries()
	e.Settings = r.Settings()
	e.Events = r.Events()
	e.Tx = r
	e.Bus = events.NewBus(e.Log.Named("bus"))
	e.Publisher = e.Bus
	e.Auth = auth.Service{Members: e.Members, Roles: e.Roles}
	e.registerReactions()
	return e
}

// WorkspaceID is the workspace every use case operates on.
func (e Engine) WorkspaceID() (ident.WorkspaceID, error) {
	if e.Config == nil {
		return ident.WorkspaceID{}, &domain.ValidationError{Field: "workspace", Message: "config not loaded"}
	}
	ws, err := ident.Create[ident.Workspace](e.Config.Workspace.ID)
	if err != nil {
		return ws, fmt.Errorf("config.workspace.id: %w", err)
	}
	return ws, nil
}

// authorize resolves the workspace and actor and checks perm when it is not empty.
func (e Engine) authorize(ctx context.Context, actorID, perm string) (ident.WorkspaceID, ident.UserID, error) {
	ws, err := e.WorkspaceID()
	if err != nil {
		return ws, ident.UserID{}, err
	}
	actor, err := ident.Create[ident.User](actorID)
	if err != nil {
		return ws, actor, &domain.ValidationError{Field: "actor_id", Message: "is required"}
	}
	if perm != "" {
		if err := e.Auth.Require(ctx, ws, actor, perm); err != nil {
			return ws, actor, err
		}
	}
	return ws, actor, nil
}

func parseID[K ident.Kind](field, raw string) (ident.ID[K], error) {
	id, err := ident.Create[K](raw)
	if err != nil {
		return id, &domain.ValidationError{Field: field, Message: "is required"}
	}
	return id, nil
}

type scoped interface {
	WorkspaceID() ident.WorkspaceID
}

// inWorkspace hides aggregates of other workspaces behind ErrNotFound.
func inWorkspace[A scoped](a A, err error, ws ident.WorkspaceID, what string) (A, error) {
	if err != nil {
		return a, err
	}
	if !a.WorkspaceID().Equals(ws) {
		var zero A
		return zero, fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return a, nil
}

type raiser interface {
	PullDomainEvents() []events.CausalEvent
}

func pull(aggs ...raiser) []events.CausalEvent {
	var out []events.CausalEvent
	for _, a := range aggs {
		out = append(out, a.PullDomainEvents()...)
	}
	return out
}

type saver[A any] interface {
	Save(ctx context.Context, a A) error
}

func save[A any](r saver[A], a A) func(context.Context) error {
	return func(ctx context.Context) error { return r.Save(ctx, a) }
}

// commit persists the aggregates, appends evts and publishes them in one transaction.
// Workflow reactions run inside it, so a refused follow-up undoes the command too.
func (e Engine) commit(ctx context.Context, evts []events.CausalEvent, saves ...func(context.Context) error) error {
	return e.Tx.InTx(ctx, func(ctx context.Context) error {
		for _, s := range saves {
			if err := s(ctx); err != nil {
				return err
			}
		}
		if len(evts) == 0 {
			return nil
		}
		if err := e.Events.Append(ctx, evts...); err != nil {
			return err
		}
		if err := e.Publisher.Publish(ctx, evts...); err != nil {
			e.Log.Warn("workflow reaction refused, rolling back",
				zap.String("correlation_id", evts[0].CorrelationID.String()),
				zap.Error(err))
			return err
		}
		return nil
	})
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
