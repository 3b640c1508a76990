package engine

import (
	"context"
	"errors"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

// LogWorkRequest logs time for UserID, or for the actor when UserID is empty.
type LogWorkRequest struct {
	UserID    string
	TaskID    string
	Date      string
	Headcount float64
	Note      string
	ActorID   string
}

func (e Engine) LogWork(ctx context.Context, req LogWorkRequest) Result[domain.DailyEntryState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermLogWrite)
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	user := actor
	if req.UserID != "" {
		if user, err = parseID[ident.User]("user_id", req.UserID); err != nil {
			return fail[domain.DailyEntryState](err)
		}
	}
	if !user.Equals(actor) {
		if err := e.Auth.Require(ctx, ws, actor, auth.PermMemberManage); err != nil {
			return fail[domain.DailyEntryState](err)
		}
	}
	headcount, err := domain.NewManDay(req.Headcount)
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	day, err := domain.ParseDate("date", req.Date)
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	// the day's total is read and extended in one transaction
	var logged domain.DailyEntryState
	err = e.Tx.InTx(ctx, func(ctx context.Context) error {
		task, err := e.loadTask(ctx, ws, req.TaskID)
		if err != nil {
			return err
		}
		existing, err := e.DailyLog.FindByUserAndDate(ctx, user, day.Format(policy.DateLayout))
		if err != nil {
			return err
		}
		entry, err := domain.LogWork(e.Factory, domain.LogWorkParams{
			WorkspaceID: ws,
			UserID:      user,
			TaskID:      task.ID(),
			TaskStatus:  task.Status().DisplayName(),
			Date:        req.Date,
			Headcount:   headcount,
			Note:        optionalString(req.Note),
			Existing:    workEntries(existing, ident.DailyEntryID{}),
		}, events.ByActor(actor))
		if err != nil {
			return err
		}
		if err := e.commit(ctx, entry.PullDomainEvents(), save(e.DailyLog, entry)); err != nil {
			return err
		}
		logged = entry.State()
		return nil
	})
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	return ok(logged)
}

type AdjustEntryRequest struct {
	EntryID   string
	Headcount float64
	ActorID   string
}

func (e Engine) AdjustEntry(ctx context.Context, req AdjustEntryRequest) Result[domain.DailyEntryState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermLogWrite)
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	id, err := parseID[ident.DailyEntry]("entry_id", req.EntryID)
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	headcount, err := domain.NewManDay(req.Headcount)
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	var adjusted domain.DailyEntryState
	err = e.Tx.InTx(ctx, func(ctx context.Context) error {
		entry, err := e.DailyLog.FindByID(ctx, id)
		if entry, err = inWorkspace(entry, err, ws, "daily entry "+id.String()); err != nil {
			return err
		}
		state := entry.State()
		if !state.UserID.Equals(actor) {
			if err := e.Auth.Require(ctx, ws, actor, auth.PermMemberManage); err != nil {
				return err
			}
		}
		sameDay, err := e.DailyLog.FindByUserAndDate(ctx, state.UserID, state.Date)
		if err != nil {
			return err
		}
		if err := entry.Adjust(headcount, workEntries(sameDay, id), events.ByActor(actor)); err != nil {
			return err
		}
		if err := e.commit(ctx, entry.PullDomainEvents(), save(e.DailyLog, entry)); err != nil {
			return err
		}
		adjusted = entry.State()
		return nil
	})
	if err != nil {
		return fail[domain.DailyEntryState](err)
	}
	return ok(adjusted)
}

type ListEntriesRequest struct {
	UserID string
	Date   string
}

func (e Engine) ListEntries(ctx context.Context, req ListEntriesRequest) Result[[]domain.DailyEntryState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[[]domain.DailyEntryState](err)
	}
	var list []*domain.DailyEntry
	if req.UserID != "" && req.Date != "" {
		user, err := parseID[ident.User]("user_id", req.UserID)
		if err != nil {
			return fail[[]domain.DailyEntryState](err)
		}
		list, err = e.DailyLog.FindByUserAndDate(ctx, user, req.Date)
		if err != nil {
			return fail[[]domain.DailyEntryState](err)
		}
	} else if list, err = e.DailyLog.FindByWorkspaceID(ctx, ws); err != nil {
		return fail[[]domain.DailyEntryState](err)
	}
	out := []domain.DailyEntryState{}
	for _, d := range list {
		s := d.State()
		if !s.WorkspaceID.Equals(ws) {
			continue
		}
		if req.UserID != "" && s.UserID.String() != req.UserID {
			continue
		}
		if req.Date != "" && s.Date != req.Date {
			continue
		}
		out = append(out, s)
	}
	return ok(out)
}

// workEntries converts entries for the work-hour policy, leaving out skip.
func workEntries(list []*domain.DailyEntry, skip ident.DailyEntryID) []policy.WorkEntry {
	out := make([]policy.WorkEntry, 0, len(list))
	for _, d := range list {
		if !skip.IsZero() && d.ID().Equals(skip) {
			continue
		}
		out = append(out, d.WorkEntry())
	}
	return out
}

// GetSettings returns the stored settings, or the defaults when none were saved.
func (e Engine) GetSettings(ctx context.Context) Result[domain.SettingsState] {
	ws, err := e.WorkspaceID()
	if err != nil {
		return fail[domain.SettingsState](err)
	}
	s, err := e.loadSettings(ctx, ws)
	if err != nil {
		return fail[domain.SettingsState](err)
	}
	return ok(s.State())
}

type UpdateSettingsRequest struct {
	Theme    *string
	Language *string
	ActorID  string
}

func (e Engine) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) Result[domain.SettingsState] {
	ws, actor, err := e.authorize(ctx, req.ActorID, auth.PermSettingsWrite)
	if err != nil {
		return fail[domain.SettingsState](err)
	}
	s, err := e.loadSettings(ctx, ws)
	if err != nil {
		return fail[domain.SettingsState](err)
	}
	if err := s.Update(req.Theme, req.Language, events.ByActor(actor)); err != nil {
		return fail[domain.SettingsState](err)
	}
	evts := s.PullDomainEvents()
	if len(evts) == 0 {
		return ok(s.State())
	}
	if err := e.commit(ctx, evts, save(e.Settings, s)); err != nil {
		return fail[domain.SettingsState](err)
	}
	return ok(s.State())
}

func (e Engine) loadSettings(ctx context.Context, ws ident.WorkspaceID) (*domain.WorkspaceSettings, error) {
	s, err := e.Settings.FindByID(ctx, ws)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultSettings(e.Factory, ws), nil
	}
	return s, err
}
