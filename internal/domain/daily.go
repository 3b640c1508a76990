package domain

import (
	"time"

	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

type DailyEntryState struct {
	ID          ident.DailyEntryID `json:"id"`
	WorkspaceID ident.WorkspaceID  `json:"workspace_id"`
	UserID      ident.UserID       `json:"user_id"`
	TaskID      ident.TaskID       `json:"task_id"`
	Date        string             `json:"date"`
	Headcount   float64            `json:"headcount"`
	Note        *string            `json:"note,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// DailyEntry is one user's share of a day spent on one task.
type DailyEntry struct {
	Root[ident.DailyEntryID]
	state DailyEntryState
}

type LogWorkParams struct {
	WorkspaceID ident.WorkspaceID
	UserID      ident.UserID
	TaskID      ident.TaskID
	// TaskStatus is the display status of the task, see TaskStatus.DisplayName.
	TaskStatus string
	Date       string
	Headcount  ManDay
	Note       *string
	// Existing holds the user's other entries; only those on Date count.
	Existing []policy.WorkEntry
}

// LogWork records time against a task. The task must not be completed, the date must
// be inside the editable window and the user's day must not exceed one man-day.
func LogWork(f events.Factory, p LogWorkParams, opts ...events.Option) (*DailyEntry, error) {
	if p.WorkspaceID.IsZero() || p.UserID.IsZero() || p.TaskID.IsZero() {
		return nil, invalid("daily_entry", "workspace, user and task are required")
	}
	day, err := ParseDate("date", p.Date)
	if err != nil {
		return nil, err
	}
	date := day.Format(policy.DateLayout)
	if err := (policy.TaskCompletion{}).AssertIsValid(p.TaskStatus); err != nil {
		return nil, err
	}
	if err := policy.DefaultHistoricalEntry.AssertIsValid(day, f.Clock()); err != nil {
		return nil, err
	}
	if err := (policy.WorkHour{}).AssertIsValid(p.Headcount.Float(), p.UserID, date, p.Existing); err != nil {
		return nil, err
	}
	id := ident.Generate[ident.DailyEntry](f.IDs)
	d := &DailyEntry{Root: newRoot(id, f)}
	evts, err := d.build(opts, events.DailyEntryLoggedPayload{EntryID: id, UserID: p.UserID, TaskID: p.TaskID, Date: date, Headcount: p.Headcount.Float(), Note: p.Note})
	if err != nil {
		return nil, err
	}
	now := d.now()
	d.state = DailyEntryState{
		ID:          id,
		WorkspaceID: p.WorkspaceID,
		UserID:      p.UserID,
		TaskID:      p.TaskID,
		Date:        date,
		Headcount:   p.Headcount.Float(),
		Note:        p.Note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.record(evts)
	return d, nil
}

func RestoreDailyEntry(f events.Factory, s DailyEntryState, version int) *DailyEntry {
	return &DailyEntry{Root: restoreRoot(s.ID, f, version, nil), state: s}
}

func (d *DailyEntry) State() DailyEntryState         { return d.state }
func (d *DailyEntry) WorkspaceID() ident.WorkspaceID { return d.state.WorkspaceID }

func (d *DailyEntry) Equals(other *DailyEntry) bool {
	return other != nil && d.SameIdentity(other.Entity)
}

func (d *DailyEntry) WorkEntry() policy.WorkEntry {
	return policy.WorkEntry{UserID: d.state.UserID, Date: d.state.Date, Headcount: d.state.Headcount}
}

// Adjust changes the headcount. others are the user's entries excluding this one.
func (d *DailyEntry) Adjust(headcount ManDay, others []policy.WorkEntry, opts ...events.Option) error {
	day, err := ParseDate("date", d.state.Date)
	if err != nil {
		return err
	}
	if err := policy.DefaultHistoricalEntry.AssertIsValid(day, d.factory.Clock()); err != nil {
		return err
	}
	if err := (policy.WorkHour{}).AssertIsValid(headcount.Float(), d.state.UserID, d.state.Date, others); err != nil {
		return err
	}
	if headcount.Float() == d.state.Headcount {
		return nil
	}
	evts, err := d.build(opts, events.DailyEntryAdjustedPayload{EntryID: d.ID(), From: d.state.Headcount, To: headcount.Float()})
	if err != nil {
		return err
	}
	d.state.Headcount = headcount.Float()
	d.state.UpdatedAt = d.now()
	d.record(evts)
	return nil
}
