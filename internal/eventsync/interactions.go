package eventsync

import (
	"context"
	"fmt"
	"strings"

	appLog "admincal/internal/log"
	"admincal/internal/model"
	"admincal/internal/schedule"
)

// Details is what the calendar shows when an event is activated.
type Details struct {
	Key   model.Key `json:"key"`
	Title string    `json:"title"`
	Start string    `json:"start"`

	// project
	Priority     string `json:"priority,omitempty"`
	EmployeeName string `json:"employeeName,omitempty"`

	// meeting
	Employee *model.Employee `json:"employee,omitempty"`
}

// Message renders the details as the plain-text notice shown to the user.
func (d Details) Message() string {
	var b strings.Builder
	switch d.Key.Source {
	case model.SourceMeeting:
		fmt.Fprintf(&b, "Meeting: %s", d.Title)
		if d.Employee != nil {
			fmt.Fprintf(&b, "\nEmployee: %s\nEmail: %s", d.Employee.Name, d.Employee.Email)
		}
	default:
		fmt.Fprintf(&b, "Event: %s\nPriority: %s\nEmployee Name: %s\nStart Date: %s",
			d.Title, d.Priority, d.EmployeeName, d.Start)
	}
	return b.String()
}

// OnDateRangeSelected opens the new-meeting dialog for selectedDate and, if
// the user confirms, appends the resulting meeting to the collection.
// A dismissed dialog returns (nil, nil). A draft without an id returns
// ErrInvalidDraft and one whose id is already taken by a meeting returns
// ErrDuplicateEvent; the collection is left unchanged in both cases.
func (o *Orchestrator) OnDateRangeSelected(ctx context.Context, dialog Dialog, selectedDate string) (*model.Event, error) {
	draft, err := dialog.PromptNewMeeting(ctx, selectedDate)
	if err != nil {
		return nil, fmt.Errorf("new meeting dialog: %w", err)
	}
	if draft == nil {
		appLog.Debug("new meeting dialog dismissed", "selected_date", selectedDate)
		return nil, nil
	}

	if strings.TrimSpace(draft.ID) == "" {
		return nil, ErrInvalidDraft
	}

	ev := schedule.MapMeeting(draft.Record())
	duplicate := false
	o.store.apply(func(old []model.Event) ([]model.Event, bool) {
		if schedule.Find(old, ev.Key()) >= 0 {
			duplicate = true
			return old, false
		}
		return schedule.Merge(old, []model.Event{ev}), true
	})
	if duplicate {
		return nil, fmt.Errorf("%s: %w", ev.Key(), ErrDuplicateEvent)
	}

	appLog.Info("meeting scheduled", "id", ev.ID, "start", ev.Start, "employee_id", draft.EmployeeID)
	return &ev, nil
}

// OnEventActivated returns the details of the event under key. Meetings
// resolve their employee through the directory; a directory failure is
// returned as *LookupError so the caller can tell the user right away.
func (o *Orchestrator) OnEventActivated(ctx context.Context, key model.Key) (Details, error) {
	events := o.store.Snapshot().Events
	i := schedule.Find(events, key)
	if i < 0 {
		return Details{}, fmt.Errorf("%s: %w", key, ErrEventNotFound)
	}
	ev := events[i]

	d := Details{Key: key, Title: ev.Title, Start: ev.Start}
	switch ev.Source {
	case model.SourceMeeting:
		var employeeID string
		if ev.Meeting != nil {
			employeeID = ev.Meeting.EmployeeID
		}
		emp, err := o.directory.Lookup(ctx, employeeID)
		if err != nil {
			lerr := &LookupError{EmployeeID: employeeID, Err: err}
			appLog.Error("employee lookup failed", lerr, "event", key.String())
			return d, lerr
		}
		d.Employee = &emp
	case model.SourceProject:
		if ev.Project != nil {
			d.Priority = ev.Project.Priority
			d.EmployeeName = ev.Project.EmployeeName
		}
	}
	return d, nil
}

// OnEventRescheduled moves a project to newStart and patches its due date.
//
// The collection is updated before the backend call so the calendar shows
// the drop immediately. If the patch fails the previous start is restored,
// the failure is reported, and the restored event is returned with an
// *UpdateError. Meetings have no due date and return ErrNotReschedulable.
func (o *Orchestrator) OnEventRescheduled(ctx context.Context, key model.Key, newStart string) (model.Event, error) {
	if key.Source != model.SourceProject {
		return model.Event{}, fmt.Errorf("%s: %w", key, ErrNotReschedulable)
	}

	var (
		previous string
		found    bool
		moved    model.Event
	)
	o.store.apply(func(old []model.Event) ([]model.Event, bool) {
		i := schedule.Find(old, key)
		if i < 0 {
			return old, false
		}
		found = true
		previous = old[i].Start
		moved = old[i]
		moved.Start = newStart
		return schedule.Replace(old, i, moved), true
	})
	if !found {
		return model.Event{}, fmt.Errorf("%s: %w", key, ErrEventNotFound)
	}

	err := o.projects.UpdateDueDate(ctx, model.DueDateUpdate{ID: key.ID, DueDate: newStart})
	if err == nil {
		appLog.Info("project rescheduled", "id", key.ID, "from", previous, "to", newStart)
		return moved, nil
	}

	uerr := &UpdateError{Key: key, Previous: previous, Err: err}
	restored := o.rollback(key, newStart, previous)
	o.reporter.Report(uerr)
	return restored, uerr
}

// rollback restores the start of key to previous, unless something else
// (a refresh, another drag) has changed it since.
func (o *Orchestrator) rollback(key model.Key, attempted, previous string) model.Event {
	var out model.Event
	o.store.apply(func(old []model.Event) ([]model.Event, bool) {
		i := schedule.Find(old, key)
		if i < 0 {
			return old, false
		}
		out = old[i]
		if out.Start != attempted {
			return old, false
		}
		out.Start = previous
		return schedule.Replace(old, i, out), true
	})
	return out
}
