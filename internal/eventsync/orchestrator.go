// Package eventsync keeps the calendar's event collection in step with the
// projects and meetings backends and applies the user's calendar
// interactions to it.
package eventsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "admincal/internal/log"
	"admincal/internal/model"
	"admincal/internal/schedule"
)

// ProjectSource is the projects backend.
type ProjectSource interface {
	FetchAll(ctx context.Context) ([]model.ProjectRecord, error)
	UpdateDueDate(ctx context.Context, upd model.DueDateUpdate) error
}

// MeetingSource is the meetings backend.
type MeetingSource interface {
	FetchAll(ctx context.Context) ([]model.MeetingRecord, error)
}

// EmployeeDirectory resolves the employee attached to a meeting.
type EmployeeDirectory interface {
	Lookup(ctx context.Context, employeeID string) (model.Employee, error)
}

// Dialog asks the user for a new meeting on the selected date. A nil draft
// with a nil error means the user dismissed the dialog.
type Dialog interface {
	PromptNewMeeting(ctx context.Context, selectedDate string) (*model.MeetingDraft, error)
}

// Reporter receives failures that are not returned to a caller: failed
// fetches during a refresh and failed due date patches.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// logReporter is the default Reporter.
type logReporter struct{}

func (logReporter) Report(err error) {
	appLog.Error("event sync failure", err)
}

// Orchestrator drives refresh cycles and interactions against one Store.
type Orchestrator struct {
	projects  ProjectSource
	meetings  MeetingSource
	directory EmployeeDirectory
	reporter  Reporter
	store     *Store

	cycleMu   sync.Mutex
	lastCycle Cycle
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithReporter replaces the default log reporter.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithStore makes the orchestrator write into an existing store.
func WithStore(s *Store) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.store = s
		}
	}
}

func New(projects ProjectSource, meetings MeetingSource, directory EmployeeDirectory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		projects:  projects,
		meetings:  meetings,
		directory: directory,
		reporter:  logReporter{},
		store:     NewStore(),
		lastCycle: Cycle{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the collection the orchestrator writes to.
func (o *Orchestrator) Store() *Store { return o.store }

// Events returns the current collection.
func (o *Orchestrator) Events() []model.Event { return o.store.Snapshot().Events }

// LastCycle returns the most recently started refresh cycle.
func (o *Orchestrator) LastCycle() Cycle {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()
	return o.lastCycle.clone()
}

// Refresh fetches both sources concurrently and merges each result into the
// collection as soon as it arrives. A failed source is reported and leaves
// its part of the collection untouched; the other source is unaffected.
// Refresh returns once both fetches have finished.
func (o *Orchestrator) Refresh(ctx context.Context) Cycle {
	c := &cycleState{
		Cycle: Cycle{
			ID:        uuid.NewString(),
			Phase:     PhaseFetchingBoth,
			StartedAt: time.Now().UTC(),
			Errors:    map[model.SourceType]error{},
		},
	}
	o.publishCycle(c)

	appLog.Info("refresh start", "cycle", c.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		records, err := fetchRecovered(ctx, o.projects.FetchAll)
		o.complete(c, model.SourceProject, err, func() []model.Event {
			return schedule.MapProjects(records)
		})
	}()
	go func() {
		defer wg.Done()
		records, err := fetchRecovered(ctx, o.meetings.FetchAll)
		o.complete(c, model.SourceMeeting, err, func() []model.Event {
			return schedule.MapMeetings(records)
		})
	}()
	wg.Wait()

	c.mu.Lock()
	c.FinishedAt = time.Now().UTC()
	c.mu.Unlock()
	o.publishCycle(c)

	final := c.snapshot()
	appLog.Info("refresh done",
		"cycle", final.ID,
		"phase", final.Phase.String(),
		"failed_sources", len(final.Errors),
		"events", len(o.Events()),
		"elapsed", final.FinishedAt.Sub(final.StartedAt).String(),
	)
	return final
}

// fetchRecovered runs fetch and turns a panic in it into an error, so a
// misbehaving source fails its half of the cycle instead of the process.
func fetchRecovered[T any](ctx context.Context, fetch func(context.Context) ([]T, error)) (records []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("panic during fetch: %v", r)
		}
	}()
	return fetch(ctx)
}

// complete applies one finished fetch: a failure is recorded and reported,
// a success is merged into the store and advances the cycle phase.
func (o *Orchestrator) complete(c *cycleState, source model.SourceType, err error, mapped func() []model.Event) {
	if err != nil {
		ferr := &FetchError{Source: source, Err: err}
		c.mu.Lock()
		c.Errors[source] = ferr
		c.mu.Unlock()
		o.publishCycle(c)
		o.reporter.Report(ferr)
		return
	}

	incoming := mapped()
	snap := o.store.apply(func(old []model.Event) ([]model.Event, bool) {
		return schedule.ReplaceSource(old, source, incoming), true
	})

	c.mu.Lock()
	c.Phase = c.Phase.loaded(source)
	c.mu.Unlock()
	o.publishCycle(c)

	appLog.Debug("source merged", "cycle", c.ID, "source", string(source), "incoming", len(incoming), "version", snap.Version)
}

func (o *Orchestrator) publishCycle(c *cycleState) {
	snap := c.snapshot()
	o.cycleMu.Lock()
	// An older cycle finishing late must not hide a newer one.
	if o.lastCycle.ID == "" || o.lastCycle.ID == snap.ID || !snap.StartedAt.Before(o.lastCycle.StartedAt) {
		o.lastCycle = snap
	}
	o.cycleMu.Unlock()
}
