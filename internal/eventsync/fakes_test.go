package eventsync

import (
	"context"
	"errors"
	"sync"

	"admincal/internal/model"
)

// fakeProjects is an in-memory ProjectSource. gate, when set, blocks
// FetchAll until it is closed.
type fakeProjects struct {
	mu      sync.Mutex
	records []model.ProjectRecord
	err     error
	gate    chan struct{}
	updErr  error
	updates []model.DueDateUpdate
}

func (f *fakeProjects) FetchAll(ctx context.Context) ([]model.ProjectRecord, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.ProjectRecord(nil), f.records...), nil
}

func (f *fakeProjects) UpdateDueDate(_ context.Context, upd model.DueDateUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	return f.updErr
}

// fakeMeetings is an in-memory MeetingSource. panicWith, when non-nil,
// makes FetchAll panic with that value.
type fakeMeetings struct {
	records   []model.MeetingRecord
	err       error
	gate      chan struct{}
	panicWith any
}

func (f *fakeMeetings) FetchAll(ctx context.Context) ([]model.MeetingRecord, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.MeetingRecord(nil), f.records...), nil
}

type fakeDirectory struct {
	employees map[string]model.Employee
	err       error
	lookups   []string
}

func (f *fakeDirectory) Lookup(_ context.Context, id string) (model.Employee, error) {
	f.lookups = append(f.lookups, id)
	if f.err != nil {
		return model.Employee{}, f.err
	}
	emp, ok := f.employees[id]
	if !ok {
		return model.Employee{}, errors.New("no such employee")
	}
	return emp, nil
}

type fakeDialog struct {
	draft    *model.MeetingDraft
	err      error
	prompted []string
}

func (f *fakeDialog) PromptNewMeeting(_ context.Context, selectedDate string) (*model.MeetingDraft, error) {
	f.prompted = append(f.prompted, selectedDate)
	return f.draft, f.err
}

// recordingReporter collects reported errors.
type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
