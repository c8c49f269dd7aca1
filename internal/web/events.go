package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"admincal/internal/eventsync"
	"admincal/internal/ics"
	appLog "admincal/internal/log"
	"admincal/internal/model"
)

// Colors used by the calendar page for each source.
const (
	meetingColor = "#f39c12"
	projectColor = "#3498db"
)

// calendarEvent is the FullCalendar event object shape.
type calendarEvent struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Start           string            `json:"start"`
	End             string            `json:"end,omitempty"`
	BackgroundColor string            `json:"backgroundColor"`
	BorderColor     string            `json:"borderColor"`
	StartEditable   bool              `json:"startEditable"`
	ExtendedProps   map[string]string `json:"extendedProps"`
}

func toCalendarEvent(ev model.Event) calendarEvent {
	props := ev.Attributes()
	props["eventType"] = string(ev.Source)

	color := projectColor
	if ev.Source == model.SourceMeeting {
		color = meetingColor
	}
	return calendarEvent{
		ID:              ev.ID,
		Title:           ev.Title,
		Start:           ev.Start,
		End:             ev.End,
		BackgroundColor: color,
		BorderColor:     color,
		StartEditable:   ev.Source == model.SourceProject,
		ExtendedProps:   props,
	}
}

// cycleDTO is the JSON view of the last refresh cycle.
type cycleDTO struct {
	ID         string            `json:"id,omitempty"`
	Phase      string            `json:"phase"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func toCycleDTO(c eventsync.Cycle) cycleDTO {
	out := cycleDTO{ID: c.ID, Phase: c.Phase.String()}
	if !c.StartedAt.IsZero() {
		t := c.StartedAt
		out.StartedAt = &t
	}
	if !c.FinishedAt.IsZero() {
		t := c.FinishedAt
		out.FinishedAt = &t
	}
	if len(c.Errors) > 0 {
		out.Errors = make(map[string]string, len(c.Errors))
		for src, err := range c.Errors {
			out.Errors[string(src)] = err.Error()
		}
	}
	return out
}

// eventsResponse is the JSON response shape for /api/events and the
// WebSocket messages.
type eventsResponse struct {
	Version   uint64          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Cycle     cycleDTO        `json:"cycle"`
	Events    []calendarEvent `json:"events"`
}

type eventsCacheKey struct {
	version uint64
	cycleID string
	phase   eventsync.Phase
	done    bool
	errs    int
}

// eventsCache holds the encoded /api/events body for one cache key.
type eventsCache struct {
	key  eventsCacheKey
	body []byte
}

// eventsBody returns the encoded events response for the current snapshot.
func (s *Server) eventsBody() ([]byte, error) {
	snap := s.orch.Store().Snapshot()
	cycle := s.orch.LastCycle()
	key := eventsCacheKey{
		version: snap.Version,
		cycleID: cycle.ID,
		phase:   cycle.Phase,
		done:    cycle.Done(),
		errs:    len(cycle.Errors),
	}

	s.eventsMu.RLock()
	ec := s.eventsCache
	s.eventsMu.RUnlock()
	if ec != nil && ec.key == key {
		return ec.body, nil
	}

	resp := eventsResponse{
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
		Cycle:     toCycleDTO(cycle),
		Events:    make([]calendarEvent, 0, len(snap.Events)),
	}
	for _, ev := range snap.Events {
		resp.Events = append(resp.Events, toCalendarEvent(ev))
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	s.eventsMu.Lock()
	s.eventsCache = &eventsCache{key: key, body: body}
	s.eventsMu.Unlock()
	return body, nil
}

// handleEvents returns the current collection in FullCalendar shape.
//
// GET /api/events
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	body, err := s.eventsBody()
	if err != nil {
		appLog.Error("api events: encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode events")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleICS returns the collection as an iCalendar feed.
//
// GET /api/events.ics
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.Encode(s.orch.Events(), "", time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="admincal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleRefresh runs one refresh cycle and returns its outcome. The cycle is
// not tied to the request: a client going away does not abort the fetches.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cycle := s.orch.Refresh(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, toCycleDTO(cycle))
}

// selectionRequest carries a date selection together with the dialog's
// answer: meeting is null when the user dismissed the dialog.
type selectionRequest struct {
	SelectedDate string              `json:"selectedDate"`
	Meeting      *model.MeetingDraft `json:"meeting"`
}

// requestDialog answers PromptNewMeeting with the draft posted by the page.
// The dialog was opened on the selected date, so a draft without a date
// takes that one.
type requestDialog struct {
	draft *model.MeetingDraft
}

func (d requestDialog) PromptNewMeeting(_ context.Context, selectedDate string) (*model.MeetingDraft, error) {
	if d.draft == nil {
		return nil, nil
	}
	out := *d.draft
	if out.Date == "" {
		out.Date = selectedDate
	}
	return &out, nil
}

// handleSelection applies a date-range selection.
//
// POST /api/selection {"selectedDate": "...", "meeting": {...}|null}
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SelectedDate == "" {
		writeError(w, http.StatusBadRequest, "selectedDate is required")
		return
	}

	ev, err := s.orch.OnDateRangeSelected(r.Context(), requestDialog{draft: req.Meeting}, req.SelectedDate)
	switch {
	case errors.Is(err, eventsync.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, "meeting id is required")
		return
	case errors.Is(err, eventsync.ErrDuplicateEvent):
		writeError(w, http.StatusConflict, "a meeting with this id already exists")
		return
	case err != nil:
		appLog.Error("api selection failed", err)
		writeError(w, http.StatusInternalServerError, "failed to schedule meeting")
		return
	}
	if ev == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, toCalendarEvent(*ev))
}

func keyFromRequest(r *http.Request) (model.Key, bool) {
	key := model.Key{
		Source: model.SourceType(r.PathValue("source")),
		ID:     r.PathValue("id"),
	}
	return key, key.Source.Valid() && key.ID != ""
}

type activationResponse struct {
	eventsync.Details
	Message string `json:"message"`
}

// handleActivate returns the details shown when an event is clicked.
//
// GET /api/events/{source}/{id}
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown event source")
		return
	}

	d, err := s.orch.OnEventActivated(r.Context(), key)
	var lerr *eventsync.LookupError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, activationResponse{Details: d, Message: d.Message()})
	case errors.Is(err, eventsync.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.As(err, &lerr):
		writeError(w, http.StatusBadGateway, lerr.UserMessage())
	default:
		appLog.Error("api activate failed", err, "event", key.String())
		writeError(w, http.StatusInternalServerError, "failed to load event details")
	}
}

type rescheduleRequest struct {
	Start string `json:"start"`
}

type rescheduleFailure struct {
	Error string        `json:"error"`
	Event calendarEvent `json:"event"`
}

// handleReschedule applies a drag of a project to a new day.
//
// PATCH /api/events/{source}/{id} {"start": "..."}
func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown event source")
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Start == "" {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}

	ev, err := s.orch.OnEventRescheduled(r.Context(), key, req.Start)
	var uerr *eventsync.UpdateError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toCalendarEvent(ev))
	case errors.Is(err, eventsync.ErrNotReschedulable):
		writeError(w, http.StatusConflict, "only projects can be rescheduled")
	case errors.Is(err, eventsync.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.As(err, &uerr):
		writeJSON(w, http.StatusBadGateway, rescheduleFailure{
			Error: "failed to update due date",
			Event: toCalendarEvent(ev),
		})
	default:
		appLog.Error("api reschedule failed", err, "event", key.String())
		writeError(w, http.StatusInternalServerError, "failed to reschedule event")
	}
}
