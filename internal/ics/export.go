// Package ics renders the event collection as an iCalendar feed so the
// admin calendar can be subscribed to from ordinary calendar clients.
package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "admincal/internal/log"
	"admincal/internal/model"
)

const (
	// DefaultProdID is used when Encode is given an empty product id.
	DefaultProdID = "-//admincal//calendar feed//EN"

	uidDomain = "admincal"

	propPriority     = ical.ComponentProperty("X-ADMINCAL-PRIORITY")
	propEmployeeName = ical.ComponentProperty("X-ADMINCAL-EMPLOYEE-NAME")
	propEmployeeID   = ical.ComponentProperty("X-ADMINCAL-EMPLOYEE-ID")
)

// UID returns the iCalendar UID of an event. The source is part of the UID
// because backend ids are only unique per source.
func UID(key model.Key) string {
	return string(key.Source) + "-" + key.ID + "@" + uidDomain
}

// Encode serializes events into one VCALENDAR.
//
//   - A date-only start (yyyy-mm-dd, the usual project due date) becomes an
//     all-day VEVENT.
//   - Any RFC 3339 start becomes a timed VEVENT in UTC. A missing or
//     unparseable end is treated as equal to the start.
//   - Events whose start cannot be parsed are skipped and logged.
func Encode(events []model.Event, prodID string, now time.Time) []byte {
	if prodID == "" {
		prodID = DefaultProdID
	}
	cal := ical.NewCalendarFor(prodID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("admincal")

	skipped := 0
	for _, ev := range events {
		if err := addEvent(cal, ev, now); err != nil {
			skipped++
			appLog.Warn("ics export: event skipped", "event", ev.Key().String(), "start", ev.Start, "err", err.Error())
		}
	}
	if skipped > 0 {
		appLog.Info("ics export completed with skipped events", "exported", len(events)-skipped, "skipped", skipped)
	}

	return []byte(cal.Serialize())
}

func addEvent(cal *ical.Calendar, ev model.Event, now time.Time) error {
	start, allDay, err := parseStart(ev.Start)
	if err != nil {
		return err
	}

	ve := cal.AddEvent(UID(ev.Key()))
	ve.SetDtStampTime(now.UTC())
	ve.SetSummary(ev.Title)
	ve.SetProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(ev.Source)))

	if allDay {
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
	} else {
		end := start
		if ev.End != "" {
			if t, _, perr := parseStart(ev.End); perr == nil && !t.Before(start) {
				end = t
			}
		}
		ve.SetStartAt(start.UTC())
		ve.SetEndAt(end.UTC())
	}

	switch ev.Source {
	case model.SourceProject:
		if ev.Project != nil {
			ve.SetProperty(propPriority, ev.Project.Priority)
			ve.SetProperty(propEmployeeName, ev.Project.EmployeeName)
		}
	case model.SourceMeeting:
		if ev.Meeting != nil {
			ve.SetProperty(propEmployeeID, ev.Meeting.EmployeeID)
		}
	}
	return nil
}

// parseStart accepts a yyyy-mm-dd date (all-day) or an RFC 3339 timestamp.
func parseStart(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false, errors.New("empty start")
	}
	if len(v) == len(time.DateOnly) {
		t, err := time.Parse(time.DateOnly, v)
		return t, true, err
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}
