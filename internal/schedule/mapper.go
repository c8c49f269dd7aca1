package schedule

import "admincal/internal/model"

// MapProject converts a project record into a project event. The due date is
// used verbatim as the start; projects have no end.
func MapProject(r model.ProjectRecord) model.Event {
	return model.Event{
		ID:     r.ID,
		Title:  r.Title,
		Start:  r.DueDate,
		Source: model.SourceProject,
		Project: &model.ProjectAttributes{
			Priority:     r.Priority,
			EmployeeName: r.EmployeeName,
		},
	}
}

// MapMeeting converts a meeting record into a meeting event whose start and
// end are both the combined date and time.
func MapMeeting(r model.MeetingRecord) model.Event {
	at := Combine(r.Date, r.Time)
	return model.Event{
		ID:     r.ID,
		Title:  r.Description,
		Start:  at,
		End:    at,
		Source: model.SourceMeeting,
		Meeting: &model.MeetingAttributes{
			EmployeeID: r.EmployeeID,
		},
	}
}

func MapProjects(records []model.ProjectRecord) []model.Event {
	out := make([]model.Event, 0, len(records))
	for _, r := range records {
		out = append(out, MapProject(r))
	}
	return out
}

func MapMeetings(records []model.MeetingRecord) []model.Event {
	out := make([]model.Event, 0, len(records))
	for _, r := range records {
		out = append(out, MapMeeting(r))
	}
	return out
}
