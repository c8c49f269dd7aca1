package model

// SourceType tags which backend an Event came from. The set is closed.
type SourceType string

const (
	SourceProject SourceType = "project"
	SourceMeeting SourceType = "meeting"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	return s == SourceProject || s == SourceMeeting
}

// Key identifies an Event across sources. Backend ids are only unique
// within their own source, so lookups always use the pair.
type Key struct {
	Source SourceType `json:"source"`
	ID     string     `json:"id"`
}

func (k Key) String() string {
	return string(k.Source) + "/" + k.ID
}

// ProjectAttributes are the extra properties of a project event.
type ProjectAttributes struct {
	Priority     string `json:"priority"`
	EmployeeName string `json:"employeeName"`
}

// MeetingAttributes are the extra properties of a meeting event.
type MeetingAttributes struct {
	EmployeeID string `json:"employeeId"`
}

// Event is the calendar-renderable form of a project or a meeting.
//
// Start and End hold canonical timestamp strings exactly as produced by the
// mapper; they are not parsed, and Start <= End is not enforced. Exactly one
// of Project / Meeting is set, matching Source.
type Event struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Start  string     `json:"start"`
	End    string     `json:"end,omitempty"`
	Source SourceType `json:"sourceType"`

	Project *ProjectAttributes `json:"project,omitempty"`
	Meeting *MeetingAttributes `json:"meeting,omitempty"`
}

// Key returns the composite (source, id) key of the event.
func (e Event) Key() Key {
	return Key{Source: e.Source, ID: e.ID}
}

// Attributes returns the string-keyed view of the typed attributes.
func (e Event) Attributes() map[string]string {
	switch e.Source {
	case SourceProject:
		if e.Project == nil {
			return map[string]string{}
		}
		return map[string]string{
			"priority":     e.Project.Priority,
			"employeeName": e.Project.EmployeeName,
		}
	case SourceMeeting:
		if e.Meeting == nil {
			return map[string]string{}
		}
		return map[string]string{
			"employeeId": e.Meeting.EmployeeID,
		}
	default:
		return map[string]string{}
	}
}

// ProjectRecord is a project as returned by the projects backend.
type ProjectRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DueDate      string `json:"dueDate"`
	Priority     string `json:"priority"`
	EmployeeName string `json:"employeeName"`
}

// MeetingRecord is a meeting as returned by the meetings backend.
// Date is yyyy-mm-dd (possibly a full timestamp) and Time is H:mm or HH:mm.
type MeetingRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	EmployeeID  string `json:"employeeId"`
}

// MeetingDraft is what the new-meeting dialog hands back once the user
// confirms it.
type MeetingDraft struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	EmployeeID  string `json:"employeeId"`
}

// Record converts the draft into the record shape the mapper consumes.
func (d MeetingDraft) Record() MeetingRecord {
	return MeetingRecord(d)
}

// Employee is the subset of the employee directory entry shown on
// meeting activation.
type Employee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DueDateUpdate is the payload patched to the projects backend after a
// project event is dragged to a new day.
type DueDateUpdate struct {
	ID      string `json:"id"`
	DueDate string `json:"dueDate"`
}
