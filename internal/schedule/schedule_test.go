package schedule

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admincal/internal/model"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		date string
		time string
		want string
	}{
		{"full timestamp date and short time", "2024-05-01T10:00:00Z", "9:30", "2024-05-01T09:30:00.000+00:00"},
		{"plain date", "2024-05-01", "09:00", "2024-05-01T09:00:00.000+00:00"},
		{"bare hour is padded", "2024-12-31", "5", "2024-12-31T00005:00.000+00:00"},
		{"short date kept whole", "2024-5-1", "10:15", "2024-5-1T10:15:00.000+00:00"},
		{"long time untouched", "2024-05-01", "10:15:30", "2024-05-01T10:15:30:00.000+00:00"},
		{"empty inputs", "", "", "T00000:00.000+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.date, tt.time))
		})
	}
}

func TestCombineShape(t *testing.T) {
	shape := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:00\.000\+00:00$`)
	dates := []string{"2024-01-01", "1999-12-31T23:59:59.999Z", "2030-06-15 08:00"}
	times := []string{"0:00", "9:05", "12:45", "23:59"}
	for _, d := range dates {
		for _, tm := range times {
			got := Combine(d, tm)
			assert.Regexp(t, shape, got)
			assert.Equal(t, d[:10], got[:10])
		}
	}
}

func TestMapMeeting(t *testing.T) {
	ev := MapMeeting(model.MeetingRecord{
		ID:          "1",
		Description: "Standup",
		Date:        "2024-05-01",
		Time:        "09:00",
		EmployeeID:  "42",
	})

	assert.Equal(t, "1", ev.ID)
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, "2024-05-01T09:00:00.000+00:00", ev.Start)
	assert.Equal(t, ev.Start, ev.End)
	assert.Equal(t, model.SourceMeeting, ev.Source)
	assert.Nil(t, ev.Project)
	assert.Equal(t, map[string]string{"employeeId": "42"}, ev.Attributes())
}

func TestMapProject(t *testing.T) {
	ev := MapProject(model.ProjectRecord{
		ID:           "7",
		Title:        "Launch",
		DueDate:      "2024-06-01",
		Priority:     "high",
		EmployeeName: "Ada",
	})

	assert.Equal(t, "7", ev.ID)
	assert.Equal(t, "Launch", ev.Title)
	assert.Equal(t, "2024-06-01", ev.Start)
	assert.Empty(t, ev.End)
	assert.Equal(t, model.SourceProject, ev.Source)
	assert.Nil(t, ev.Meeting)
	assert.Equal(t, map[string]string{"priority": "high", "employeeName": "Ada"}, ev.Attributes())
}

func TestMapMissingFieldsStayEmpty(t *testing.T) {
	ev := MapProject(model.ProjectRecord{ID: "3"})
	assert.Equal(t, map[string]string{"priority": "", "employeeName": ""}, ev.Attributes())

	m := MapMeeting(model.MeetingRecord{ID: "4", Date: "2024-01-02"})
	assert.Equal(t, "2024-01-02T00000:00.000+00:00", m.Start)
}

func TestMapBatchesKeepOrder(t *testing.T) {
	evs := MapProjects([]model.ProjectRecord{{ID: "b"}, {ID: "a"}, {ID: "c"}})
	require.Len(t, evs, 3)
	assert.Equal(t, []string{"b", "a", "c"}, ids(evs))

	assert.Empty(t, MapMeetings(nil))
}

func TestMergeAppendsInOrder(t *testing.T) {
	a := []model.Event{project("1"), meeting("1")}
	b := []model.Event{meeting("2"), project("2"), meeting("3")}

	got := Merge(a, b)

	require.Len(t, got, len(a)+len(b))
	assert.Equal(t, append(append([]model.Event{}, a...), b...), got)
}

func TestMergeDuplicatesRepeatedBatches(t *testing.T) {
	existing := []model.Event{project("1")}
	incoming := []model.Event{meeting("9"), meeting("10")}

	got := Merge(Merge(existing, incoming), incoming)

	assert.Len(t, got, len(existing)+2*len(incoming))
}

func TestMergeDoesNotMutateExisting(t *testing.T) {
	existing := make([]model.Event, 1, 8)
	existing[0] = project("1")
	snapshot := existing[:cap(existing)]

	got := Merge(existing, []model.Event{meeting("2")})
	got[0].Title = "changed"

	assert.Len(t, existing, 1)
	assert.Equal(t, "p1", existing[0].Title)
	assert.Equal(t, model.Event{}, snapshot[1], "backing array beyond len must stay untouched")
}

func TestMergeNilInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))
	assert.Equal(t, []model.Event{meeting("1")}, Merge(nil, []model.Event{meeting("1")}))
}

func TestReplaceSourceIsIdempotent(t *testing.T) {
	existing := []model.Event{project("1"), meeting("1"), project("2")}
	fresh := []model.Event{meeting("5"), meeting("6")}

	once := ReplaceSource(existing, model.SourceMeeting, fresh)
	twice := ReplaceSource(once, model.SourceMeeting, fresh)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"1", "2", "5", "6"}, ids(twice))
	assert.Len(t, existing, 3)
}

func TestFindUsesCompositeKey(t *testing.T) {
	evs := []model.Event{project("7"), meeting("7")}

	assert.Equal(t, 1, Find(evs, model.Key{Source: model.SourceMeeting, ID: "7"}))
	assert.Equal(t, 0, Find(evs, model.Key{Source: model.SourceProject, ID: "7"}))
	assert.Equal(t, -1, Find(evs, model.Key{Source: model.SourceProject, ID: "8"}))
}

func TestReplaceCopies(t *testing.T) {
	evs := []model.Event{project("1"), project("2")}
	changed := project("2")
	changed.Start = "2025-01-01"

	out := Replace(evs, 1, changed)

	assert.Equal(t, "2025-01-01", out[1].Start)
	assert.Empty(t, evs[1].Start)
}

func project(id string) model.Event {
	return MapProject(model.ProjectRecord{ID: id, Title: "p" + id})
}

func meeting(id string) model.Event {
	return MapMeeting(model.MeetingRecord{ID: id, Description: "m" + id, Date: "2024-05-01", Time: "9:00"})
}

func ids(evs []model.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.ID)
	}
	return out
}
