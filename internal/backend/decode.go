package backend

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"admincal/internal/model"
)

// errShape is returned when a body is valid JSON but not a record list.
var errShape = errors.New("backend: expected a JSON array of records")

// recordList returns the records of a list response. Both a bare array and
// an envelope with the array under "data" or "items" are accepted.
func recordList(body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("backend: invalid JSON body")
	}
	root := gjson.ParseBytes(body)
	switch {
	case root.IsArray():
		return root.Array(), nil
	case root.Get("data").IsArray():
		return root.Get("data").Array(), nil
	case root.Get("items").IsArray():
		return root.Get("items").Array(), nil
	}
	return nil, errShape
}

// Fields are read leniently: numbers become their decimal text and missing
// or null fields become "".

func decodeProjects(body []byte) ([]model.ProjectRecord, error) {
	items, err := recordList(body)
	if err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	out := make([]model.ProjectRecord, 0, len(items))
	for _, it := range items {
		out = append(out, model.ProjectRecord{
			ID:           it.Get("id").String(),
			Title:        it.Get("title").String(),
			DueDate:      it.Get("dueDate").String(),
			Priority:     it.Get("priority").String(),
			EmployeeName: it.Get("employeeName").String(),
		})
	}
	return out, nil
}

func decodeMeetings(body []byte) ([]model.MeetingRecord, error) {
	items, err := recordList(body)
	if err != nil {
		return nil, fmt.Errorf("decode meetings: %w", err)
	}
	out := make([]model.MeetingRecord, 0, len(items))
	for _, it := range items {
		out = append(out, model.MeetingRecord{
			ID:          it.Get("id").String(),
			Description: it.Get("description").String(),
			Date:        it.Get("date").String(),
			Time:        it.Get("time").String(),
			EmployeeID:  it.Get("employeeId").String(),
		})
	}
	return out, nil
}

func decodeEmployee(body []byte) (model.Employee, error) {
	if !gjson.ValidBytes(body) {
		return model.Employee{}, errors.New("decode employee: invalid JSON body")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return model.Employee{}, errors.New("decode employee: expected a JSON object")
	}
	if d := root.Get("data"); d.IsObject() {
		root = d
	}
	return model.Employee{
		Name:  root.Get("name").String(),
		Email: root.Get("email").String(),
	}, nil
}
