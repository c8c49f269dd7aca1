package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admincal/internal/config"
	"admincal/internal/model"
)

func testConfig(baseURL string) config.BackendConfig {
	cfg := config.DefaultConfig().Backend
	cfg.BaseURL = baseURL
	return cfg
}

func TestFetchProjectsDecodesLeniently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/projects", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 7, "title": "Launch", "dueDate": "2024-06-01", "priority": "high", "employeeName": "Ada"},
			{"id": "x-1", "title": "No owner", "dueDate": null}
		]`))
	}))
	defer srv.Close()

	got, err := New(testConfig(srv.URL)).Projects().FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.ProjectRecord{
		{ID: "7", Title: "Launch", DueDate: "2024-06-01", Priority: "high", EmployeeName: "Ada"},
		{ID: "x-1", Title: "No owner"},
	}, got)
}

func TestFetchMeetingsAcceptsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/meetings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":1,"description":"Standup","date":"2024-05-01","time":"9:00","employeeId":42}]}`))
	}))
	defer srv.Close()

	got, err := New(testConfig(srv.URL)).Meetings().FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.MeetingRecord{ID: "1", Description: "Standup", Date: "2024-05-01", Time: "9:00", EmployeeID: "42"}, got[0])
}

func TestFetchRejectsBadBodies(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json": `[{"id":`,
		"object":       `{"id":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := New(testConfig(srv.URL)).FetchProjects(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).FetchMeetings(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "down for maintenance", se.Message)
}

func TestConditionalGetUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`[{"id":1,"title":"Cached"}]`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CacheDir = t.TempDir()
	c := New(cfg)

	first, err := c.fetch.get(context.Background(), c.endpoint(cfg.ProjectsPath))
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.fetch.get(context.Background(), c.endpoint(cfg.ProjectsPath))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.EqualValues(t, 2, calls.Load())
}

func TestStaleOnError(t *testing.T) {
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()

	strict := testConfig(srv.URL)
	strict.CacheDir = cacheDir
	lenient := strict
	lenient.StaleOnError = true

	_, err := New(strict).FetchProjects(context.Background())
	require.NoError(t, err)

	fail.Store(true)

	_, err = New(strict).FetchProjects(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable, "failures stay visible without stale_on_error")

	got, err := New(lenient).FetchProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", got[0].ID)
}

func TestUpdateDueDateSendsBearerToken(t *testing.T) {
	var received model.DueDateUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/admin/project/due-date", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Token = "secret"

	err := New(cfg).Projects().UpdateDueDate(context.Background(), model.DueDateUpdate{ID: "7", DueDate: "2024-06-03"})
	require.NoError(t, err)
	assert.Equal(t, model.DueDateUpdate{ID: "7", DueDate: "2024-06-03"}, received)
}

func TestUpdateDueDateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(testConfig(srv.URL)).UpdateDueDate(context.Background(), model.DueDateUpdate{ID: "404"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupEmployee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/employee/42":
			_, _ = w.Write([]byte(`{"id":42,"name":"Ada","email":"ada@example.com"}`))
		case "/api/employee/43":
			_, _ = w.Write([]byte(`{"data":{"name":"Grace","email":"grace@example.com"}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	dir := New(testConfig(srv.URL)).Employees()

	emp, err := dir.Lookup(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, model.Employee{Name: "Ada", Email: "ada@example.com"}, emp)

	emp, err = dir.Lookup(context.Background(), "43")
	require.NoError(t, err)
	assert.Equal(t, "Grace", emp.Name)

	_, err = dir.Lookup(context.Background(), "44")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://admin.example.com/...(redacted)", redactURL("https://admin.example.com/api/employee/1?token=x"))
	assert.Equal(t, "backend://...(redacted)", redactURL("not a url"))
}
