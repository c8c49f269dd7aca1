// Package backend talks to the admin backend that owns projects, meetings
// and the employee directory.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"admincal/internal/config"
	appLog "admincal/internal/log"
	"admincal/internal/model"
)

// Client is the HTTP client for the admin backend. Projects, Meetings and
// Employees return narrow adapters over it.
type Client struct {
	baseURL string
	cfg     config.BackendConfig
	http    *http.Client
	fetch   *fetcher
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. When a token is
// configured the bearer transport still wraps it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New builds a Client from backend configuration.
func New(cfg config.BackendConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Token != "" {
		// oauth2.NewClient picks the base transport up from the context.
		base := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
		authed := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
		authed.Timeout = c.http.Timeout
		c.http = authed
	}

	c.fetch = &fetcher{
		client:       c.http,
		cacheDir:     cfg.CacheDir,
		staleOnError: cfg.StaleOnError,
	}
	return c
}

func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// FetchProjects returns every project known to the backend.
func (c *Client) FetchProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	res, err := c.fetch.get(ctx, c.endpoint(c.cfg.ProjectsPath))
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}
	records, err := decodeProjects(res.Body)
	if err != nil {
		return nil, err
	}
	appLog.Info("projects fetched", "count", len(records), "from_cache", res.FromCache)
	return records, nil
}

// FetchMeetings returns every meeting known to the backend.
func (c *Client) FetchMeetings(ctx context.Context) ([]model.MeetingRecord, error) {
	res, err := c.fetch.get(ctx, c.endpoint(c.cfg.MeetingsPath))
	if err != nil {
		return nil, fmt.Errorf("fetch meetings: %w", err)
	}
	records, err := decodeMeetings(res.Body)
	if err != nil {
		return nil, err
	}
	appLog.Info("meetings fetched", "count", len(records), "from_cache", res.FromCache)
	return records, nil
}

// UpdateDueDate sends PUT {id, dueDate} for one project.
func (c *Client) UpdateDueDate(ctx context.Context, upd model.DueDateUpdate) error {
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}

	target := c.endpoint(c.cfg.DueDatePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update due date: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("update due date: %w", newStatusError(http.MethodPut, target, resp))
	}

	appLog.Info("project due date updated", "id", upd.ID, "due_date", upd.DueDate)
	return nil
}

// LookupEmployee fetches one employee by id. Directory entries are not
// cached: a lookup reflects the backend at click time.
func (c *Client) LookupEmployee(ctx context.Context, employeeID string) (model.Employee, error) {
	path := strings.ReplaceAll(c.cfg.EmployeePath, "{id}", url.PathEscape(employeeID))
	target := c.endpoint(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return model.Employee{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Employee{}, fmt.Errorf("lookup employee %s: %w", employeeID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Employee{}, fmt.Errorf("lookup employee %s: %w", employeeID, newStatusError(http.MethodGet, target, resp))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return model.Employee{}, err
	}
	return decodeEmployee(buf.Bytes())
}

// ProjectSource adapts Client to the project source contract.
type ProjectSource struct{ c *Client }

func (c *Client) Projects() ProjectSource { return ProjectSource{c: c} }

func (p ProjectSource) FetchAll(ctx context.Context) ([]model.ProjectRecord, error) {
	return p.c.FetchProjects(ctx)
}

func (p ProjectSource) UpdateDueDate(ctx context.Context, upd model.DueDateUpdate) error {
	return p.c.UpdateDueDate(ctx, upd)
}

// MeetingSource adapts Client to the meeting source contract.
type MeetingSource struct{ c *Client }

func (c *Client) Meetings() MeetingSource { return MeetingSource{c: c} }

func (m MeetingSource) FetchAll(ctx context.Context) ([]model.MeetingRecord, error) {
	return m.c.FetchMeetings(ctx)
}

// EmployeeDirectory adapts Client to the employee directory contract.
type EmployeeDirectory struct{ c *Client }

func (c *Client) Employees() EmployeeDirectory { return EmployeeDirectory{c: c} }

func (e EmployeeDirectory) Lookup(ctx context.Context, employeeID string) (model.Employee, error) {
	return e.c.LookupEmployee(ctx, employeeID)
}
