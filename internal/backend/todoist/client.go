// Package todoist implements the service.Gateway contract over the Todoist
// REST v2 API.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

const (
	// DefaultBaseURL is the Todoist REST v2 endpoint.
	DefaultBaseURL = "https://api.todoist.com/rest/v2"

	// APITimeout is the timeout for a single API attempt.
	APITimeout = 10 * time.Second

	// retryMaxElapsed bounds transient-error retries per call.
	retryMaxElapsed = 30 * time.Second
)

// Client implements service.Gateway using the Todoist REST API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a Todoist client authenticated with a bearer token.
func New(ctx context.Context, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		http:    oauth2.NewClient(ctx, src),
		baseURL: DefaultBaseURL,
	}
}

// NewWithBaseURL creates a client against a custom endpoint (for testing).
func NewWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Wire types, REST v2 shapes.

type project struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IsInboxProject bool   `json:"is_inbox_project"`
}

type due struct {
	Date        string `json:"date,omitempty"`
	Datetime    string `json:"datetime,omitempty"`
	String      string `json:"string,omitempty"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
}

type deadline struct {
	Date string `json:"date,omitempty"`
}

type task struct {
	ID          string    `json:"id,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Due         *due      `json:"due,omitempty"`
	Deadline    *deadline `json:"deadline,omitempty"`
	IsCompleted bool      `json:"is_completed,omitempty"`
}

// Name implements service.Gateway.
func (c *Client) Name() string { return "Todoist" }

// ListCollections returns all projects. The inbox project is tagged as a
// virtual collection: it groups tasks but is not user-managed.
func (c *Client) ListCollections(ctx context.Context) ([]service.Collection, error) {
	var projects []project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	result := make([]service.Collection, 0, len(projects))
	for _, p := range projects {
		result = append(result, service.Collection{
			ID:      p.ID,
			Name:    p.Name,
			Virtual: p.IsInboxProject,
		})
	}
	return result, nil
}

// CreateCollection creates a project and returns its ID.
func (c *Client) CreateCollection(ctx context.Context, name string) (string, error) {
	var created project
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/projects", body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// ListItems returns the active tasks of a project; an empty collectionID
// lists all active tasks. The REST API only exposes active tasks, so
// includeCompleted is a no-op here; completed Todoist items never feed the
// forward pass.
func (c *Client) ListItems(ctx context.Context, collectionID string, includeCompleted bool) ([]service.Entity, error) {
	path := "/tasks"
	if collectionID != "" {
		path += "?project_id=" + url.QueryEscape(collectionID)
	}
	var items []task
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	result := make([]service.Entity, 0, len(items))
	for _, t := range items {
		result = append(result, fromTask(t))
	}
	return result, nil
}

// GetItem resolves a task by ID; the collection is not needed.
func (c *Client) GetItem(ctx context.Context, collectionID, itemID string) (service.Entity, error) {
	var t task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(itemID), nil, &t); err != nil {
		return service.Entity{}, err
	}
	return fromTask(t), nil
}

// InsertItem creates a task and returns its ID.
func (c *Client) InsertItem(ctx context.Context, collectionID string, e service.Entity) (string, error) {
	var created task
	if err := c.do(ctx, http.MethodPost, "/tasks", toBody(collectionID, e), &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateItem overwrites a task's synced fields.
func (c *Client) UpdateItem(ctx context.Context, collectionID, itemID string, e service.Entity) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(itemID), toBody("", e), nil)
}

// CompleteItem closes a task.
func (c *Client) CompleteItem(ctx context.Context, collectionID, itemID string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(itemID)+"/close", nil, nil)
}

// DeleteItem deletes a task.
func (c *Client) DeleteItem(ctx context.Context, collectionID, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(itemID), nil, nil)
}

func fromTask(t task) service.Entity {
	e := service.Entity{
		ID:           t.ID,
		CollectionID: t.ProjectID,
		Title:        t.Content,
		Notes:        t.Description,
		Priority:     t.Priority,
		Labels:       t.Labels,
		Status:       service.StatusOpen,
	}
	if t.IsCompleted {
		e.Status = service.StatusCompleted
	}
	if t.Due != nil {
		if t.Due.Datetime != "" {
			e.Due = t.Due.Datetime
		} else {
			e.Due = t.Due.Date
		}
		e.Recurring = t.Due.IsRecurring
		e.RecurrenceText = t.Due.String
	}
	if t.Deadline != nil {
		e.Deadline = t.Deadline.Date
	}
	return e
}

// toBody builds the request payload for insert/update. The engine only
// writes title, notes and due back to Todoist.
func toBody(collectionID string, e service.Entity) map[string]any {
	body := map[string]any{
		"content":     e.Title,
		"description": e.Notes,
	}
	if collectionID != "" {
		body["project_id"] = collectionID
	}
	if e.Due != "" {
		if strings.Contains(e.Due, "T") {
			body["due_datetime"] = e.Due
		} else {
			body["due_date"] = e.Due
		}
	}
	return body
}

// do issues one API call with retry on transient failures. Mutating calls
// carry an idempotency request ID so a retried create cannot duplicate.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	requestID := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return backoff.Retry(func() error {
		err := c.once(ctx, method, path, payload, requestID, out)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, requestID string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return service.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("todoist token invalid or revoked (status %d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode todoist response: %w", err)
	}
	return nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("todoist api error: status %d", e.status)
	}
	return fmt.Sprintf("todoist api error: status %d: %s", e.status, e.body)
}

func isTransient(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status == http.StatusTooManyRequests || apiErr.status >= 500
	}
	if errors.Is(err, service.ErrNotFound) {
		return false
	}
	// A per-attempt timeout is worth another try; backoff stops on its own
	// once the parent context is done.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "connection refused")
}
