// Package googletasks implements the service.Gateway contract using the
// Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

const (
	// PageSize is the number of items per list page.
	PageSize = 100

	// APITimeout is the timeout for a single API attempt.
	APITimeout = 10 * time.Second

	// retryMaxElapsed bounds transient-error retries per call.
	retryMaxElapsed = 30 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"
)

const (
	statusOpen      = "needsAction"
	statusCompleted = "completed"
)

// Client implements service.Gateway using the Google Tasks API.
type Client struct {
	svc *tasks.Service
}

// New creates a Google Tasks client from OAuth client credentials and a
// previously stored token. The token source auto-refreshes.
func New(ctx context.Context, credentialsPath, tokenPath string) (*Client, error) {
	clientJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth client file: %w", err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}

	tokenSource := oauthConfig.TokenSource(ctx, &token)
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// Name implements service.Gateway.
func (c *Client) Name() string { return "Google Tasks" }

// ListCollections returns all task lists in API order.
func (c *Client) ListCollections(ctx context.Context) ([]service.Collection, error) {
	var result []service.Collection
	err := c.withRetry(ctx, func(ctx context.Context) error {
		result = result[:0]
		return c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
			for _, list := range resp.Items {
				result = append(result, service.Collection{ID: list.Id, Name: list.Title})
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// CreateCollection creates a new task list.
func (c *Client) CreateCollection(ctx context.Context, name string) (string, error) {
	var id string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: name}).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = list.Id
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}
	return id, nil
}

// ListItems returns the tasks of a list across all pages.
func (c *Client) ListItems(ctx context.Context, collectionID string, includeCompleted bool) ([]service.Entity, error) {
	var result []service.Entity
	err := c.withRetry(ctx, func(ctx context.Context) error {
		result = result[:0]
		call := c.svc.Tasks.List(collectionID).
			MaxResults(PageSize).
			ShowCompleted(includeCompleted).
			ShowHidden(includeCompleted).
			ShowDeleted(false)
		return call.Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, fromTask(t, collectionID))
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// GetItem fetches a single task. Google Tasks cannot resolve an item by ID
// alone, so the collection is required here.
func (c *Client) GetItem(ctx context.Context, collectionID, itemID string) (service.Entity, error) {
	if collectionID == "" {
		return service.Entity{}, errors.New("google tasks requires a collection to resolve an item")
	}
	var ent service.Entity
	err := c.withRetry(ctx, func(ctx context.Context) error {
		t, err := c.svc.Tasks.Get(collectionID, itemID).Context(ctx).Do()
		if err != nil {
			return err
		}
		ent = fromTask(t, collectionID)
		return nil
	})
	if err != nil {
		return service.Entity{}, wrapError(err)
	}
	return ent, nil
}

// InsertItem creates a task and returns its ID.
func (c *Client) InsertItem(ctx context.Context, collectionID string, e service.Entity) (string, error) {
	var id string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		created, err := c.svc.Tasks.Insert(collectionID, toTask(e)).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}
	return id, nil
}

// UpdateItem overwrites a task's synced fields.
func (c *Client) UpdateItem(ctx context.Context, collectionID, itemID string, e service.Entity) error {
	body := toTask(e)
	// The update endpoint requires the ID in the body.
	body.Id = itemID
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.svc.Tasks.Update(collectionID, itemID, body).Context(ctx).Do()
		return err
	})
	return wrapError(err)
}

// CompleteItem marks a task as completed.
func (c *Client) CompleteItem(ctx context.Context, collectionID, itemID string) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.svc.Tasks.Patch(collectionID, itemID, &tasks.Task{
			Status: statusCompleted,
		}).Context(ctx).Do()
		return err
	})
	return wrapError(err)
}

// DeleteItem deletes a task.
func (c *Client) DeleteItem(ctx context.Context, collectionID, itemID string) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.svc.Tasks.Delete(collectionID, itemID).Context(ctx).Do()
	})
	return wrapError(err)
}

func fromTask(t *tasks.Task, collectionID string) service.Entity {
	e := service.Entity{
		ID:           t.Id,
		CollectionID: collectionID,
		Title:        t.Title,
		Notes:        t.Notes,
		Due:          t.Due,
		Status:       service.StatusOpen,
	}
	if t.Status == statusCompleted {
		e.Status = service.StatusCompleted
	}
	if t.Completed != nil {
		e.CompletedAt = *t.Completed
	}
	return e
}

func toTask(e service.Entity) *tasks.Task {
	return &tasks.Task{
		Title: e.Title,
		Notes: e.Notes,
		Due:   e.Due,
	}
}

// withRetry runs op with a per-attempt timeout, retrying only transient
// failures (rate limits, server errors).
func (c *Client) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, APITimeout)
		defer cancel()
		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	// A per-attempt timeout is worth another try; backoff stops on its own
	// once the parent context is done.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "connection refused")
}

// wrapError translates API errors into the service-level taxonomy.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return service.ErrNotFound
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("google tasks token expired or revoked: %w", err)
		}
	}

	if strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("google tasks request timed out: %w", err)
	}
	return err
}
