package service

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entity or collection no longer exists on
// the remote side. Callers branch on it with errors.Is; it is a recoverable
// condition, not a failure.
var ErrNotFound = errors.New("not found")

// Gateway is the capability contract a remote task service must supply.
// The reconciler never imports a backend SDK directly.
type Gateway interface {
	// Name identifies the service in logs and provenance notes.
	Name() string

	// ListCollections returns all collections in API order.
	ListCollections(ctx context.Context) ([]Collection, error)

	// CreateCollection creates a collection and returns its ID.
	CreateCollection(ctx context.Context, name string) (string, error)

	// ListItems returns the items of a collection. When includeCompleted
	// is false only open items are returned.
	ListItems(ctx context.Context, collectionID string, includeCompleted bool) ([]Entity, error)

	// GetItem fetches a single item. An empty collectionID asks the
	// backend to resolve the item by ID alone; backends that cannot do
	// that return an error. Returns ErrNotFound if the item is gone.
	GetItem(ctx context.Context, collectionID, itemID string) (Entity, error)

	// InsertItem creates an item and returns its ID.
	InsertItem(ctx context.Context, collectionID string, e Entity) (string, error)

	// UpdateItem overwrites an item's fields. Returns ErrNotFound if the
	// item is gone.
	UpdateItem(ctx context.Context, collectionID, itemID string, e Entity) error

	// CompleteItem marks an item completed. Returns ErrNotFound if the
	// item is gone.
	CompleteItem(ctx context.Context, collectionID, itemID string) error

	// DeleteItem removes an item. Returns ErrNotFound if already gone.
	DeleteItem(ctx context.Context, collectionID, itemID string) error
}
