// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

// FakeGateway is an in-memory implementation of service.Gateway for testing.
// It counts mutating calls and supports per-method error injection.
type FakeGateway struct {
	mu          sync.RWMutex
	name        string
	collections []service.Collection
	items       map[string][]service.Entity // collectionID -> entities
	nextID      int

	// Mutation counters.
	InsertCalls           int
	UpdateCalls           int
	DeleteCalls           int
	CompleteCalls         int
	CreateCollectionCalls int

	// Error injection for testing.
	ListCollectionsErr  error
	CreateCollectionErr error
	ListItemsErr        map[string]error // collectionID -> error
	GetItemErr          error
	InsertItemErr       error
	UpdateItemErr       error
	CompleteItemErr     error
	DeleteItemErr       error
}

// NewFakeGateway creates an empty fake service.
func NewFakeGateway(name string) *FakeGateway {
	return &FakeGateway{
		name:         name,
		items:        make(map[string][]service.Entity),
		ListItemsErr: make(map[string]error),
	}
}

// AddCollection registers a collection.
func (f *FakeGateway) AddCollection(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections = append(f.collections, service.Collection{ID: id, Name: name})
	if f.items[id] == nil {
		f.items[id] = nil
	}
}

// AddVirtualCollection registers a virtual collection such as an inbox.
func (f *FakeGateway) AddVirtualCollection(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections = append(f.collections, service.Collection{ID: id, Name: name, Virtual: true})
	if f.items[id] == nil {
		f.items[id] = nil
	}
}

// RemoveCollection drops a collection and its items, simulating an
// out-of-band deletion on the remote side.
func (f *FakeGateway) RemoveCollection(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.collections {
		if c.ID == id {
			f.collections = append(f.collections[:i], f.collections[i+1:]...)
			break
		}
	}
	delete(f.items, id)
}

// AddItem places an entity in a collection. Status defaults to open.
func (f *FakeGateway) AddItem(collectionID string, e service.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Status == "" {
		e.Status = service.StatusOpen
	}
	e.CollectionID = collectionID
	f.items[collectionID] = append(f.items[collectionID], e)
}

// Item returns an entity by ID for inspection, searching all collections.
func (f *FakeGateway) Item(itemID string) (service.Entity, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, list := range f.items {
		for _, e := range list {
			if e.ID == itemID {
				return e, true
			}
		}
	}
	return service.Entity{}, false
}

// Items returns a copy of a collection's entities.
func (f *FakeGateway) Items(collectionID string) []service.Entity {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Entity, len(f.items[collectionID]))
	copy(out, f.items[collectionID])
	return out
}

// Mutations is the total number of mutating calls made so far.
func (f *FakeGateway) Mutations() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.InsertCalls + f.UpdateCalls + f.DeleteCalls + f.CompleteCalls + f.CreateCollectionCalls
}

// Name implements service.Gateway.
func (f *FakeGateway) Name() string { return f.name }

// ListCollections implements service.Gateway.
func (f *FakeGateway) ListCollections(ctx context.Context) ([]service.Collection, error) {
	if f.ListCollectionsErr != nil {
		return nil, f.ListCollectionsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Collection, len(f.collections))
	copy(out, f.collections)
	return out, nil
}

// CreateCollection implements service.Gateway.
func (f *FakeGateway) CreateCollection(ctx context.Context, name string) (string, error) {
	if f.CreateCollectionErr != nil {
		return "", f.CreateCollectionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCollectionCalls++
	f.nextID++
	id := fmt.Sprintf("coll-%d", f.nextID)
	f.collections = append(f.collections, service.Collection{ID: id, Name: name})
	f.items[id] = nil
	return id, nil
}

// ListItems implements service.Gateway. An empty collectionID lists across
// all collections.
func (f *FakeGateway) ListItems(ctx context.Context, collectionID string, includeCompleted bool) ([]service.Entity, error) {
	if err := f.ListItemsErr[collectionID]; err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var pools [][]service.Entity
	if collectionID == "" {
		for _, list := range f.items {
			pools = append(pools, list)
		}
	} else {
		list, ok := f.items[collectionID]
		if !ok {
			return nil, service.ErrNotFound
		}
		pools = append(pools, list)
	}

	var out []service.Entity
	for _, list := range pools {
		for _, e := range list {
			if !includeCompleted && e.Status == service.StatusCompleted {
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// GetItem implements service.Gateway. An empty collectionID resolves the
// item by ID alone.
func (f *FakeGateway) GetItem(ctx context.Context, collectionID, itemID string) (service.Entity, error) {
	if f.GetItemErr != nil {
		return service.Entity{}, f.GetItemErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if collectionID == "" {
		for _, list := range f.items {
			for _, e := range list {
				if e.ID == itemID {
					return e, nil
				}
			}
		}
		return service.Entity{}, service.ErrNotFound
	}
	for _, e := range f.items[collectionID] {
		if e.ID == itemID {
			return e, nil
		}
	}
	return service.Entity{}, service.ErrNotFound
}

// InsertItem implements service.Gateway.
func (f *FakeGateway) InsertItem(ctx context.Context, collectionID string, e service.Entity) (string, error) {
	if f.InsertItemErr != nil {
		return "", f.InsertItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[collectionID]; !ok {
		return "", service.ErrNotFound
	}
	f.InsertCalls++
	f.nextID++
	e.ID = fmt.Sprintf("item-%d", f.nextID)
	e.CollectionID = collectionID
	if e.Status == "" {
		e.Status = service.StatusOpen
	}
	f.items[collectionID] = append(f.items[collectionID], e)
	return e.ID, nil
}

// UpdateItem implements service.Gateway.
func (f *FakeGateway) UpdateItem(ctx context.Context, collectionID, itemID string, e service.Entity) error {
	if f.UpdateItemErr != nil {
		return f.UpdateItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.items[collectionID] {
		if cur.ID == itemID {
			f.UpdateCalls++
			cur.Title = e.Title
			cur.Notes = e.Notes
			cur.Due = e.Due
			f.items[collectionID][i] = cur
			return nil
		}
	}
	return service.ErrNotFound
}

// CompleteItem implements service.Gateway.
func (f *FakeGateway) CompleteItem(ctx context.Context, collectionID, itemID string) error {
	if f.CompleteItemErr != nil {
		return f.CompleteItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pools := []string{collectionID}
	if collectionID == "" {
		pools = pools[:0]
		for id := range f.items {
			pools = append(pools, id)
		}
	}
	for _, collID := range pools {
		for i, cur := range f.items[collID] {
			if cur.ID == itemID {
				f.CompleteCalls++
				cur.Status = service.StatusCompleted
				if cur.CompletedAt == "" {
					cur.CompletedAt = "2024-01-15T12:00:00Z"
				}
				f.items[collID][i] = cur
				return nil
			}
		}
	}
	return service.ErrNotFound
}

// DeleteItem implements service.Gateway.
func (f *FakeGateway) DeleteItem(ctx context.Context, collectionID, itemID string) error {
	if f.DeleteItemErr != nil {
		return f.DeleteItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.items[collectionID]
	if !ok {
		return service.ErrNotFound
	}
	for i, cur := range list {
		if cur.ID == itemID {
			f.DeleteCalls++
			f.items[collectionID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}
