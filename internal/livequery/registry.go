// Package livequery keeps cached lists in sync with the change feed. The
// first consumer of a key loads the snapshot and opens a hub subscription;
// the last one to release tears both down.
package livequery

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/internal/realtime"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

// Subscriber opens change-feed subscriptions.
type Subscriber interface {
	Subscribe(filter changefeed.Filter) (*realtime.Subscription, error)
}

// Query describes a live list. Less is optional and keeps the list ordered
// after inserts and updates. A positive Limit caps the list after sorting.
type Query[T any] struct {
	Key    string
	Filter changefeed.Filter
	Load   func(ctx context.Context) ([]T, error)
	ID     func(T) uuid.UUID
	Less   func(a, b T) bool
	Limit  int
}

func (q Query[T]) validate() error {
	if q.Key == "" {
		return errors.New("live query key is required")
	}
	if q.Load == nil || q.ID == nil {
		return errors.New("live query loader and id func are required")
	}
	return q.Filter.Validate()
}

type entry[T any] struct {
	query Query[T]
	refs  int
	sub   *realtime.Subscription

	ready   chan struct{}
	loadErr error

	mu       sync.Mutex
	items    []T
	watchers map[uint64]chan []T
	nextID   uint64
}

// Registry holds one entry per query key.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	hub     Subscriber
	logg    *logger.Logger
}

func NewRegistry[T any](hub Subscriber, logg *logger.Logger) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*entry[T]),
		hub:     hub,
		logg:    logg,
	}
}

// Handle is one consumer's view of a live list. Updates receives the latest
// list after every change; intermediate states may be coalesced.
type Handle[T any] struct {
	Updates <-chan []T

	reg     *Registry[T]
	entry   *entry[T]
	id      uint64
	updates chan []T
	once    sync.Once
}

// Acquire attaches to the list for q.Key, loading it if this is the first consumer.
func (r *Registry[T]) Acquire(ctx context.Context, q Query[T]) (*Handle[T], error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	e, ok := r.entries[q.Key]
	if ok {
		e.refs++
		r.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			r.releaseRef(e)
			return nil, ctx.Err()
		}
		if e.loadErr != nil {
			return nil, e.loadErr
		}
		return r.attach(e), nil
	}

	e = &entry[T]{
		query:    q,
		refs:     1,
		ready:    make(chan struct{}),
		watchers: make(map[uint64]chan []T),
	}
	r.entries[q.Key] = e
	r.mu.Unlock()

	if err := r.open(ctx, e); err != nil {
		r.mu.Lock()
		if r.entries[q.Key] == e {
			delete(r.entries, q.Key)
		}
		r.mu.Unlock()
		e.loadErr = err
		close(e.ready)
		return nil, err
	}
	close(e.ready)
	return r.attach(e), nil
}

// open subscribes before loading so changes made during the load are
// replayed on top of the snapshot.
func (r *Registry[T]) open(ctx context.Context, e *entry[T]) error {
	sub, err := r.hub.Subscribe(e.query.Filter)
	if err != nil {
		return err
	}
	items, err := e.query.Load(ctx)
	if err != nil {
		sub.Close()
		return err
	}
	e.mu.Lock()
	e.items = items
	e.sortLocked()
	e.trimLocked()
	e.mu.Unlock()

	r.mu.Lock()
	e.sub = sub
	r.mu.Unlock()

	go r.pump(e, sub)
	return nil
}

func (r *Registry[T]) pump(e *entry[T], sub *realtime.Subscription) {
	for event := range sub.Events {
		if err := e.apply(event); err != nil && r.logg != nil {
			r.logg.Warn(r.logg.WithFields(context.Background(), map[string]any{
				"live_query": e.query.Key,
				"event_id":   event.ID.String(),
				"error":      err.Error(),
			}), "livequery.patch_failed")
		}
	}

	// The feed is gone: detach the entry so later consumers start fresh, and
	// end every watcher's stream.
	r.mu.Lock()
	if r.entries[e.query.Key] == e {
		delete(r.entries, e.query.Key)
	}
	r.mu.Unlock()

	e.mu.Lock()
	for id, ch := range e.watchers {
		delete(e.watchers, id)
		close(ch)
	}
	e.mu.Unlock()
}

func (r *Registry[T]) attach(e *entry[T]) *Handle[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	updates := make(chan []T, 1)
	updates <- slices.Clone(e.items)
	e.watchers[e.nextID] = updates
	return &Handle[T]{
		Updates: updates,
		reg:     r,
		entry:   e,
		id:      e.nextID,
		updates: updates,
	}
}

// Snapshot returns a copy of the current list.
func (h *Handle[T]) Snapshot() []T {
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()
	return slices.Clone(h.entry.items)
}

// Release detaches the handle and closes Updates. Safe to call more than once.
func (h *Handle[T]) Release() {
	h.once.Do(func() {
		h.entry.mu.Lock()
		if ch, ok := h.entry.watchers[h.id]; ok {
			delete(h.entry.watchers, h.id)
			close(ch)
		}
		h.entry.mu.Unlock()
		h.reg.releaseRef(h.entry)
	})
}

func (r *Registry[T]) releaseRef(e *entry[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs > 0 {
		return
	}
	if r.entries[e.query.Key] == e {
		delete(r.entries, e.query.Key)
	}
	if e.sub != nil {
		e.sub.Close()
	}
}

// Active reports whether a list is held for key.
func (r *Registry[T]) Active(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Optimistic applies patch to the list for key right away and runs call. If
// call fails the list is restored to its previous state, discarding any
// change events applied in between.
func (r *Registry[T]) Optimistic(ctx context.Context, key string, patch func([]T) []T, call func(context.Context) error) error {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return call(ctx)
	}
	<-e.ready
	if e.loadErr != nil {
		return call(ctx)
	}

	e.mu.Lock()
	previous := slices.Clone(e.items)
	e.items = patch(slices.Clone(e.items))
	e.notifyLocked()
	e.mu.Unlock()

	if err := call(ctx); err != nil {
		e.mu.Lock()
		e.items = previous
		e.notifyLocked()
		e.mu.Unlock()
		return err
	}
	return nil
}

func (e *entry[T]) apply(event changefeed.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch event.Op {
	case enums.ChangeOpDelete:
		e.items = slices.DeleteFunc(e.items, func(item T) bool {
			return e.query.ID(item) == event.RowID
		})
	case enums.ChangeOpInsert, enums.ChangeOpUpdate:
		var row T
		if err := event.DecodeImage(&row); err != nil {
			return err
		}
		id := e.query.ID(row)
		idx := slices.IndexFunc(e.items, func(item T) bool {
			return e.query.ID(item) == id
		})
		if idx >= 0 {
			e.items[idx] = row
		} else {
			e.items = append(e.items, row)
		}
		e.sortLocked()
		e.trimLocked()
	default:
		return nil
	}
	e.notifyLocked()
	return nil
}

func (e *entry[T]) sortLocked() {
	if e.query.Less == nil {
		return
	}
	slices.SortStableFunc(e.items, func(a, b T) int {
		switch {
		case e.query.Less(a, b):
			return -1
		case e.query.Less(b, a):
			return 1
		}
		return 0
	})
}

func (e *entry[T]) trimLocked() {
	if e.query.Limit > 0 && len(e.items) > e.query.Limit {
		clear(e.items[e.query.Limit:])
		e.items = e.items[:e.query.Limit]
	}
}

// notifyLocked replaces any unread list in each watcher's buffer.
func (e *entry[T]) notifyLocked() {
	for _, ch := range e.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- slices.Clone(e.items):
		default:
		}
	}
}
