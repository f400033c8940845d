// Package realtime fans change events out to in-process subscribers.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/metrics"
)

const defaultBufferSize = 64

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("realtime hub closed")

// Subscription is a handle on a feed entry. Events is closed once the
// subscription is released, either by Close or by the hub shutting down.
type Subscription struct {
	Events <-chan changefeed.Event

	hub    *Hub
	filter changefeed.Filter
	key    string
	id     uint64
	events chan changefeed.Event
	once   sync.Once
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.release(s)
	})
}

// Filter returns the filter this subscription was opened with.
func (s *Subscription) Filter() changefeed.Filter {
	return s.filter
}

type feed struct {
	filter changefeed.Filter
	subs   map[uint64]*Subscription
}

// Hub keeps one feed entry per distinct filter. An entry is created for the
// first subscriber and removed when its last subscriber closes.
type Hub struct {
	mu      sync.RWMutex
	feeds   map[string]*feed
	nextID  uint64
	total   int
	closed  bool
	buffer  int
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
}

type HubParams struct {
	Logger     *logger.Logger
	Metrics    *metrics.RealtimeMetrics
	BufferSize int
}

func NewHub(params HubParams) *Hub {
	buffer := params.BufferSize
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &Hub{
		feeds:   make(map[string]*feed),
		buffer:  buffer,
		logg:    params.Logger,
		metrics: params.Metrics,
	}
}

// Subscribe validates the filter and attaches a new handle to its feed entry.
func (h *Hub) Subscribe(filter changefeed.Filter) (*Subscription, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	key := filter.Key()
	entry, ok := h.feeds[key]
	if !ok {
		entry = &feed{filter: filter, subs: make(map[uint64]*Subscription)}
		h.feeds[key] = entry
	}

	h.nextID++
	events := make(chan changefeed.Event, h.buffer)
	sub := &Subscription{
		Events: events,
		hub:    h,
		filter: filter,
		key:    key,
		id:     h.nextID,
		events: events,
	}
	entry.subs[sub.id] = sub
	h.total++
	h.reportLocked()
	return sub, nil
}

func (h *Hub) release(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.feeds[sub.key]
	if !ok {
		return
	}
	if _, ok := entry.subs[sub.id]; !ok {
		return
	}
	delete(entry.subs, sub.id)
	close(sub.events)
	h.total--
	if len(entry.subs) == 0 {
		delete(h.feeds, sub.key)
	}
	h.reportLocked()
}

// Dispatch delivers the event to every matching subscriber without blocking.
// A subscriber whose buffer is full misses the event.
func (h *Hub) Dispatch(event changefeed.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	table := string(event.Table)
	for _, entry := range h.feeds {
		if !entry.filter.Matches(event) {
			continue
		}
		for _, sub := range entry.subs {
			select {
			case sub.events <- event:
				h.metrics.IncDelivered(table)
			default:
				h.metrics.IncDropped(table)
				if h.logg != nil {
					h.logg.Warn(h.logg.WithFields(context.Background(), map[string]any{
						"feed":     sub.key,
						"event_id": event.ID.String(),
					}), "realtime.subscriber_lagging")
				}
			}
		}
	}
}

// Stats returns the number of feed entries and open subscriptions.
func (h *Hub) Stats() (feeds, subscribers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feeds), h.total
}

// Close releases every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, entry := range h.feeds {
		for id, sub := range entry.subs {
			close(sub.events)
			delete(entry.subs, id)
		}
		delete(h.feeds, key)
	}
	h.total = 0
	h.reportLocked()
}

func (h *Hub) reportLocked() {
	h.metrics.SetFeeds(len(h.feeds))
	h.metrics.SetSubscribers(h.total)
}
