package livequery

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/internal/realtime"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

type row struct {
	ID       uuid.UUID `json:"id"`
	CookerID uuid.UUID `json:"cooker_id"`
	Rank     int       `json:"rank"`
}

type fixture struct {
	hub      *realtime.Hub
	registry *Registry[row]
	cookerID uuid.UUID
	loads    atomic.Int32
	seed     []row
	loadErr  error
}

func newFixture(seed ...row) *fixture {
	logg := logger.New(logger.Options{ServiceName: "livequery-test"})
	hub := realtime.NewHub(realtime.HubParams{Logger: logg})
	return &fixture{
		hub:      hub,
		registry: NewRegistry[row](hub, logg),
		cookerID: uuid.New(),
		seed:     seed,
	}
}

func (f *fixture) query() Query[row] {
	return Query[row]{
		Key:    "orders:cooker:" + f.cookerID.String(),
		Filter: changefeed.Filter{Table: enums.TableOrders, Column: "cooker_id", Value: f.cookerID.String()},
		Load: func(context.Context) ([]row, error) {
			f.loads.Add(1)
			if f.loadErr != nil {
				return nil, f.loadErr
			}
			return append([]row(nil), f.seed...), nil
		},
		ID:   func(r row) uuid.UUID { return r.ID },
		Less: func(a, b row) bool { return a.Rank < b.Rank },
	}
}

func (f *fixture) dispatch(t *testing.T, op enums.ChangeOp, r row) {
	t.Helper()
	image, err := json.Marshal(r)
	require.NoError(t, err)
	event := changefeed.Event{ID: uuid.New(), Table: enums.TableOrders, Op: op, RowID: r.ID, OccurredAt: time.Now()}
	if op == enums.ChangeOpDelete {
		event.Old = image
	} else {
		event.New = image
	}
	f.hub.Dispatch(event)
}

func waitFor(t *testing.T, h *Handle[row], cond func([]row) bool) []row {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case items, ok := <-h.Updates:
			require.True(t, ok, "updates closed")
			if cond(items) {
				return items
			}
		case <-timeout:
			t.Fatalf("condition not met, last snapshot %v", h.Snapshot())
			return nil
		}
	}
}

func ranks(items []row) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.Rank)
	}
	return out
}

func TestAcquireSharesEntryAndLoadsOnce(t *testing.T) {
	f := newFixture(row{ID: uuid.New(), Rank: 1})
	f.seed[0].CookerID = f.cookerID

	first, err := f.registry.Acquire(context.Background(), f.query())
	require.NoError(t, err)
	second, err := f.registry.Acquire(context.Background(), f.query())
	require.NoError(t, err)

	require.EqualValues(t, 1, f.loads.Load())
	require.Len(t, first.Snapshot(), 1)
	require.Len(t, <-second.Updates, 1)

	feeds, subs := f.hub.Stats()
	require.Equal(t, 1, feeds)
	require.Equal(t, 1, subs)

	first.Release()
	require.True(t, f.registry.Active(f.query().Key))

	second.Release()
	second.Release()
	require.False(t, f.registry.Active(f.query().Key))
	feeds, subs = f.hub.Stats()
	require.Zero(t, feeds)
	require.Zero(t, subs)

	_, open := <-second.Updates
	require.False(t, open)
}

func TestChangeEventsPatchList(t *testing.T) {
	existing := row{ID: uuid.New(), Rank: 2}
	f := newFixture(existing)
	f.seed[0].CookerID = f.cookerID
	existing.CookerID = f.cookerID

	h, err := f.registry.Acquire(context.Background(), f.query())
	require.NoError(t, err)
	defer h.Release()
	<-h.Updates

	inserted := row{ID: uuid.New(), CookerID: f.cookerID, Rank: 1}
	f.dispatch(t, enums.ChangeOpInsert, inserted)
	items := waitFor(t, h, func(items []row) bool { return len(items) == 2 })
	require.Equal(t, []int{1, 2}, ranks(items))

	existing.Rank = 0
	f.dispatch(t, enums.ChangeOpUpdate, existing)
	items = waitFor(t, h, func(items []row) bool { return len(items) == 2 && items[0].ID == existing.ID })
	require.Equal(t, []int{0, 1}, ranks(items))

	f.dispatch(t, enums.ChangeOpDelete, inserted)
	items = waitFor(t, h, func(items []row) bool { return len(items) == 1 })
	require.Equal(t, existing.ID, items[0].ID)

	f.dispatch(t, enums.ChangeOpInsert, row{ID: uuid.New(), CookerID: uuid.New(), Rank: 9})
	require.Len(t, h.Snapshot(), 1)
}

func TestInsertsKeepListWithinLimit(t *testing.T) {
	f := newFixture(row{ID: uuid.New(), Rank: 1}, row{ID: uuid.New(), Rank: 2})
	for i := range f.seed {
		f.seed[i].CookerID = f.cookerID
	}
	q := f.query()
	q.Limit = 2

	h, err := f.registry.Acquire(context.Background(), q)
	require.NoError(t, err)
	defer h.Release()
	<-h.Updates

	f.dispatch(t, enums.ChangeOpInsert, row{ID: uuid.New(), CookerID: f.cookerID, Rank: 0})
	items := waitFor(t, h, func(items []row) bool { return len(items) > 0 && items[0].Rank == 0 })
	require.Equal(t, []int{0, 1}, ranks(items))

	f.dispatch(t, enums.ChangeOpInsert, row{ID: uuid.New(), CookerID: f.cookerID, Rank: 5})
	f.dispatch(t, enums.ChangeOpInsert, row{ID: uuid.New(), CookerID: f.cookerID, Rank: -1})
	items = waitFor(t, h, func(items []row) bool { return len(items) > 0 && items[0].Rank == -1 })
	require.Equal(t, []int{-1, 0}, ranks(items))
	require.Len(t, h.Snapshot(), 2)
}

func TestOptimisticRollsBackOnFailure(t *testing.T) {
	f := newFixture()
	h, err := f.registry.Acquire(context.Background(), f.query())
	require.NoError(t, err)
	defer h.Release()
	<-h.Updates

	added := row{ID: uuid.New(), CookerID: f.cookerID, Rank: 5}
	patch := func(items []row) []row { return append(items, added) }

	callErr := errors.New("rejected")
	err = f.registry.Optimistic(context.Background(), f.query().Key, patch, func(context.Context) error {
		require.Len(t, h.Snapshot(), 1)
		return callErr
	})
	require.ErrorIs(t, err, callErr)
	require.Empty(t, h.Snapshot())

	err = f.registry.Optimistic(context.Background(), f.query().Key, patch, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.Len(t, h.Snapshot(), 1)
}

func TestOptimisticWithoutEntryRunsCall(t *testing.T) {
	f := newFixture()
	called := false
	err := f.registry.Optimistic(context.Background(), "missing", func(items []row) []row {
		t.Fatal("patch must not run without a live list")
		return items
	}, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestAcquireLoadFailureReleasesSubscription(t *testing.T) {
	f := newFixture()
	f.loadErr = errors.New("db down")

	_, err := f.registry.Acquire(context.Background(), f.query())
	require.ErrorIs(t, err, f.loadErr)
	require.False(t, f.registry.Active(f.query().Key))

	feeds, subs := f.hub.Stats()
	require.Zero(t, feeds)
	require.Zero(t, subs)
}

func TestAcquireValidatesQuery(t *testing.T) {
	f := newFixture()

	q := f.query()
	q.Key = ""
	_, err := f.registry.Acquire(context.Background(), q)
	require.Error(t, err)

	q = f.query()
	q.Filter.Table = "users"
	_, err = f.registry.Acquire(context.Background(), q)
	require.Error(t, err)
}

func TestHubCloseEndsWatchers(t *testing.T) {
	f := newFixture(row{ID: uuid.New(), CookerID: uuid.New(), Rank: 1})

	h, err := f.registry.Acquire(context.Background(), f.query())
	require.NoError(t, err)
	defer h.Release()

	f.hub.Close()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-h.Updates:
			if !ok {
				require.False(t, f.registry.Active(f.query().Key))
				return
			}
		case <-timeout:
			t.Fatal("updates were not closed after hub shutdown")
		}
	}
}
