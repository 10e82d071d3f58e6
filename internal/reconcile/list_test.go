package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/client/events"
	"github.com/iudanet/khural/internal/client/overrides"
	"github.com/iudanet/khural/internal/client/storage/memory"
	"github.com/iudanet/khural/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, kv *memory.Handle) *overrides.Store {
	t.Helper()
	bus := events.NewBus(testLogger())
	t.Cleanup(bus.Close)
	return overrides.NewStore(kv, bus, testLogger())
}

func waitChange(t *testing.T, l *List) {
	t.Helper()
	select {
	case <-l.Changes():
	case <-time.After(time.Second):
		t.Fatal("list was not recomputed")
	}
}

func TestList_InitialMerge(t *testing.T) {
	store := newTestStore(t, memory.New().Handle())
	ctx := context.Background()

	store.Update(ctx, models.EntityDeputies, func(rec *models.OverrideRecord) {
		rec.MergePatch("1", models.Entity{"name": "B"})
	})

	l := NewList(ctx, store, models.EntityDeputies, []models.Entity{{"id": "1", "name": "A"}}, testLogger())
	defer l.Close()

	assert.Equal(t, []models.Entity{{"id": "1", "name": "B"}}, l.Items())
	rows := l.Rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Patched)
}

func TestList_RecomputesOnLocalWrite(t *testing.T) {
	store := newTestStore(t, memory.New().Handle())
	ctx := context.Background()

	l := NewList(ctx, store, models.EntityCommittees, []models.Entity{{"id": "1"}, {"id": "2"}}, testLogger())
	defer l.Close()
	waitChange(t, l) // начальный пересчет

	store.Update(ctx, models.EntityCommittees, func(rec *models.OverrideRecord) {
		rec.Tombstone("1")
	})

	require.Eventually(t, func() bool {
		return len(l.Items()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []models.Entity{{"id": "2"}}, l.Items())
}

func TestList_IgnoresOtherEntityTypes(t *testing.T) {
	store := newTestStore(t, memory.New().Handle())
	ctx := context.Background()

	l := NewList(ctx, store, models.EntityNews, []models.Entity{{"id": "1"}}, testLogger())
	defer l.Close()
	waitChange(t, l)

	store.Update(ctx, models.EntityPages, func(rec *models.OverrideRecord) {
		rec.Tombstone("1")
	})

	select {
	case <-l.Changes():
		t.Fatal("list recomputed on unrelated entity type")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, l.Items(), 1)
}

func TestList_RecomputesOnExternalWrite(t *testing.T) {
	shared := memory.New()
	tab1 := newTestStore(t, shared.Handle())
	tab2 := newTestStore(t, shared.Handle())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = tab1.Watch(ctx)
	}()

	l := NewList(ctx, tab1, models.EntitySlider, []models.Entity{{"id": "1"}, {"id": "2"}}, testLogger())
	defer l.Close()

	require.Eventually(t, func() bool {
		tab2.Update(ctx, models.EntitySlider, func(rec *models.OverrideRecord) {
			rec.Tombstone("2")
		})
		return len(l.Items()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestList_SetBase(t *testing.T) {
	store := newTestStore(t, memory.New().Handle())
	ctx := context.Background()

	store.Update(ctx, models.EntityCommittees, func(rec *models.OverrideRecord) {
		rec.UpsertCreated(models.Entity{"id": "local-1", "name": "X"})
	})

	l := NewList(ctx, store, models.EntityCommittees, nil, testLogger())
	defer l.Close()
	require.Len(t, l.Items(), 1)
	assert.True(t, l.Rows()[0].Local)

	// Сервер вернул ту же сущность под ее id: дубликата нет
	l.SetBase(ctx, []models.Entity{{"id": "local-1", "name": "X"}})
	assert.Len(t, l.Items(), 1)
}

func TestList_ItemsAreCopies(t *testing.T) {
	store := newTestStore(t, memory.New().Handle())
	ctx := context.Background()

	l := NewList(ctx, store, models.EntityPortals, []models.Entity{{"id": "1", "name": "A"}}, testLogger())
	defer l.Close()

	items := l.Items()
	items[0]["name"] = "mutated"

	assert.Equal(t, "A", l.Items()[0]["name"])
}

func TestList_Close(t *testing.T) {
	store := newTestStore(t, memory.New().Handle())
	ctx := context.Background()

	l := NewList(ctx, store, models.EntityDeputies, nil, testLogger())
	assert.Equal(t, 1, store.Bus().Subscribers())

	l.Close()
	l.Close()

	assert.Equal(t, 0, store.Bus().Subscribers())

	// Канал Changes закрыт (после возможного буферизованного сигнала)
	for range l.Changes() {
	}

	// Пересчет после закрытия не паникует
	l.SetBase(ctx, []models.Entity{{"id": "1"}})
}
