package overrides

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/client/storage"
	"github.com/iudanet/khural/internal/client/storage/memory"
	"github.com/iudanet/khural/internal/models"
)

func TestSnapshots_SaveLoad(t *testing.T) {
	kv := memory.New()
	snaps := NewSnapshots(kv, testLogger())
	snaps.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, ok := snaps.Load(ctx, models.EntityDeputies)
	assert.False(t, ok)

	snaps.Save(ctx, models.EntityDeputies, []models.Entity{{"id": 1, "name": "A"}})

	got, ok := snaps.Load(ctx, models.EntityDeputies)
	require.True(t, ok)
	assert.True(t, got.SavedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "1", got.Items[0].ID())

	// Снимок не путается с записью переопределений
	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"khural_deputies_base_v1"}, keys)
	_, isOverride := models.EntityTypeFromStorageKey(keys[0])
	assert.False(t, isOverride)
}

func TestSnapshots_Corrupted(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, SnapshotKey(models.EntityNews), []byte("nope")))

	snaps := NewSnapshots(kv, testLogger())
	_, ok := snaps.Load(ctx, models.EntityNews)
	assert.False(t, ok)
}

func TestSnapshots_SaveFailureSwallowed(t *testing.T) {
	kv := &storage.KVStorageMock{
		PutFunc: func(ctx context.Context, key string, value []byte) error {
			return errors.New("read-only")
		},
	}
	snaps := NewSnapshots(kv, testLogger())

	snaps.Save(context.Background(), models.EntityPages, nil)
	assert.Len(t, kv.PutCalls(), 1)
}
