package filestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/client/storage"
)

func newTestStorage(t *testing.T, dir string) *Storage {
	t.Helper()
	s, err := New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestStorage_PutGetDelete(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	ctx := context.Background()
	key := "khural_deputies_overrides_v1"

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, s.Put(ctx, key, []byte(`{"deletedIds":["1"]}`)))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"deletedIds":["1"]}`, string(got))

	// Файл лежит под именем ключа
	_, err = os.Stat(filepath.Join(s.Dir(), key+".json"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, key, []byte(`{}`)))
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStorage_InvalidKeys(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../escape", `a\b`, ".hidden"} {
		t.Run(strconv.Quote(key), func(t *testing.T) {
			assert.ErrorIs(t, s.Put(ctx, key, []byte("x")), storage.ErrInvalidKey)
			_, err := s.Get(ctx, key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
			assert.ErrorIs(t, s.Delete(ctx, key), storage.ErrInvalidKey)
		})
	}
}

func TestStorage_Keys_SkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s := newTestStorage(t, dir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "khural_pages_overrides_v1", []byte("{}")))
	require.NoError(t, s.Put(ctx, "khural_news_overrides_v1", []byte("{}")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-leftover.json"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0700))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"khural_news_overrides_v1", "khural_pages_overrides_v1"}, keys)
}

func TestNew_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s := newTestStorage(t, dir)

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStorage_Watch_ReportsOtherProcessWrites(t *testing.T) {
	dir := t.TempDir()
	tab1 := newTestStorage(t, dir)
	tab2 := newTestStorage(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	done := make(chan error, 1)
	go func() {
		done <- tab1.Watch(ctx, func(key string) {
			mu.Lock()
			seen[key]++
			mu.Unlock()
		})
	}()

	seenKey := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[key] > 0
	}

	// Пишем из "другого процесса", пока наблюдатель не начнет получать события
	counter := 0
	require.Eventually(t, func() bool {
		counter++
		_ = tab2.Put(ctx, "khural_deputies_overrides_v1", []byte(strconv.Itoa(counter)))
		return seenKey("khural_deputies_overrides_v1")
	}, 5*time.Second, 50*time.Millisecond)

	// Собственная запись не сообщается, чужая после нее сообщается
	require.NoError(t, tab1.Put(ctx, "khural_news_overrides_v1", []byte("own")))
	require.NoError(t, tab1.Delete(ctx, "khural_news_overrides_v1"))
	require.NoError(t, tab2.Put(ctx, "khural_pages_overrides_v1", []byte("marker")))
	require.Eventually(t, func() bool {
		return seenKey("khural_pages_overrides_v1")
	}, 5*time.Second, 20*time.Millisecond)

	assert.False(t, seenKey("khural_news_overrides_v1"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestStorage_Watch_CoalescesBurstPerKey(t *testing.T) {
	dir := t.TempDir()
	watched := newTestStorage(t, dir)
	watched.debounce = 300 * time.Millisecond
	other := newTestStorage(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	count := func(key string) int {
		mu.Lock()
		defer mu.Unlock()
		return seen[key]
	}
	go func() {
		_ = watched.Watch(ctx, func(key string) {
			mu.Lock()
			seen[key]++
			mu.Unlock()
		})
	}()

	// Ждем, пока наблюдатель начнет получать события
	require.Eventually(t, func() bool {
		_ = other.Put(ctx, "khural_slider_overrides_v1", []byte(time.Now().String()))
		return count("khural_slider_overrides_v1") > 0
	}, 5*time.Second, 100*time.Millisecond)

	// Серия записей одного ключа дает одно уведомление
	key := "khural_portals_overrides_v1"
	for i := range 5 {
		require.NoError(t, other.Put(ctx, key, []byte(strconv.Itoa(i))))
	}
	require.Eventually(t, func() bool {
		return count(key) > 0
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(2 * watched.debounce)
	assert.Equal(t, 1, count(key))

	got, err := watched.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "4", string(got))
}
