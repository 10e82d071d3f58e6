package identity

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocalID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "local prefix", id: "local-1700000000", want: true},
		{name: "tmp prefix", id: "tmp-abc", want: true},
		{name: "numeric server id", id: "42", want: false},
		{name: "opaque server id", id: "c0ffee", want: false},
		{name: "prefix in the middle", id: "x-local-1", want: false},
		{name: "empty", id: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalID(tt.id))
		})
	}
}

func TestGenerator_FixedClockStillUnique(t *testing.T) {
	fixed := time.UnixMilli(1700000000)
	gen := NewGenerator(WithClock(func() time.Time { return fixed }), WithNode(""))

	assert.Equal(t, "local-1700000000", gen.NewLocalID())
	assert.Equal(t, "local-1700000001", gen.NewLocalID())
	assert.Equal(t, "local-1700000002", gen.NewLocalID())
}

func TestGenerator_ClockGoingBackwards(t *testing.T) {
	now := time.UnixMilli(5000)
	gen := NewGenerator(WithClock(func() time.Time { return now }), WithNode(""))

	first := gen.NewLocalID()
	now = time.UnixMilli(1000)
	second := gen.NewLocalID()

	assert.Equal(t, "local-5000", first)
	assert.Equal(t, "local-5001", second)
}

func TestGenerator_NodeSuffix(t *testing.T) {
	gen := NewGenerator()
	require.Len(t, gen.Node(), 8)

	id := gen.NewLocalID()
	assert.True(t, IsLocalID(id))
	assert.True(t, strings.HasSuffix(id, "-"+gen.Node()))

	other := NewGenerator(WithNode("tab2"))
	assert.True(t, strings.HasSuffix(other.NewLocalID(), "-tab2"))
}

func TestGenerator_ConcurrentCallsNeverCollide(t *testing.T) {
	gen := NewGenerator()

	const n = 500
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.NewLocalID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}
