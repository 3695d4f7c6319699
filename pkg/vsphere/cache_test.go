package vsphere

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := newCache[[]string](time.Minute)
	c.Set("vms", []string{"db01", "web01"})

	got, ok := c.Get("vms")
	require.True(t, ok)
	assert.Equal(t, []string{"db01", "web01"}, got)
}

func TestCacheExpiry(t *testing.T) {
	c := newCache[string](20 * time.Millisecond)
	c.Set("k", "v")

	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheDisabledAtZeroTTL(t *testing.T) {
	c := newCache[int](0)
	c.Set("k", 42)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheDelete(t *testing.T) {
	c := newCache[string](time.Minute)
	c.Set("k", "v")
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	c.Delete("missing")
}
