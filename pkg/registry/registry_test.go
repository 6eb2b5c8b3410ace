package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRegistry_RegisterAndGet(t *testing.T) {
	r := NewBaseRegistry[string]()

	require.NoError(t, r.Register("a", "alpha"))
	require.NoError(t, r.Register("b", "beta"))

	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "alpha", got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestBaseRegistry_RejectsEmptyName(t *testing.T) {
	r := NewBaseRegistry[int]()
	assert.Error(t, r.Register("", 1))
}

func TestBaseRegistry_RejectsDuplicate(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("x", 1))
	assert.Error(t, r.Register("x", 2))
	assert.Equal(t, 1, r.Count())
}

func TestBaseRegistry_NamesAreSorted(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("charlie", 3))
	require.NoError(t, r.Register("alpha", 1))
	require.NoError(t, r.Register("bravo", 2))

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, r.Names())
	assert.Equal(t, []int{1, 2, 3}, r.List())
}
