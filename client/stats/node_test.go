package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverallBeforeFinalise(t *testing.T) {
	n := NewNode()
	n.Stats(Read, "cache").Add(time.Millisecond)

	_, err := n.Overall()
	assert.ErrorIs(t, err, ErrNotFinalised)
}

func TestOverallSumsEveryStoreAndCategory(t *testing.T) {
	n := NewNode()
	counts := map[Category]map[string]int{
		Read:   {"a": 10, "b": 3},
		Write:  {"a": 5},
		Remove: {"b": 7},
	}
	want := 0
	for c, byStore := range counts {
		for name, count := range byStore {
			s := n.Stats(c, name)
			for range count {
				s.Add(50 * time.Microsecond)
			}
			want += count
		}
	}
	n.Stats(Write, "b").AddException()

	n.Finalise()
	overall, err := n.Overall()
	require.NoError(t, err)
	assert.Equal(t, int64(want), overall.TxnCount())
	assert.Equal(t, int64(1), overall.Exceptions())
	assert.Equal(t, []string{"a", "b"}, n.Stores())

	n.Each(func(c Category, store string, s *Stats) {
		_, ended := s.End()
		assert.True(t, ended, "%s/%s not finalised", c, store)
	})
}

func TestStatsIsSharedPerStoreAndCategory(t *testing.T) {
	n := NewNode()
	assert.Same(t, n.Stats(Read, "a"), n.Stats(Read, "a"))
	assert.NotSame(t, n.Stats(Read, "a"), n.Stats(Write, "a"))
	assert.Nil(t, n.Get(Remove, "a"))
}

func TestNodeMerge(t *testing.T) {
	a, b := NewNode(), NewNode()
	a.Stats(Read, "x").Add(time.Millisecond)
	b.Stats(Read, "x").Add(time.Millisecond)
	b.Stats(Write, "y").Add(time.Millisecond)

	merged := NewNode()
	merged.Merge(a)
	merged.Merge(b)
	assert.Equal(t, int64(2), merged.Get(Read, "x").TxnCount())
	assert.Equal(t, int64(1), merged.Get(Write, "y").TxnCount())
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "read", Read.String())
	assert.Equal(t, "write", Write.String())
	assert.Equal(t, "remove", Remove.String())
}
