package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/aquaportal/pkg/collection"
)

func TestFilterNeverNil(t *testing.T) {
	out := collection.Filter([]int{1, 3}, func(v int) bool { return v%2 == 0 })
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRejectIsComplement(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	even := func(v int) bool { return v%2 == 0 }

	kept := collection.Filter(in, even)
	dropped := collection.Reject(in, even)

	assert.Equal(t, []int{2, 4}, kept)
	assert.Equal(t, []int{1, 3, 5}, dropped)
	assert.Equal(t, len(in), len(kept)+len(dropped))
}

func TestFirst(t *testing.T) {
	in := []string{"a", "bb", "cc"}
	long := func(s string) bool { return len(s) == 2 }

	v, ok := collection.First(in, long)
	assert.True(t, ok)
	assert.Equal(t, "bb", v)

	_, ok = collection.First(in, func(s string) bool { return s == "zzz" })
	assert.False(t, ok)
}
