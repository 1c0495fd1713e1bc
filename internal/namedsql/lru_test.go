package namedsql

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)

	qa, qb, qc := Parse("select :a"), Parse("select :b"), Parse("select :c")
	c.put("a", qa)
	c.put("b", qb)
	assert.Same(t, qa, c.get("a"))

	c.put("c", qc)
	assert.Equal(t, 2, c.size())
	assert.Same(t, qa, c.get("a"))
	assert.Nil(t, c.get("b"))
	assert.Same(t, qc, c.get("c"))

	c.put("a", qb)
	assert.Same(t, qa, c.get("a"), "put does not replace a present query")
}

func TestParseCachedIsBounded(t *testing.T) {
	for i := 0; i < queryCacheCapacity*3; i++ {
		q := ParseCached(fmt.Sprintf("select :p%d", i))
		require.Equal(t, []string{fmt.Sprintf("p%d", i)}, q.Names())
	}
	assert.Equal(t, queryCacheCapacity, queryCache.size())
}
