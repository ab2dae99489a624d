package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCacheStageAndFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes")
	c, err := OpenHashCache(path)
	require.NoError(t, err)
	defer c.Close()

	h := HashBytes([]byte("content"))
	_, seen, err := c.Seen(h)
	require.NoError(t, err)
	assert.False(t, seen)

	c.Stage(h, "a.csv")
	p, seen, err := c.Seen(h)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, "a.csv", p)

	require.NoError(t, c.Flush())
	p, seen, err = c.Seen(h)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, "a.csv", p)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHashCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes")
	h := HashBytes([]byte("content"))

	c, err := OpenHashCache(path)
	require.NoError(t, err)
	c.Stage(h, "a.csv")
	require.NoError(t, c.Flush())
	require.NoError(t, c.Close())

	c2, err := OpenHashCache(path)
	require.NoError(t, err)
	defer c2.Close()

	p, seen, err := c2.Seen(h)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, "a.csv", p)
}
