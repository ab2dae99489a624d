package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// HashBytes returns the hex SHA-256 digest of a file's full byte stream.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashCache is the persisted hash -> source path map that makes batch
// re-runs idempotent. It is the only state with lifetime beyond one run:
// opened at pipeline start, staged writes merged and persisted at the end,
// no concurrent writers.
type HashCache struct {
	db      *badger.DB
	pending map[string]string
}

// OpenHashCache opens (or creates) the cache at path.
func OpenHashCache(path string) (*HashCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logging is noise here
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}
	return &HashCache{db: db, pending: make(map[string]string)}, nil
}

// Seen reports whether hash was ingested by a previous run or staged in this
// one, and the source path it was first seen at.
func (c *HashCache) Seen(hash string) (string, bool, error) {
	if p, ok := c.pending[hash]; ok {
		return p, true, nil
	}
	var path string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Stage records a successfully-processed file for persistence at Flush.
// Files that failed to open or parse are never staged, so they are retried
// on the next run.
func (c *HashCache) Stage(hash, path string) {
	c.pending[hash] = path
}

// Flush merges all staged entries into the store in one transaction.
func (c *HashCache) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		for h, p := range c.pending {
			if err := txn.Set([]byte(h), []byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush hash cache: %w", err)
	}
	c.pending = make(map[string]string)
	return nil
}

// Len returns the number of persisted entries.
func (c *HashCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying store without flushing staged entries.
func (c *HashCache) Close() error {
	return c.db.Close()
}
