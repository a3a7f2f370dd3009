// Package storekv is the durable key-value layer backing the
// Blockchain, Serialnum, CommitRoots, and TempSerials tables (§4.7,
// §6 "Persisted state"): one on-disk LevelDB instance per node,
// addressed through prefix-scoped buckets so the four tables share a
// single write-ahead log and a single atomic-batch commit.
//
// Grounded on the teacher's DataAccessor/Cursor split
// (database/database.go, database2/cursor.go: Get/Put/Has/Delete plus
// a prefix-seeking Cursor, independent of the storage engine behind
// them) and on LevelDBCursor's native-iterator wrapper
// (database/ffldb/ldb/cursor.go), backed here by
// github.com/syndtr/goleveldb the way that file's iterator/util
// imports are used.
package storekv

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbiterator "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
)

// Table prefixes the four persisted tables share one physical
// database under (§6 "Persisted state").
type Table byte

const (
	TableBlockchain Table = iota
	TableSerialnum
	TableCommitRoots
	TableTempSerials
)

func (t Table) prefix() []byte { return []byte{byte(t)} }

func tableKey(t Table, key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, byte(t))
	out = append(out, key...)
	return out
}

// ErrNotFound mirrors leveldb.ErrNotFound without leaking the driver
// type to callers.
var ErrNotFound = errors.New("storekv: key not found")

// DB is a single on-disk store multiplexing the four tables by key
// prefix.
type DB struct {
	ldb *leveldb.DB
}

// Open opens (creating if necessary) a LevelDB store at path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "storekv: opening database")
	}
	return &DB{ldb: ldb}, nil
}

// Close releases the underlying database handle.
func (db *DB) Close() error {
	return db.ldb.Close()
}

// Get reads one value by table and key.
func (db *DB) Get(t Table, key []byte) ([]byte, error) {
	v, err := db.ldb.Get(tableKey(t, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Has reports whether key exists in table t.
func (db *DB) Has(t Table, key []byte) (bool, error) {
	return db.ldb.Has(tableKey(t, key), nil)
}

// Put writes one value by table and key.
func (db *DB) Put(t Table, key, value []byte) error {
	return db.ldb.Put(tableKey(t, key), value, nil)
}

// Delete removes one key from table t.
func (db *DB) Delete(t Table, key []byte) error {
	return db.ldb.Delete(tableKey(t, key), nil)
}

// Cursor scans table t in key order, optionally restricted to keys
// starting with prefix (database2/cursor.go Cursor interface).
func (db *DB) Cursor(t Table, prefix []byte) *Cursor {
	scanPrefix := tableKey(t, prefix)
	it := db.ldb.NewIterator(ldbutil.BytesPrefix(scanPrefix), nil)
	return &Cursor{it: it, table: t, tablePrefixLen: 1}
}

// Cursor is a thin wrapper around the native leveldb iterator,
// stripping the table-prefix byte off returned keys
// (database/ffldb/ldb/cursor.go LevelDBCursor).
type Cursor struct {
	it             ldbiterator.Iterator
	table          Table
	tablePrefixLen int
	closed         bool
}

// Next advances the cursor; returns false once exhausted or closed.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	return c.it.Next()
}

// First moves to the first matching key/value pair.
func (c *Cursor) First() bool {
	if c.closed {
		return false
	}
	return c.it.First()
}

// Seek moves to the first key >= table-prefix + key.
func (c *Cursor) Seek(key []byte) bool {
	if c.closed {
		return false
	}
	return c.it.Seek(tableKey(c.table, key))
}

// Key returns the current key with the table-prefix byte stripped.
func (c *Cursor) Key() []byte {
	k := c.it.Key()
	if len(k) < c.tablePrefixLen {
		return nil
	}
	return k[c.tablePrefixLen:]
}

// Value returns the current value.
func (c *Cursor) Value() []byte { return c.it.Value() }

// Error returns any accumulated iteration error.
func (c *Cursor) Error() error { return c.it.Error() }

// Close releases the cursor's native iterator.
func (c *Cursor) Close() error {
	c.closed = true
	c.it.Release()
	return nil
}

// Batch accumulates writes across tables for one atomic commit
// (§4.7: "writes the block's serial numbers and outputs to the
// persistent store inside a single write transaction").
type Batch struct {
	db    *DB
	batch leveldb.Batch
}

// NewBatch starts an empty atomic batch.
func (db *DB) NewBatch() *Batch {
	return &Batch{db: db}
}

// Put stages a write.
func (b *Batch) Put(t Table, key, value []byte) {
	b.batch.Put(tableKey(t, key), value)
}

// Delete stages a deletion.
func (b *Batch) Delete(t Table, key []byte) {
	b.batch.Delete(tableKey(t, key))
}

// Commit applies every staged write atomically.
func (b *Batch) Commit() error {
	return b.db.ldb.Write(&b.batch, nil)
}
