package storekv

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "storekv"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.Put(TableBlockchain, []byte("k1"), []byte("v1")); err != nil {
		t.Fatal(err)
	}

	v, err := db.Get(TableBlockchain, []byte("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "v1" {
		t.Fatalf("expected v1, got %q", v)
	}
}

func TestGetMissingKeyReturnsErrNotFound(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Get(TableSerialnum, []byte("missing")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTablesAreIndependentNamespaces(t *testing.T) {
	db := openTestDB(t)

	if err := db.Put(TableBlockchain, []byte("k"), []byte("chain")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put(TableSerialnum, []byte("k"), []byte("serial")); err != nil {
		t.Fatal(err)
	}

	v1, _ := db.Get(TableBlockchain, []byte("k"))
	v2, _ := db.Get(TableSerialnum, []byte("k"))
	if string(v1) != "chain" || string(v2) != "serial" {
		t.Fatalf("expected table-scoped keys to be independent, got %q / %q", v1, v2)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	db := openTestDB(t)
	db.Put(TableCommitRoots, []byte("k"), []byte("v"))

	if err := db.Delete(TableCommitRoots, []byte("k")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.Has(TableCommitRoots, []byte("k")); ok {
		t.Fatal("expected key to be gone after Delete")
	}
}

func TestCursorScansTablePrefixOnly(t *testing.T) {
	db := openTestDB(t)
	db.Put(TableTempSerials, []byte("a"), []byte("1"))
	db.Put(TableTempSerials, []byte("b"), []byte("2"))
	db.Put(TableBlockchain, []byte("a"), []byte("other-table"))

	c := db.Cursor(TableTempSerials, nil)
	defer c.Close()

	var keys []string
	for ok := c.First(); ok; ok = c.Next() {
		keys = append(keys, string(c.Key()))
	}
	if err := c.Error(); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected exactly [a b] from TableTempSerials, got %v", keys)
	}
}

func TestBatchCommitsAtomically(t *testing.T) {
	db := openTestDB(t)

	batch := db.NewBatch()
	batch.Put(TableBlockchain, []byte("x"), []byte("1"))
	batch.Put(TableSerialnum, []byte("y"), []byte("2"))
	if err := batch.Commit(); err != nil {
		t.Fatal(err)
	}

	v1, err := db.Get(TableBlockchain, []byte("x"))
	if err != nil || string(v1) != "1" {
		t.Fatalf("expected x=1, got %q err=%v", v1, err)
	}
	v2, err := db.Get(TableSerialnum, []byte("y"))
	if err != nil || string(v2) != "2" {
		t.Fatalf("expected y=2, got %q err=%v", v2, err)
	}
}
