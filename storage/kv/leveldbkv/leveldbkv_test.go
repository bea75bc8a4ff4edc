package leveldbkv

import (
	"path/filepath"
	"testing"

	"github.com/rodneysullivan/browserid/storage/kv"
)

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	v, err := db.Get([]byte("key"))
	if err != nil || string(v) != "value" {
		t.Error("Expect value got", string(v), err)
	}
	if _, err := db.Get([]byte("missing")); err != db.ErrNotFound() {
		t.Error("Expect", db.ErrNotFound(), "got", err)
	}
}

func TestBatchAndIterator(t *testing.T) {
	db, err := OpenMemDB()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	b := db.NewBatch()
	b.Put([]byte("a/1"), []byte("1"))
	b.Put([]byte("a/2"), []byte("2"))
	b.Put([]byte("b/1"), []byte("3"))
	if err := db.Write(b); err != nil {
		t.Fatal(err)
	}

	it := db.NewIterator(kv.BytesPrefix([]byte("a/")))
	var keys []string
	for ok := it.First(); ok; ok = it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	if err := it.Error(); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a/1" || keys[1] != "a/2" {
		t.Error("Unexpected keys", keys)
	}
}
