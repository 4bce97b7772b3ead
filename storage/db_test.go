package storage

import (
	"errors"
	"testing"
)

func TestMemDBPrefixScan(t *testing.T) {
	db := NewMemDB()
	t.Cleanup(db.Close)

	pairs := map[string]string{
		"staking/acct/b": "2",
		"staking/acct/a": "1",
		"staking/acct/c": "3",
		"staking/pool":   "p",
	}
	for k, v := range pairs {
		if err := db.Put([]byte(k), []byte(v)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	keys, err := db.KeysWithPrefix([]byte("staking/acct/"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("scan count: got %d want 3", len(keys))
	}
	for i, want := range []string{"staking/acct/a", "staking/acct/b", "staking/acct/c"} {
		if string(keys[i]) != want {
			t.Fatalf("scan order at %d: got %s want %s", i, keys[i], want)
		}
	}
}

func TestMemDBDelete(t *testing.T) {
	db := NewMemDB()
	t.Cleanup(db.Close)

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	t.Cleanup(db.Close)

	value := []byte("original")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'
	stored, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(stored) != "original" {
		t.Fatalf("stored value aliased caller buffer: %s", stored)
	}
}
