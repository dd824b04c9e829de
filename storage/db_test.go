package storage

import (
	"bytes"
	"errors"
	"testing"
)

func runDatabaseSuite(t *testing.T, db Database) {
	t.Helper()

	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
	if ok, err := db.Has([]byte("missing")); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	if err := db.Put([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("expected v1, got %q", got)
	}

	if err := db.Put([]byte("k"), []byte("v2")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err = db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("expected v2, got %q", got)
	}

	if ok, err := db.Has([]byte("k")); err != nil || !ok {
		t.Fatalf("expected key present, ok=%v err=%v", ok, err)
	}

	if err := db.WriteBatch(map[string][]byte{
		"batch/a": []byte("1"),
		"batch/b": []byte("2"),
		"k":       []byte("v3"),
	}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	for key, want := range map[string]string{"batch/a": "1", "batch/b": "2", "k": "v3"} {
		got, err := db.Get([]byte(key))
		if err != nil {
			t.Fatalf("Get %s after batch: %v", key, err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Fatalf("expected %q at %s, got %q", want, key, got)
		}
	}
}

func TestMemDB(t *testing.T) {
	runDatabaseSuite(t, NewMemDB())
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("original")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value[0] = 'X'
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("original")) {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := db.Get([]byte("k"))
	if !bytes.Equal(again, []byte("original")) {
		t.Fatalf("returned value aliased stored slice: %q", again)
	}
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("NewLevelDB: %v", err)
	}
	defer db.Close()
	runDatabaseSuite(t, db)
}
