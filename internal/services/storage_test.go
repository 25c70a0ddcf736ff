package services

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalObjectStoreRoundTrip(t *testing.T) {
	store := NewLocalObjectStore(t.TempDir())

	path, err := store.Save(context.Background(), "company/upload/ventas.csv", strings.NewReader("trans_id,fecha\nT-1,2026-03-02\n"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != "company/upload/ventas.csv" {
		t.Fatalf("Save returned path %q", path)
	}

	rc, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got := string(data); got != "trans_id,fecha\nT-1,2026-03-02\n" {
		t.Fatalf("read back %q", got)
	}
}

func TestLocalObjectStoreOpenMissing(t *testing.T) {
	store := NewLocalObjectStore(t.TempDir())
	if _, err := store.Open(context.Background(), "nope.csv"); err == nil {
		t.Fatal("expected error opening missing object")
	}
}
