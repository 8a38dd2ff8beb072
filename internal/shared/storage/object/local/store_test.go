package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cv-analyzer/internal/shared/storage/object"
)

func TestSaveAndOpen(t *testing.T) {
	store := New(t.TempDir())
	obj, err := store.Save(context.Background(), "owner-1", "cv.txt", strings.NewReader("hello cv"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if obj.Size != int64(len("hello cv")) {
		t.Fatalf("unexpected size %d", obj.Size)
	}
	if !strings.HasPrefix(obj.Key, "tmp/") {
		t.Fatalf("unexpected key %q", obj.Key)
	}

	rc, err := store.Open(context.Background(), obj.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello cv" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../secret"); err == nil {
		t.Fatalf("expected traversal error")
	}
}

func TestOpenMissingKey(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Open(context.Background(), "tmp/none/cv.pdf")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected object.ErrNotFound, got %v", err)
	}
}
