package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestDiskPutGetRoundTrip(t *testing.T) {
	blobs, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk returned error: %v", err)
	}
	ctx := context.Background()

	content := "a,b\n1,2\n"
	if err := blobs.Put(ctx, "users/1/data.csv", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	rc, err := blobs.Get(ctx, "users/1/data.csv")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(got) != content {
		t.Errorf("expected %q, got %q", content, string(got))
	}
}

func TestDiskPutSizeMismatch(t *testing.T) {
	blobs, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk returned error: %v", err)
	}

	err = blobs.Put(context.Background(), "users/1/data.csv", strings.NewReader("short"), 100)
	if err == nil {
		t.Fatal("expected error when written bytes do not match declared size")
	}

	// The partial object must not exist at the final key.
	if _, err := blobs.Get(context.Background(), "users/1/data.csv"); err == nil {
		t.Fatal("expected missing blob after failed Put")
	}
}

func TestDiskRejectsEscapingKeys(t *testing.T) {
	blobs, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk returned error: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"../outside", "/etc/passwd", ".", "users/../../outside"} {
		if err := blobs.Put(ctx, key, strings.NewReader("x"), 1); err == nil {
			t.Errorf("expected Put to reject key %q", key)
		}
		if _, err := blobs.Get(ctx, key); err == nil {
			t.Errorf("expected Get to reject key %q", key)
		}
	}
}

func TestDiskDeleteMissingIsNoError(t *testing.T) {
	blobs, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk returned error: %v", err)
	}
	if err := blobs.Delete(context.Background(), "users/1/never-existed.csv"); err != nil {
		t.Fatalf("expected deleting a missing blob to succeed, got %v", err)
	}
}

func TestDiskDeleteRemovesBlob(t *testing.T) {
	blobs, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk returned error: %v", err)
	}
	ctx := context.Background()

	if err := blobs.Put(ctx, "users/1/x.csv", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := blobs.Delete(ctx, "users/1/x.csv"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := blobs.Get(ctx, "users/1/x.csv"); err == nil {
		t.Fatal("expected blob to be gone after Delete")
	}
}
