package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestFilesystemStorageReadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "frame"), pngMagic, 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewFilesystemStorage(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStorage: %v", err)
	}
	data, err := store.ReadFile(context.Background(), "frame")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, pngMagic) {
		t.Fatal("data mismatch")
	}
	if _, err := store.ReadFile(context.Background(), "missing"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestFilesystemStorageRejectsTraversal(t *testing.T) {
	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetReader(context.Background(), "../etc/passwd"); err == nil {
		t.Fatal("expected traversal error")
	}
	if _, err := store.Put(context.Background(), "../out.mp4", bytes.NewReader(nil)); err == nil {
		t.Fatal("expected traversal error on Put")
	}
}

func TestFilesystemStoragePutIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	path, err := store.Put(ctx, "out/video.mp4", bytes.NewReader([]byte("mp4")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if path != filepath.Join(dir, "out", "video.mp4") {
		t.Fatalf("path = %q", path)
	}
	data, err := store.ReadFile(ctx, "out/video.mp4")
	if err != nil || string(data) != "mp4" {
		t.Fatalf("ReadFile after Put = %q, %v", data, err)
	}
	leftovers, err := store.Glob("out/.partial-*")
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestFilesystemStorageGlobSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := NewFilesystemStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	keys, err := store.Glob("*.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a.png" || keys[1] != "b.png" {
		t.Fatalf("Glob = %v", keys)
	}
}

func TestFilesystemStorageDeleteIsIdempotent(t *testing.T) {
	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "img00000.png", bytes.NewReader(pngMagic)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "img00000.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "img00000.png"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := store.GetReader(ctx, "img00000.png"); err == nil {
		t.Fatal("file still readable after delete")
	}
	if err := store.Delete(ctx, "../escape"); err == nil {
		t.Fatal("expected traversal error")
	}
}
