package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tendant/stopmotion-pipeline/internal/storage"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

func newTestStore(t *testing.T) (*Store, *storage.BlobRegistry) {
	t.Helper()
	reg := storage.NewBlobRegistry()
	return NewStore(reg), reg
}

func images(names ...string) []pipeline.Image {
	out := make([]pipeline.Image, 0, len(names))
	for _, name := range names {
		out = append(out, pipeline.Image{Filename: name, MimeType: pipeline.MimePNG, Data: []byte(name)})
	}
	return out
}

func TestAddAppendsInOrderWithUniqueIDs(t *testing.T) {
	store, reg := newTestStore(t)
	first, err := store.Add(images("a.png", "b.png"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := store.Add(images("c.png"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("added = %d, %d", len(first), len(second))
	}

	entries := store.Entries()
	seen := map[string]bool{}
	for i, want := range []string{"a.png", "b.png", "c.png"} {
		if entries[i].Image.Filename != want {
			t.Fatalf("entry %d = %s, want %s", i, entries[i].Image.Filename, want)
		}
		if seen[entries[i].ID] {
			t.Fatalf("duplicate id %s", entries[i].ID)
		}
		seen[entries[i].ID] = true
		if _, ok := reg.Open(entries[i].Preview); !ok {
			t.Fatalf("entry %d preview handle not live", i)
		}
	}
	if reg.Len() != 3 {
		t.Fatalf("live previews = %d, want 3", reg.Len())
	}
}

func TestAddRejectsWholeBatchOnUnsupportedFile(t *testing.T) {
	store, reg := newTestStore(t)
	batch := images("a.png")
	batch = append(batch, pipeline.Image{Filename: "clip.gif", MimeType: "image/gif"})
	batch = append(batch, images("b.png")...)

	_, err := store.Add(batch)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	var formatErr *UnsupportedFormatError
	if !errors.As(err, &formatErr) || formatErr.Filename != "clip.gif" {
		t.Fatalf("err = %#v, want filename clip.gif", err)
	}
	if store.Len() != 0 || reg.Len() != 0 {
		t.Fatalf("partial admission: len=%d previews=%d", store.Len(), reg.Len())
	}
}

func TestAddAcceptsJPEGAndAlias(t *testing.T) {
	store, _ := newTestStore(t)
	added, err := store.Add([]pipeline.Image{
		{Filename: "a.jpg", MimeType: "image/jpg"},
		{Filename: "b.jpeg", MimeType: "image/jpeg"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, entry := range added {
		if entry.Image.MimeType != pipeline.MimeJPEG {
			t.Fatalf("mime = %q, want image/jpeg", entry.Image.MimeType)
		}
	}
}

func TestRemoveRevokesPreviewAndIgnoresUnknown(t *testing.T) {
	store, reg := newTestStore(t)
	added, err := store.Add(images("a.png", "b.png"))
	if err != nil {
		t.Fatal(err)
	}
	store.Remove(added[0].ID)
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
	if _, ok := reg.Open(added[0].Preview); ok {
		t.Fatal("removed entry preview still live")
	}
	store.Remove("missing")
	store.Remove(added[0].ID)
	if store.Len() != 1 {
		t.Fatalf("Len = %d after no-op removes", store.Len())
	}
	if _, ok := store.Get(added[1].ID); !ok {
		t.Fatal("remaining entry lost")
	}
}

func TestReorderAppliesPermutation(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Add(images("a.png", "b.png", "c.png")); err != nil {
		t.Fatal(err)
	}
	ids := store.IDs()
	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {0, 2, 1}}
	for _, perm := range perms {
		t.Run(fmt.Sprint(perm), func(t *testing.T) {
			want := []string{ids[perm[0]], ids[perm[1]], ids[perm[2]]}
			if err := store.Reorder(want); err != nil {
				t.Fatalf("Reorder: %v", err)
			}
			got := store.IDs()
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("IDs = %v, want %v", got, want)
				}
			}
		})
	}
}

func TestReorderRejectsNonPermutations(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Add(images("a.png", "b.png")); err != nil {
		t.Fatal(err)
	}
	ids := store.IDs()
	cases := map[string][]string{
		"short":     {ids[0]},
		"long":      {ids[0], ids[1], ids[0]},
		"duplicate": {ids[0], ids[0]},
		"unknown":   {ids[0], "other"},
	}
	for name, perm := range cases {
		t.Run(name, func(t *testing.T) {
			if err := store.Reorder(perm); !errors.Is(err, ErrInvalidPermutation) {
				t.Fatalf("err = %v, want ErrInvalidPermutation", err)
			}
			got := store.IDs()
			if got[0] != ids[0] || got[1] != ids[1] {
				t.Fatalf("sequence changed to %v", got)
			}
		})
	}
}

func TestTeardownReleasesAllPreviews(t *testing.T) {
	store, reg := newTestStore(t)
	added, err := store.Add(images("a.png", "b.png"))
	if err != nil {
		t.Fatal(err)
	}
	store.Teardown()
	if reg.Len() != 0 {
		t.Fatalf("live previews after teardown = %d", reg.Len())
	}
	store.Teardown()

	handle, err := store.PreviewHandle(added[0].ID)
	if err != nil {
		t.Fatalf("PreviewHandle: %v", err)
	}
	if handle == added[0].Preview {
		t.Fatal("expected a fresh handle after teardown")
	}
	if _, ok := reg.Open(handle); !ok {
		t.Fatal("recreated handle not live")
	}
}

func TestSourceReturnsImage(t *testing.T) {
	store, _ := newTestStore(t)
	added, err := store.Add(images("a.png"))
	if err != nil {
		t.Fatal(err)
	}
	img, err := store.Source(added[0].ID)
	if err != nil || img.Filename != "a.png" {
		t.Fatalf("Source = %+v, %v", img, err)
	}
	if _, err := store.Source("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, ok := store.At(0); !ok {
		t.Fatal("At(0) missing")
	}
	if _, ok := store.At(1); ok {
		t.Fatal("At(1) should be out of range")
	}
}
