package core

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestUploader_StoredNameFormat(t *testing.T) {
	storage, err := NewFSStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStorage: %v", err)
	}
	u := NewUploader(storage, &LocalSequencer{}, 0)
	u.now = func() time.Time { return time.UnixMilli(1700000000123) }

	name, err := u.Store(context.Background(), testAttachment("holiday.JPG", "data"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if name != "1700000000123-1.JPG" {
		t.Fatalf("stored name = %q", name)
	}
}

func TestUploader_ConcurrentNamesAreUnique(t *testing.T) {
	storage, err := NewFSStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStorage: %v", err)
	}
	u := NewUploader(storage, &LocalSequencer{}, 0)
	// every upload lands in the same millisecond
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }

	const n = 50
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names = map[string]struct{}{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := u.Store(context.Background(), testAttachment("a.png", "x"))
			if err != nil {
				t.Errorf("Store error: %v", err)
				return
			}
			mu.Lock()
			names[name] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(names) != n {
		t.Fatalf("got %d unique names, want %d", len(names), n)
	}
}

func TestUploader_Rejections(t *testing.T) {
	storage, err := NewFSStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStorage: %v", err)
	}
	u := NewUploader(storage, nil, 3)

	if _, err := u.Store(context.Background(), nil); err != ErrMissingAttachment {
		t.Fatalf("nil attachment: got %v", err)
	}
	if _, err := u.Store(context.Background(), testAttachment("a.png", "toolong")); err != ErrAttachmentTooLarge {
		t.Fatalf("oversized attachment: got %v", err)
	}
}

func TestAttachmentExt(t *testing.T) {
	tests := map[string]string{
		"photo.png":           ".png",
		"archive.tar.gz":      ".gz",
		"noext":               "",
		"../../etc/passwd":    "",
		`C:\Users\me\pic.jpg`: ".jpg",
		"weird.p/ng":          "",
		"evil.png;rm":         "",
		".hidden":             ".hidden",
		"trailingdot.":        "",
	}
	for in, want := range tests {
		if got := attachmentExt(in); got != want {
			t.Errorf("attachmentExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploader_NamePattern(t *testing.T) {
	storage, err := NewFSStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStorage: %v", err)
	}
	u := NewUploader(storage, nil, 0)
	name, err := u.Store(context.Background(), testAttachment("x.webp", "x"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if !regexp.MustCompile(`^\d{13}-\d+\.webp$`).MatchString(name) {
		t.Fatalf("unexpected stored name %q", name)
	}
	if strings.Contains(name, "/") {
		t.Fatalf("stored name must be flat: %q", name)
	}
}
