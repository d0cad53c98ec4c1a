package core

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Attachment is a single uploaded file as received from a write request.
type Attachment struct {
	Filename string // original client-side name; only its extension is kept
	Size     int64
	Content  io.Reader
}

// Sequencer yields strictly increasing numbers used to make stored names unique.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// LocalSequencer is an in-process Sequencer, unique within one process.
type LocalSequencer struct {
	n atomic.Int64
}

func (s *LocalSequencer) Next(context.Context) (int64, error) {
	return s.n.Add(1), nil
}

// Uploader assigns stored names to attachments and persists them to a BlobStorage.
type Uploader struct {
	storage  BlobStorage
	seq      Sequencer
	maxBytes int64
	now      func() time.Time
}

func NewUploader(storage BlobStorage, seq Sequencer, maxBytes int64) *Uploader {
	if seq == nil {
		seq = &LocalSequencer{}
	}
	return &Uploader{storage: storage, seq: seq, maxBytes: maxBytes, now: time.Now}
}

// Store writes the attachment and returns its stored name, <unixMillis>-<seq><ext>.
func (u *Uploader) Store(ctx context.Context, a *Attachment) (string, error) {
	if a == nil || a.Content == nil {
		return "", ErrMissingAttachment
	}
	if u.maxBytes > 0 && a.Size > u.maxBytes {
		return "", ErrAttachmentTooLarge
	}
	name, err := u.storedName(ctx, a.Filename)
	if err != nil {
		return "", err
	}
	if err := u.storage.Save(ctx, name, a.Content); err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return name, nil
}

// Open returns the stored attachment for streaming.
func (u *Uploader) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return u.storage.Open(ctx, name)
}

// Discard removes a stored attachment that no record will reference.
func (u *Uploader) Discard(ctx context.Context, name string) error {
	return u.storage.Delete(ctx, name)
}

func (u *Uploader) storedName(ctx context.Context, original string) (string, error) {
	seq, err := u.seq.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next upload sequence: %w", err)
	}
	return strconv.FormatInt(u.now().UnixMilli(), 10) + "-" + strconv.FormatInt(seq, 10) + attachmentExt(original), nil
}

// attachmentExt returns the extension of name, or "" when it has none
// or contains anything but ASCII letters and digits.
func attachmentExt(name string) string {
	ext := filepath.Ext(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
