package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errStoreDown = errors.New("store down")

// failingPostRepository fails every call with errStoreDown.
type failingPostRepository struct{}

func (failingPostRepository) Create(context.Context, NewPost) (uuid.UUID, error) {
	return uuid.Nil, errStoreDown
}
func (failingPostRepository) List(context.Context) ([]Post, error) { return nil, errStoreDown }
func (failingPostRepository) FindBySlug(context.Context, string) (*Post, error) {
	return nil, errStoreDown
}
func (failingPostRepository) UpdateBySlug(context.Context, string, PostPatch) (int64, error) {
	return 0, errStoreDown
}

// failingCredentialRepository fails every call with errStoreDown.
type failingCredentialRepository struct{}

func (failingCredentialRepository) FindByUsername(context.Context, string) (*CredentialRecord, error) {
	return nil, errStoreDown
}
func (failingCredentialRepository) Create(context.Context, string, string) error {
	return errStoreDown
}

func newTestAuthService(repo CredentialRepository) (*RepositoryAuthService, *TokenIssuer) {
	tokens := NewTokenIssuer("test-secret", time.Hour)
	return NewRepositoryAuthService(repo, NewBcryptHasher(bcrypt.MinCost), tokens), tokens
}

func newTestBlogService(t *testing.T, posts PostRepository, cache ListCache) (*BlogService, *FSStorage) {
	t.Helper()
	storage, err := NewFSStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStorage: %v", err)
	}
	svc := NewBlogService(posts, NewUploader(storage, &LocalSequencer{}, 1<<20), cache, BlogServiceConfig{
		ListSecret:    "abacaxi",
		PublicBaseURL: "http://localhost:3002",
		DateLocale:    "pt-BR",
	})
	svc.now = func() time.Time { return time.Date(2024, time.March, 5, 15, 4, 5, 0, time.UTC) }
	return svc, storage
}

func testAttachment(name, content string) *Attachment {
	return &Attachment{Filename: name, Size: int64(len(content)), Content: bytes.NewReader([]byte(content))}
}

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
