package core

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogCreate_ThenGetBySlug(t *testing.T) {
	repo := NewMemoryPostRepository()
	svc, storage := newTestBlogService(t, repo, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, CreatePostInput{
		News: "body", FriendlyURL: "s1", NewsTitle: "Title", Photo: testAttachment("cat.png", "img1"),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	post, err := svc.GetBySlug(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, id, post.UUID)
	assert.Equal(t, "s1", post.FriendlyURL)
	assert.Equal(t, "body", post.News)
	assert.Equal(t, "Title", post.NewsTitle)
	assert.True(t, strings.HasSuffix(post.Photo, ".png"), "photo %q keeps the extension", post.Photo)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), post.PostDay)

	rc, err := storage.Open(ctx, post.Photo)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "img1", string(data))
}

func TestBlogCreate_MissingAttachment(t *testing.T) {
	repo := NewMemoryPostRepository()
	svc, _ := newTestBlogService(t, repo, nil)

	_, err := svc.Create(context.Background(), CreatePostInput{FriendlyURL: "s1"})
	require.ErrorIs(t, err, ErrMissingAttachment)

	posts, _ := repo.List(context.Background())
	assert.Empty(t, posts)
}

func TestBlogCreate_TooLarge(t *testing.T) {
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), nil)

	photo := &Attachment{Filename: "big.jpg", Size: 2 << 20, Content: strings.NewReader("x")}
	_, err := svc.Create(context.Background(), CreatePostInput{FriendlyURL: "s1", Photo: photo})
	require.ErrorIs(t, err, ErrAttachmentTooLarge)
}

func TestBlogCreate_StorageErrorDiscardsUpload(t *testing.T) {
	svc, storage := newTestBlogService(t, failingPostRepository{}, nil)

	_, err := svc.Create(context.Background(), CreatePostInput{FriendlyURL: "s1", Photo: testAttachment("a.jpg", "x")})
	require.ErrorIs(t, err, errStoreDown)

	entries, err := readDirNames(storage.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "orphaned upload should be removed")
}

func TestBlogGetBySlug_NotFound(t *testing.T) {
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), nil)

	_, err := svc.GetBySlug(context.Background(), "missing")
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestBlogGetBySlug_StorageError(t *testing.T) {
	svc, _ := newTestBlogService(t, failingPostRepository{}, nil)

	_, err := svc.GetBySlug(context.Background(), "s1")
	require.ErrorIs(t, err, errStoreDown)
}

func TestBlogList_RequiresGateSecret(t *testing.T) {
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePostInput{FriendlyURL: "s1", Photo: testAttachment("a.jpg", "x")})
	require.NoError(t, err)

	for _, secret := range []string{"", "abacax", "abacaxi ", "ABACAXI", "abacaxii"} {
		items, err := svc.List(ctx, secret)
		require.ErrorIs(t, err, ErrUnauthorized, "secret %q", secret)
		assert.Nil(t, items)
	}
}

func TestBlogList_Projection(t *testing.T) {
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePostInput{
		News: "body", FriendlyURL: "hello-world", NewsTitle: "Hello", Photo: testAttachment("img1.jpg", "x"),
	})
	require.NoError(t, err)
	stored, err := svc.GetBySlug(ctx, "hello-world")
	require.NoError(t, err)

	items, err := svc.List(ctx, "abacaxi")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, PostSummary{
		UUID:        stored.UUID,
		Photo:       "http://localhost:3002/uploads/" + stored.Photo,
		News:        "body",
		FriendlyURL: "hello-world",
		NewsTitle:   "Hello",
		PostDay:     "5 de março de 2024",
	}, items[0])
}

func TestBlogList_StorageError(t *testing.T) {
	svc, _ := newTestBlogService(t, failingPostRepository{}, nil)

	_, err := svc.List(context.Background(), "abacaxi")
	require.ErrorIs(t, err, errStoreDown)
}

func TestBlogList_CachedUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisListCache(client, time.Minute)
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), cache)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePostInput{FriendlyURL: "a", Photo: testAttachment("a.jpg", "x")})
	require.NoError(t, err)
	items, err := svc.List(ctx, "abacaxi")
	require.NoError(t, err)
	require.Len(t, items, 1)
	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(postListKey(gen)))

	_, err = svc.Create(ctx, CreatePostInput{FriendlyURL: "b", Photo: testAttachment("b.jpg", "y")})
	require.NoError(t, err)
	next, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next, "create advances the cache generation")

	items, err = svc.List(ctx, "abacaxi")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

// pausingPostRepository holds the first List call, after it has read the store, until release is closed.
type pausingPostRepository struct {
	*MemoryPostRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *pausingPostRepository) List(ctx context.Context) ([]Post, error) {
	posts, err := r.MemoryPostRepository.List(ctx)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return posts, err
}

func TestBlogList_FillRacingCreateDoesNotHidePost(t *testing.T) {
	_, client := newMiniredisClient(t)
	repo := &pausingPostRepository{
		MemoryPostRepository: NewMemoryPostRepository(),
		read:                 make(chan struct{}),
		release:              make(chan struct{}),
	}
	svc, _ := newTestBlogService(t, repo, NewRedisListCache(client, time.Minute))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.List(ctx, "abacaxi")
		done <- err
	}()
	<-repo.read

	_, err := svc.Create(ctx, CreatePostInput{FriendlyURL: "new", Photo: testAttachment("n.png", "x")})
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-done)

	items, err := svc.List(ctx, "abacaxi")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].FriendlyURL)
}

func TestBlogList_CacheDownFallsBackToStore(t *testing.T) {
	mr, client := newMiniredisClient(t)
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), NewRedisListCache(client, time.Minute))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePostInput{FriendlyURL: "a", Photo: testAttachment("a.jpg", "x")})
	require.NoError(t, err)
	mr.Close()

	items, err := svc.List(ctx, "abacaxi")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestBlogUpdate_OnlyTitle(t *testing.T) {
	svc, _ := newTestBlogService(t, NewMemoryPostRepository(), nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePostInput{
		News: "body", FriendlyURL: "hello-world", NewsTitle: "Old", Photo: testAttachment("a.jpg", "x"),
	})
	require.NoError(t, err)
	before, _ := svc.GetBySlug(ctx, "hello-world")

	require.NoError(t, svc.Update(ctx, "hello-world", UpdatePostInput{NewsTitle: "New Title"}))

	after, err := svc.GetBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "New Title", after.NewsTitle)
	assert.Equal(t, before.News, after.News)
	assert.Equal(t, before.FriendlyURL, after.FriendlyURL)
	assert.Equal(t, before.Photo, after.Photo)
	assert.Equal(t, before.UUID, after.UUID)
}

func TestBlogUpdate_NewPhotoAndSlug(t *testing.T) {
	svc, storage := newTestBlogService(t, NewMemoryPostRepository(), nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePostInput{FriendlyURL: "old", Photo: testAttachment("a.jpg", "x")})
	require.NoError(t, err)
	before, _ := svc.GetBySlug(ctx, "old")

	require.NoError(t, svc.Update(ctx, "old", UpdatePostInput{FriendlyURL: "new", Photo: testAttachment("b.gif", "y")}))

	_, err = svc.GetBySlug(ctx, "old")
	require.ErrorIs(t, err, ErrPostNotFound)
	after, err := svc.GetBySlug(ctx, "new")
	require.NoError(t, err)
	assert.NotEqual(t, before.Photo, after.Photo)
	assert.True(t, strings.HasSuffix(after.Photo, ".gif"))

	rc, err := storage.Open(ctx, after.Photo)
	require.NoError(t, err)
	rc.Close()
}

func TestBlogUpdate_NoFieldsIsNoop(t *testing.T) {
	svc, _ := newTestBlogService(t, failingPostRepository{}, nil)

	require.NoError(t, svc.Update(context.Background(), "anything", UpdatePostInput{}))
}

func TestBlogUpdate_UnknownSlugSucceeds(t *testing.T) {
	svc, storage := newTestBlogService(t, NewMemoryPostRepository(), nil)

	err := svc.Update(context.Background(), "ghost", UpdatePostInput{NewsTitle: "x", Photo: testAttachment("a.jpg", "x")})
	require.NoError(t, err)

	entries, err := readDirNames(storage.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "photo for an unmatched update is discarded")
}

func TestBlogUpdate_StorageError(t *testing.T) {
	svc, _ := newTestBlogService(t, failingPostRepository{}, nil)

	err := svc.Update(context.Background(), "s1", UpdatePostInput{News: "x"})
	require.ErrorIs(t, err, errStoreDown)
}
