package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Post is a stored blog post. JSON names match the blog table columns.
type Post struct {
	UUID        uuid.UUID `json:"uuid"`
	Photo       string    `json:"photo"`
	News        string    `json:"news"`
	FriendlyURL string    `json:"friendly_url"`
	NewsTitle   string    `json:"news_title"`
	PostDay     time.Time `json:"post_day"`
}

// NewPost carries the fields written on insert; the UUID is generated by the store.
type NewPost struct {
	Photo       string
	News        string
	FriendlyURL string
	NewsTitle   string
	PostDay     time.Time
}

// PostPatch is a partial update. Nil fields keep their stored value.
type PostPatch struct {
	Photo       *string
	News        *string
	FriendlyURL *string
	NewsTitle   *string
}

// Empty reports whether the patch changes nothing.
func (p PostPatch) Empty() bool {
	return p.Photo == nil && p.News == nil && p.FriendlyURL == nil && p.NewsTitle == nil
}

// PostRepository defines persistence operations for blog posts.
type PostRepository interface {
	Create(ctx context.Context, p NewPost) (uuid.UUID, error)
	List(ctx context.Context) ([]Post, error)
	// FindBySlug returns the first post with the given friendly_url, or nil when none matches.
	FindBySlug(ctx context.Context, slug string) (*Post, error)
	// UpdateBySlug applies patch to every post with the given friendly_url and returns the affected count.
	UpdateBySlug(ctx context.Context, slug string, patch PostPatch) (int64, error)
}

// PgPostRepository implements PostRepository on the blog table.
type PgPostRepository struct {
	db *pgxpool.Pool
}

func NewPgPostRepository(db *pgxpool.Pool) *PgPostRepository {
	return &PgPostRepository{db: db}
}

const postColumns = `uuid, photo, news, friendly_url, news_title, post_day`

func (r *PgPostRepository) Create(ctx context.Context, p NewPost) (uuid.UUID, error) {
	const q = `INSERT INTO blog (photo, news, friendly_url, news_title, post_day) VALUES ($1,$2,$3,$4,$5) RETURNING uuid`
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, q, p.Photo, p.News, p.FriendlyURL, p.NewsTitle, p.PostDay).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

func (r *PgPostRepository) List(ctx context.Context) ([]Post, error) {
	rows, err := r.db.Query(ctx, `SELECT `+postColumns+` FROM blog ORDER BY post_day DESC, uuid`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	items := make([]Post, 0)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.UUID, &p.Photo, &p.News, &p.FriendlyURL, &p.NewsTitle, &p.PostDay); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return items, nil
}

func (r *PgPostRepository) FindBySlug(ctx context.Context, slug string) (*Post, error) {
	q := `SELECT ` + postColumns + ` FROM blog WHERE friendly_url=$1 LIMIT 1`
	var p Post
	if err := r.db.QueryRow(ctx, q, slug).Scan(&p.UUID, &p.Photo, &p.News, &p.FriendlyURL, &p.NewsTitle, &p.PostDay); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &p, nil
}

func (r *PgPostRepository) UpdateBySlug(ctx context.Context, slug string, patch PostPatch) (int64, error) {
	q, args := buildPostUpdate(slug, patch)
	if q == "" {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("update post: %w", err)
	}
	return tag.RowsAffected(), nil
}

// buildPostUpdate renders the UPDATE for the non-nil fields of patch. It returns "" for an empty patch.
func buildPostUpdate(slug string, patch PostPatch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, col+"=$"+strconv.Itoa(len(args)))
	}
	add("photo", patch.Photo)
	add("news", patch.News)
	add("friendly_url", patch.FriendlyURL)
	add("news_title", patch.NewsTitle)

	if len(sets) == 0 {
		return "", nil
	}
	args = append(args, slug)
	return "UPDATE blog SET " + strings.Join(sets, ", ") + " WHERE friendly_url=$" + strconv.Itoa(len(args)), args
}

// MemoryPostRepository keeps posts in process memory in insertion order.
type MemoryPostRepository struct {
	mu    sync.RWMutex
	posts []Post
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{}
}

func (r *MemoryPostRepository) Create(_ context.Context, p NewPost) (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, Post{
		UUID:        id,
		Photo:       p.Photo,
		News:        p.News,
		FriendlyURL: p.FriendlyURL,
		NewsTitle:   p.NewsTitle,
		PostDay:     p.PostDay,
	})
	return id, nil
}

func (r *MemoryPostRepository) List(_ context.Context) ([]Post, error) {
	r.mu.RLock()
	out := make([]Post, len(r.posts))
	copy(out, r.posts)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].PostDay.After(out[j].PostDay) })
	return out, nil
}

func (r *MemoryPostRepository) FindBySlug(_ context.Context, slug string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.posts {
		if p.FriendlyURL == slug {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (r *MemoryPostRepository) UpdateBySlug(_ context.Context, slug string, patch PostPatch) (int64, error) {
	if patch.Empty() {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.posts {
		p := &r.posts[i]
		if p.FriendlyURL != slug {
			continue
		}
		if patch.Photo != nil {
			p.Photo = *patch.Photo
		}
		if patch.News != nil {
			p.News = *patch.News
		}
		if patch.FriendlyURL != nil {
			p.FriendlyURL = *patch.FriendlyURL
		}
		if patch.NewsTitle != nil {
			p.NewsTitle = *patch.NewsTitle
		}
		n++
	}
	return n, nil
}
