package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// PostSummary is the list projection of a post.
type PostSummary struct {
	UUID        uuid.UUID `json:"uuid"`
	Photo       string    `json:"photo"`
	News        string    `json:"news"`
	FriendlyURL string    `json:"friendly_url"`
	NewsTitle   string    `json:"news_title"`
	PostDay     string    `json:"post_day"`
}

// CreatePostInput is the payload of a create request.
type CreatePostInput struct {
	News        string
	FriendlyURL string
	NewsTitle   string
	Photo       *Attachment
}

// UpdatePostInput is the payload of an update request. Empty strings and a nil Photo mean "keep".
type UpdatePostInput struct {
	News        string
	NewsTitle   string
	FriendlyURL string
	Photo       *Attachment
}

// BlogService orchestrates post writes and reads over a PostRepository and an Uploader.
type BlogService struct {
	posts         PostRepository
	uploads       *Uploader
	cache         ListCache
	listSecret    string
	publicBaseURL string
	dateLocale    string
	now           func() time.Time
}

// BlogServiceConfig carries the values BlogService takes from Config.
type BlogServiceConfig struct {
	ListSecret    string
	PublicBaseURL string
	DateLocale    string
}

func NewBlogService(posts PostRepository, uploads *Uploader, cache ListCache, cfg BlogServiceConfig) *BlogService {
	if cache == nil {
		cache = noopListCache{}
	}
	return &BlogService{
		posts:         posts,
		uploads:       uploads,
		cache:         cache,
		listSecret:    cfg.ListSecret,
		publicBaseURL: cfg.PublicBaseURL,
		dateLocale:    cfg.DateLocale,
		now:           time.Now,
	}
}

// Create stores the photo and inserts a post dated today (UTC).
// A missing photo fails with ErrMissingAttachment before anything is written.
func (s *BlogService) Create(ctx context.Context, in CreatePostInput) (uuid.UUID, error) {
	if in.Photo == nil {
		return uuid.Nil, ErrMissingAttachment
	}
	photo, err := s.uploads.Store(ctx, in.Photo)
	if err != nil {
		return uuid.Nil, err
	}

	now := s.now().UTC()
	id, err := s.posts.Create(ctx, NewPost{
		Photo:       photo,
		News:        in.News,
		FriendlyURL: in.FriendlyURL,
		NewsTitle:   in.NewsTitle,
		PostDay:     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		if derr := s.uploads.Discard(ctx, photo); derr != nil {
			log.Printf("discard orphan attachment %s: %v", photo, derr)
		}
		return uuid.Nil, err
	}
	s.invalidateList(ctx)
	return id, nil
}

// List returns every post as a summary when callerSecret matches the gate secret.
func (s *BlogService) List(ctx context.Context, callerSecret string) ([]PostSummary, error) {
	if s.listSecret == "" || subtle.ConstantTimeCompare([]byte(callerSecret), []byte(s.listSecret)) != 1 {
		return nil, ErrUnauthorized
	}

	gen, err := s.cache.Generation(ctx)
	cacheable := err == nil
	if err != nil {
		log.Printf("post list cache generation read failed: %v", err)
	} else if items, ok, err := s.cache.Get(ctx, gen); err != nil {
		log.Printf("post list cache read failed: %v", err)
	} else if ok {
		return items, nil
	}

	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		items = append(items, s.summarize(p))
	}
	if cacheable {
		if err := s.cache.Set(ctx, gen, items); err != nil {
			log.Printf("post list cache write failed: %v", err)
		}
	}
	return items, nil
}

// GetBySlug returns the first post whose friendly_url is slug.
func (s *BlogService) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	p, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPostNotFound
	}
	return p, nil
}

// Update changes only the supplied fields of the posts matching slug. A new photo is stored first.
// Supplying nothing is a successful no-op.
func (s *BlogService) Update(ctx context.Context, slug string, in UpdatePostInput) error {
	var patch PostPatch
	if in.News != "" {
		patch.News = &in.News
	}
	if in.NewsTitle != "" {
		patch.NewsTitle = &in.NewsTitle
	}
	if in.FriendlyURL != "" {
		patch.FriendlyURL = &in.FriendlyURL
	}
	var photo string
	if in.Photo != nil {
		name, err := s.uploads.Store(ctx, in.Photo)
		if err != nil {
			return err
		}
		photo = name
		patch.Photo = &photo
	}
	if patch.Empty() {
		return nil
	}

	n, err := s.posts.UpdateBySlug(ctx, slug, patch)
	if err != nil {
		if photo != "" {
			if derr := s.uploads.Discard(ctx, photo); derr != nil {
				log.Printf("discard orphan attachment %s: %v", photo, derr)
			}
		}
		return err
	}
	if n == 0 {
		log.Printf("update matched no post for friendly_url=%q", slug)
		if photo != "" {
			if derr := s.uploads.Discard(ctx, photo); derr != nil {
				log.Printf("discard orphan attachment %s: %v", photo, derr)
			}
		}
		return nil
	}
	s.invalidateList(ctx)
	return nil
}

// PhotoURL is the public URL of a stored attachment.
func (s *BlogService) PhotoURL(storedName string) string {
	return fmt.Sprintf("%s/uploads/%s", s.publicBaseURL, storedName)
}

func (s *BlogService) summarize(p Post) PostSummary {
	return PostSummary{
		UUID:        p.UUID,
		Photo:       s.PhotoURL(p.Photo),
		News:        p.News,
		FriendlyURL: p.FriendlyURL,
		NewsTitle:   p.NewsTitle,
		PostDay:     FormatLongDate(p.PostDay, s.dateLocale),
	}
}

func (s *BlogService) invalidateList(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("post list cache invalidation failed: %v", err)
	}
}
