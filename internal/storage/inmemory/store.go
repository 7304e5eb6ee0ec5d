package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu      sync.RWMutex
	posts   map[string]*domain.Post // map[postID]
	bySlug  map[string]string       // map[slug]postID
	users   map[string]*domain.User // map[userID]
	byEmail map[string]string       // map[email]userID
	now     func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		posts:   make(map[string]*domain.Post),
		bySlug:  make(map[string]string),
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// === Post Methods ===

func (s *Store) ListPosts(ctx context.Context) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(*domain.Post) bool { return true }), nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(p *domain.Post) bool { return p.AuthorID == authorID }), nil
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound("post")
	}
	post := s.joined(s.posts[id])
	return &post, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySlug[post.Slug]; taken {
		return nil, domain.ErrDuplicate("posts_slug_key")
	}

	stored := *post
	stored.ID = uuid.NewString()
	stored.AuthorID = caller.UserID
	stored.CreatedAt = s.now()
	stored.UpdatedAt = nil
	stored.Author = nil

	s.posts[stored.ID] = &stored
	s.bySlug[stored.Slug] = stored.ID

	created := s.joined(&stored)
	return &created, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[post.ID]
	if !ok {
		return nil, domain.ErrNotFound("post")
	}
	if existing.AuthorID != caller.UserID {
		return nil, domain.ErrPermissionDenied("posts")
	}
	if owner, taken := s.bySlug[post.Slug]; taken && owner != post.ID {
		return nil, domain.ErrDuplicate("posts_slug_key")
	}

	delete(s.bySlug, existing.Slug)
	existing.Slug = post.Slug
	existing.Title = post.Title
	existing.Description = post.Description
	existing.Content = post.Content
	existing.CoverImage = post.CoverImage
	updatedAt := s.now()
	if post.UpdatedAt != nil {
		updatedAt = *post.UpdatedAt
	}
	existing.UpdatedAt = &updatedAt
	s.bySlug[existing.Slug] = existing.ID

	updated := s.joined(existing)
	return &updated, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return domain.ErrPermissionDenied("posts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[id]
	if !ok {
		// Deleting a missing row is not an error for the remote service either.
		return nil
	}
	if existing.AuthorID != caller.UserID {
		return domain.ErrPermissionDenied("posts")
	}
	delete(s.bySlug, existing.Slug)
	delete(s.posts, id)
	return nil
}

// collect returns joined copies of the matching posts, newest first.
func (s *Store) collect(match func(*domain.Post) bool) []domain.Post {
	out := make([]domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if match(p) {
			out = append(out, s.joined(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) joined(p *domain.Post) domain.Post {
	post := *p
	if u, ok := s.users[p.AuthorID]; ok {
		post.Author = &domain.Author{Name: u.Name}
	}
	return post
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return nil, domain.ErrDuplicate("users_email_key")
	}

	stored := *user
	stored.ID = uuid.NewString()
	stored.Email = email
	stored.CreatedAt = s.now()
	s.users[stored.ID] = &stored
	s.byEmail[email] = stored.ID

	created := stored
	return &created, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	found := *u
	return &found, nil
}
