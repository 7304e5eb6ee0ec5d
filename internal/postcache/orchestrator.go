// Package postcache serves post data from three in-process cache views and
// refills them from the remote data service on a miss.
//
// A view hits only while it holds data: a list must be non-empty and a
// detail entry must be non-nil. Empty successful lists are stored but are
// fetched again on the next call. Views are dropped together by
// InvalidateCache and rebuilt by Refetch after a mutation.
package postcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/errmsg"
	"github.com/UkralStul/blog-service/internal/storage"

	"golang.org/x/sync/errgroup"
)

// FetchError is returned when the remote data service rejects a fetch. The
// cache is left as it was.
type FetchError struct {
	Op      string
	Message errmsg.Message
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMinLoading overrides DefaultMinLoading.
func WithMinLoading(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.loading.min = d
	}
}

// Orchestrator owns the post cache. Create one per process with New and
// share it.
type Orchestrator struct {
	store   storage.Posts
	logger  *slog.Logger
	loading *loadingTracker

	mu       sync.Mutex
	allPosts []domain.Post
	myPosts  []domain.Post
	myAuthor string
	details  map[string]*domain.Post

	// Every miss takes the next sequence number as the token of its key.
	// A response only writes the cache while its token is still current.
	seq          uint64
	allToken     uint64
	myToken      uint64
	detailTokens map[string]uint64
}

// New creates an orchestrator with empty views.
func New(store storage.Posts, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:        store,
		logger:       logger,
		loading:      &loadingTracker{min: DefaultMinLoading},
		details:      make(map[string]*domain.Post),
		detailTokens: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Loading reports whether any fetch is in flight or still inside its
// minimum loading window.
func (o *Orchestrator) Loading() bool {
	return o.loading.active()
}

// FetchAllPosts returns every post, newest first.
func (o *Orchestrator) FetchAllPosts(ctx context.Context) ([]domain.Post, error) {
	o.mu.Lock()
	if len(o.allPosts) > 0 {
		posts := slices.Clone(o.allPosts)
		o.mu.Unlock()
		return posts, nil
	}
	token := o.nextToken()
	o.allToken = token
	o.mu.Unlock()

	done := o.loading.begin()
	defer done()

	posts, err := o.store.ListPosts(ctx)
	if err != nil {
		return nil, o.fail(ctx, "fetch all posts", errmsg.FetchPosts, err)
	}

	o.mu.Lock()
	if o.allToken == token {
		o.allPosts = slices.Clone(posts)
	}
	o.mu.Unlock()
	return posts, nil
}

// FetchMyPosts returns the posts written by authorID, newest first. An
// empty authorID returns nothing.
func (o *Orchestrator) FetchMyPosts(ctx context.Context, authorID string) ([]domain.Post, error) {
	if authorID == "" {
		return nil, nil
	}

	o.mu.Lock()
	if len(o.myPosts) > 0 && o.myAuthor == authorID {
		posts := slices.Clone(o.myPosts)
		o.mu.Unlock()
		return posts, nil
	}
	token := o.nextToken()
	o.myToken = token
	o.mu.Unlock()

	done := o.loading.begin()
	defer done()

	posts, err := o.store.ListPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, o.fail(ctx, "fetch my posts", errmsg.FetchPosts, err, slog.String("author_id", authorID))
	}

	o.mu.Lock()
	if o.myToken == token {
		o.myPosts = slices.Clone(posts)
		o.myAuthor = authorID
	}
	o.mu.Unlock()
	return posts, nil
}

// FetchPost returns the post with the given slug. An empty slug returns
// nothing. A missing post is an error.
func (o *Orchestrator) FetchPost(ctx context.Context, slug string) (*domain.Post, error) {
	if slug == "" {
		return nil, nil
	}

	o.mu.Lock()
	if cached := o.details[slug]; cached != nil {
		post := *cached
		o.mu.Unlock()
		return &post, nil
	}
	token := o.nextToken()
	o.detailTokens[slug] = token
	o.mu.Unlock()

	done := o.loading.begin()
	defer done()

	post, err := o.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, o.fail(ctx, "fetch post", errmsg.Generic, err, slog.String("slug", slug))
	}

	o.mu.Lock()
	if o.detailTokens[slug] == token && post != nil {
		stored := *post
		o.details[slug] = &stored
	}
	o.mu.Unlock()
	return post, nil
}

// InvalidateCache empties all three views. Fetches still in flight will
// not write their responses back.
func (o *Orchestrator) InvalidateCache() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.allPosts = nil
	o.myPosts = nil
	o.myAuthor = ""
	o.details = make(map[string]*domain.Post)
	o.allToken = 0
	o.myToken = 0
	o.detailTokens = make(map[string]uint64)
}

// RefetchOptions selects the views rebuilt by Refetch.
type RefetchOptions struct {
	AuthorID string
	Slug     string
	// KeepCache skips the invalidation that normally precedes the fetches.
	KeepCache bool
}

// Refetch rebuilds the views a mutation may have touched. All posts are
// always fetched; the author's posts and the post detail only when named.
// It waits for every fetch and returns the first error.
func (o *Orchestrator) Refetch(ctx context.Context, opts RefetchOptions) error {
	if !opts.KeepCache {
		o.InvalidateCache()
	}

	var g errgroup.Group
	if opts.AuthorID != "" {
		g.Go(func() error {
			_, err := o.FetchMyPosts(ctx, opts.AuthorID)
			return err
		})
	}
	g.Go(func() error {
		_, err := o.FetchAllPosts(ctx)
		return err
	})
	if opts.Slug != "" {
		g.Go(func() error {
			_, err := o.FetchPost(ctx, opts.Slug)
			return err
		})
	}
	return g.Wait()
}

// nextToken must be called with mu held.
func (o *Orchestrator) nextToken() uint64 {
	o.seq++
	return o.seq
}

func (o *Orchestrator) fail(ctx context.Context, op string, c errmsg.Context, err error, attrs ...any) error {
	msg := errmsg.Classify(c, err)
	args := append([]any{slog.String("title", msg.Title), slog.Any("error", err)}, attrs...)
	level := slog.LevelError
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr != nil && apiErr.Status == http.StatusNotFound {
		level = slog.LevelInfo
	}
	o.logger.Log(ctx, level, op+" failed", args...)
	return &FetchError{Op: op, Message: msg, Err: err}
}
