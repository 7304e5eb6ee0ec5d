package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/postcache"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type memoryBlobs struct {
	objects map[string]string
	err     error
}

func (b *memoryBlobs) Upload(ctx context.Context, path, contentType string, r io.Reader) error {
	if b.err != nil {
		return b.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[path] = string(data)
	return nil
}

func (b *memoryBlobs) PublicURL(path string) string {
	return "https://cdn.example.com/" + path
}

type fixture struct {
	svc       *PostService
	store     *inmemory.Store
	cache     *postcache.Orchestrator
	blobs     *memoryBlobs
	publisher *recordingPublisher
	caller    storage.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := inmemory.New()
	user, err := store.CreateUser(context.Background(), &domain.User{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	cache := postcache.New(store, logger, postcache.WithMinLoading(0))
	blobs := &memoryBlobs{objects: make(map[string]string)}
	publisher := &recordingPublisher{}

	svc := NewPostService(store, blobs, cache, publisher, logger)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }

	return &fixture{
		svc:       svc,
		store:     store,
		cache:     cache,
		blobs:     blobs,
		publisher: publisher,
		caller:    storage.Caller{UserID: user.ID},
	}
}

func validForm() domain.PostForm {
	return domain.PostForm{
		Title:       "Café Été",
		Description: "A summer post",
		Content:     `[{"id":"1","type":"paragraph","content":[{"text":"hello"}]}]`,
		CoverImage:  "https://cdn.example.com/old.png",
	}
}

func TestSave_CreatesPostAndRefreshesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// warm the list so the refetch has something to replace
	_, err := f.cache.FetchAllPosts(ctx)
	require.NoError(t, err)

	saved, err := f.svc.Save(ctx, f.caller, validForm())
	require.NoError(t, err)
	assert.Equal(t, "cafe-ete", saved.Slug)
	assert.Equal(t, f.caller.UserID, saved.AuthorID)

	all, err := f.cache.FetchAllPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, saved.ID, all[0].ID)

	mine, err := f.cache.FetchMyPosts(ctx, f.caller.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventPostCreated, f.publisher.events[0].Type)
	assert.Equal(t, "cafe-ete", f.publisher.events[0].Slug)
}

func TestSave_UpdatesPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Save(ctx, f.caller, validForm())
	require.NoError(t, err)

	form := validForm()
	form.ID = created.ID
	form.Title = "Hello   World!!!"
	updated, err := f.svc.Save(ctx, f.caller, form)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", updated.Slug)
	require.NotNil(t, updated.UpdatedAt)

	detail, err := f.cache.FetchPost(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, created.ID, detail.ID)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, domain.EventPostUpdated, f.publisher.events[1].Type)
}

func TestSave_UploadsCoverFile(t *testing.T) {
	f := newFixture(t)

	form := validForm()
	form.CoverFile = &domain.CoverFile{Name: "photo.final.PNG", ContentType: "image/png", Data: []byte("img")}

	saved, err := f.svc.Save(context.Background(), f.caller, form)
	require.NoError(t, err)

	path := f.caller.UserID + "/1700000000000.PNG"
	assert.Equal(t, "img", f.blobs.objects[path])
	assert.Equal(t, "https://cdn.example.com/"+path, saved.CoverImage)
}

func TestSave_ValidationFailsBeforeBackend(t *testing.T) {
	f := newFixture(t)

	form := validForm()
	form.Title = "Hi"
	form.CoverImage = ""
	_, err := f.svc.Save(context.Background(), f.caller, form)

	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "title")
	assert.Contains(t, verrs, "cover_image")

	posts, err := f.store.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Empty(t, f.publisher.events)
}

func TestSave_UploadFailureStopsSave(t *testing.T) {
	f := newFixture(t)
	f.blobs.err = errors.New("bucket not found")

	form := validForm()
	form.CoverFile = &domain.CoverFile{Name: "a.png", ContentType: "image/png", Data: []byte("img")}
	_, err := f.svc.Save(context.Background(), f.caller, form)
	require.Error(t, err)

	posts, err := f.store.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSave_DuplicateSlugIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.caller, validForm())
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, f.caller, validForm())
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeUniqueViolation, apiErr.Code)
	assert.Len(t, f.publisher.events, 1)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, f.caller, validForm())
	require.NoError(t, err)

	intruder := storage.Caller{UserID: "someone-else"}
	require.Error(t, f.svc.Delete(ctx, intruder, saved.ID))

	require.NoError(t, f.svc.Delete(ctx, f.caller, saved.ID))

	all, err := f.cache.FetchAllPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, domain.EventPostDeleted, last.Type)
	assert.Equal(t, saved.ID, last.PostID)
}

func TestUploadCover_Disabled(t *testing.T) {
	f := newFixture(t)
	f.svc.blobs = nil

	_, err := f.svc.UploadCover(context.Background(), f.caller, domain.CoverFile{Name: "a.png"})
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestCoverPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "u1/1700000000123.jpg", CoverPath("u1", "me.jpg", at))
	assert.Equal(t, "u1/1700000000123.gz", CoverPath("u1", "archive.tar.gz", at))
	assert.Equal(t, "u1/1700000000123.cover", CoverPath("u1", "cover", at))
}
