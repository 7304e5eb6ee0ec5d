package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store implements storage.Storage with PostgreSQL.
type Store struct {
	db *gorm.DB
}

// postRow is a post joined with its author's name.
type postRow struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Content     string
	CoverImage  string
	AuthorID    string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	AuthorName  *string
}

func (r postRow) post() domain.Post {
	p := domain.Post{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		CoverImage:  r.CoverImage,
		AuthorID:    r.AuthorID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.AuthorName != nil {
		p.Author = &domain.Author{Name: *r.AuthorName}
	}
	return p
}

// New connects to PostgreSQL and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Post Methods ===

func (s *Store) joinedPosts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("posts").
		Select("posts.*, users.name AS author_name").
		Joins("LEFT JOIN users ON users.id = posts.author_id")
}

func (s *Store) ListPosts(ctx context.Context) ([]domain.Post, error) {
	var rows []postRow
	if err := s.joinedPosts(ctx).Order("posts.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toPosts(rows), nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	var rows []postRow
	err := s.joinedPosts(ctx).
		Where("posts.author_id = ?", authorID).
		Order("posts.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return toPosts(rows), nil
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	var rows []postRow
	if err := s.joinedPosts(ctx).Where("posts.slug = ?", slug).Limit(2).Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	if len(rows) != 1 {
		return nil, domain.ErrNotFound("post")
	}
	post := rows[0].post()
	return &post, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}

	row := *post
	row.ID = ""
	row.AuthorID = caller.UserID
	row.Author = nil
	row.UpdatedAt = nil
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err)
	}
	// GORM fills ID and CreatedAt after insert
	return s.GetPostBySlug(ctx, row.Slug)
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}

	updatedAt := time.Now().UTC()
	if post.UpdatedAt != nil {
		updatedAt = *post.UpdatedAt
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Post
		if err := tx.Select("id", "author_id").First(&existing, "id = ?", post.ID).Error; err != nil {
			return err
		}
		if existing.AuthorID != caller.UserID {
			return domain.ErrPermissionDenied("posts")
		}
		return tx.Model(&domain.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"slug":        post.Slug,
			"title":       post.Title,
			"description": post.Description,
			"content":     post.Content,
			"cover_image": post.CoverImage,
			"updated_at":  updatedAt,
		}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return s.GetPostBySlug(ctx, post.Slug)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return domain.ErrPermissionDenied("posts")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Post
		if err := tx.Select("id", "author_id").First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if existing.AuthorID != caller.UserID {
			return domain.ErrPermissionDenied("posts")
		}
		return tx.Delete(&domain.Post{}, "id = ?", id).Error
	})
	return translate(err)
}

func toPosts(rows []postRow) []domain.Post {
	posts := make([]domain.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.post()
	}
	return posts
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := *user
	row.ID = ""
	row.Email = strings.ToLower(user.Email)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "email = ?", strings.ToLower(email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &user, nil
}

// translate converts driver errors into the remote data service's error shape.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound("post")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusInternalServerError
		switch pgErr.Code {
		case domain.CodeUniqueViolation:
			status = http.StatusConflict
		case domain.CodePermissionDenied:
			status = http.StatusForbidden
		}
		return &domain.APIError{
			Code:       pgErr.Code,
			Message:    pgErr.Message,
			Status:     status,
			StatusText: http.StatusText(status),
		}
	}
	return err
}
