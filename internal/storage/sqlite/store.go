package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	content     TEXT NOT NULL,
	cover_image TEXT NOT NULL DEFAULT '',
	author_id   TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER
);

CREATE INDEX IF NOT EXISTS posts_author_id_idx ON posts (author_id);
CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at);
`

const selectPosts = `
	SELECT p.id, p.slug, p.title, p.description, p.content, p.cover_image,
	       p.author_id, p.created_at, p.updated_at, u.name
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

// Store implements storage.Storage using an embedded SQLite database.
// Timestamps are stored as unix nanoseconds.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database file at path and creates the schema if needed.
// The caller should call Close when the store is no longer needed.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListPosts returns all posts, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return s.queryPosts(ctx, selectPosts+` ORDER BY p.created_at DESC`)
}

// ListPostsByAuthor returns the author's posts, newest first.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	return s.queryPosts(ctx, selectPosts+` WHERE p.author_id = ? ORDER BY p.created_at DESC`, authorID)
}

// GetPostBySlug returns the single post with the given slug.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	posts, err := s.queryPosts(ctx, selectPosts+` WHERE p.slug = ?`, slug)
	if err != nil {
		return nil, err
	}
	if len(posts) != 1 {
		return nil, domain.ErrNotFound("post")
	}
	return &posts[0], nil
}

// CreatePost inserts a post owned by the caller.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, slug, title, description, content, cover_image, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		post.Slug,
		post.Title,
		post.Description,
		post.Content,
		post.CoverImage,
		caller.UserID,
		s.now().UnixNano(),
	)
	if err != nil {
		return nil, translate(err, "posts_slug_key")
	}
	return s.GetPostBySlug(ctx, post.Slug)
}

// UpdatePost rewrites a post owned by the caller.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}

	updatedAt := s.now()
	if post.UpdatedAt != nil {
		updatedAt = *post.UpdatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkOwner(ctx, tx, post.ID, caller.UserID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE posts
		SET slug = ?, title = ?, description = ?, content = ?, cover_image = ?, updated_at = ?
		WHERE id = ?`,
		post.Slug,
		post.Title,
		post.Description,
		post.Content,
		post.CoverImage,
		updatedAt.UnixNano(),
		post.ID,
	)
	if err != nil {
		return nil, translate(err, "posts_slug_key")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return s.GetPostBySlug(ctx, post.Slug)
}

// DeletePost removes a post owned by the caller. Missing posts are ignored.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return domain.ErrPermissionDenied("posts")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkOwner(ctx, tx, id, caller.UserID); err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Code == domain.CodeNotFound {
			return nil
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return tx.Commit()
}

func checkOwner(ctx context.Context, tx *sql.Tx, postID, userID string) error {
	var authorID string
	err := tx.QueryRowContext(ctx, `SELECT author_id FROM posts WHERE id = ?`, postID).Scan(&authorID)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound("post")
	}
	if err != nil {
		return fmt.Errorf("query post owner: %w", err)
	}
	if authorID != userID {
		return domain.ErrPermissionDenied("posts")
	}
	return nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		var (
			p          domain.Post
			createdAt  int64
			updatedAt  sql.NullInt64
			authorName sql.NullString
		)
		err := rows.Scan(
			&p.ID,
			&p.Slug,
			&p.Title,
			&p.Description,
			&p.Content,
			&p.CoverImage,
			&p.AuthorID,
			&createdAt,
			&updatedAt,
			&authorName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = time.Unix(0, createdAt).UTC()
		if updatedAt.Valid {
			t := time.Unix(0, updatedAt.Int64).UTC()
			p.UpdatedAt = &t
		}
		if authorName.Valid {
			p.Author = &domain.Author{Name: authorName.String}
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// CreateUser inserts an account. Emails are stored lowercased.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.ID = uuid.NewString()
	created.Email = strings.ToLower(user.Email)
	created.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		created.ID,
		created.Name,
		created.Email,
		created.PasswordHash,
		created.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, translate(err, "users_email_key")
	}
	return &created, nil
}

// GetUserByEmail returns nil when no account uses email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, `email = ?`, strings.ToLower(email))
}

// GetUserByID returns nil when the account does not exist.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, `id = ?`, id)
}

func (s *Store) findUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return &u, nil
}

// translate maps SQLite constraint failures to the remote data service's
// error shape.
func translate(err error, constraint string) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.ErrDuplicate(constraint)
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return &domain.APIError{
				Code:       domain.CodeBadRequest,
				Message:    sqlErr.Error(),
				Status:     http.StatusBadRequest,
				StatusText: http.StatusText(http.StatusBadRequest),
			}
		}
	}
	return fmt.Errorf("exec: %w", err)
}
