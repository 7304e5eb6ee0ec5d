package domain

import "time"

// Author is the joined author relation returned with every post query.
type Author struct {
	Name string `json:"name"`
}

// Post is a blog post as stored by the remote data service.
// Content holds the serialized block document.
type Post struct {
	ID          string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug        string     `json:"slug" gorm:"type:varchar(255);not null;uniqueIndex"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text;not null"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	CoverImage  string     `json:"cover_image" gorm:"column:cover_image;type:text"`
	AuthorID    string     `json:"author_id" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`
	Author      *Author    `json:"author,omitempty" gorm:"-"`
}

// User is an account known to a local auth backend.
type User struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:now()"`
}

// Session is the opaque identity handed out by an auth backend. Only
// User.ID is consumed by the rest of the service.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// CoverFile is a cover image that still has to be uploaded.
type CoverFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// PostForm is the client-submitted payload for creating or updating a post.
// An empty ID means create.
type PostForm struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"cover_image,omitempty"`
	CoverFile   *CoverFile `json:"-"`
}

// SignupForm is the payload for creating an account.
type SignupForm struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginForm is the payload for signing in.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EventType names a post mutation broadcast to subscribers.
type EventType string

const (
	EventPostCreated EventType = "post.created"
	EventPostUpdated EventType = "post.updated"
	EventPostDeleted EventType = "post.deleted"
)

// Event describes a completed post mutation.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	PostID   string    `json:"post_id"`
	Slug     string    `json:"slug,omitempty"`
	AuthorID string    `json:"author_id"`
	At       time.Time `json:"at"`
}
