package errmsg

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UkralStul/blog-service/internal/domain"
)

func TestClassify_Generic(t *testing.T) {
	cases := []struct {
		name  string
		in    any
		title string
		desc  string
	}{
		{"nil", nil, "Something went wrong", "An unexpected error occurred. Please try again."},
		{"non error value", 42, "Something went wrong", ""},
		{"string", "boom", "Error", "boom"},
		{"duplicate code", &domain.APIError{Code: "23505", Message: "dup"}, "Duplicate Entry", "A record with this value already exists."},
		{"permission code", &domain.APIError{Code: "42501", Message: "nope"}, "Permission Denied", ""},
		{"400 code keeps message", &domain.APIError{Code: "400", Message: "title missing"}, "Invalid Request", "title missing"},
		{"unknown code", &domain.APIError{Code: "PGRST999", Message: "weird"}, "Error", "weird"},
		{"conflict status", &domain.APIError{Status: 409}, "Conflict", "This item already exists."},
		{"rate limit status", &domain.APIError{Status: 429}, "Too Many Requests", ""},
		{"unknown status", &domain.APIError{Status: 418, StatusText: "I'm a teapot"}, "Error 418", "I'm a teapot"},
		{"failed to fetch", &domain.APIError{Message: "Failed to fetch"}, "Network Error", "Please check your internet connection and try again."},
		{"network word", errors.New("Network unreachable"), "Network Error", "We couldn’t reach the server. Try again later."},
		{"duplicate text", errors.New(`ERROR: duplicate key value violates unique constraint "posts_slug_key"`), "Duplicate Entry", "This item already exists"},
		{"transport", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("dial tcp: refused")}, "Network Error", ""},
		{"wrapped api error", fmt.Errorf("fetch all posts: %w", &domain.APIError{Status: 404}), "Not Found", ""},
		{"unmatched", errors.New("something odd"), "Something went wrong", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(Generic, tc.in)
			assert.Equal(t, tc.title, got.Title)
			if tc.desc != "" {
				assert.Equal(t, tc.desc, got.Description)
			}
			assert.NotEmpty(t, got.Description)
		})
	}
}

func TestClassify_Login(t *testing.T) {
	assert.Equal(t, "Invalid credentials", Classify(Login, &domain.APIError{Message: "Invalid login credentials"}).Title)
	assert.Equal(t, "Email not confirmed", Classify(Login, errors.New("Email not confirmed")).Title)
	assert.Equal(t, "Too many attempts", Classify(Login, errors.New("Request rate limit reached")).Title)
	assert.Equal(t, "Network error", Classify(Login, errors.New("failed to fetch")).Title)

	fallback := Classify(Login, errors.New("odd"))
	assert.Equal(t, "Login failed", fallback.Title)
	assert.Equal(t, "odd", fallback.Description)

	assert.Equal(t, "Login failed", Classify(Login, nil).Title)
}

func TestClassify_Signup(t *testing.T) {
	assert.Equal(t, "Email already in use", Classify(Signup, errors.New("User already registered")).Title)
	assert.Equal(t, "Email already in use", Classify(Signup, errors.New("email address already in use")).Title)
	assert.Equal(t, "Weak password", Classify(Signup, errors.New("Password should be at least 6 characters")).Title)
	assert.Equal(t, "Signup disabled", Classify(Signup, errors.New("Signup disabled")).Title)
	assert.Equal(t, "Signup failed", Classify(Signup, nil).Title)
	assert.Equal(t, "Signup failed", Classify(Signup, 3.14).Title)
}

func TestClassify_Logout(t *testing.T) {
	assert.Equal(t, "Session expired", Classify(Logout, errors.New("JWT expired")).Title)
	assert.Equal(t, "Network error", Classify(Logout, errors.New("network error")).Title)

	notAuthed := Classify(Logout, errors.New("Invalid API key"))
	assert.Equal(t, "Logout failed", notAuthed.Title)
	assert.Equal(t, "Authentication error. Please refresh and try again.", notAuthed.Description)
}

func TestClassify_FetchPosts(t *testing.T) {
	assert.Equal(t, "Network error", Classify(FetchPosts, errors.New("Failed to fetch")).Title)
	assert.Equal(t, "An error occured.", Classify(FetchPosts, &domain.APIError{Status: 500}).Title)
}

func TestClassify_TypedNilAPIError(t *testing.T) {
	var apiErr *domain.APIError
	for _, c := range []Context{Generic, Signup, Login, Logout, FetchPosts} {
		t.Run(c.String(), func(t *testing.T) {
			assert.NotPanics(t, func() {
				got := Classify(c, error(apiErr))
				assert.NotEmpty(t, got.Title)
			})
			assert.NotPanics(t, func() {
				Classify(c, fmt.Errorf("wrapped: %w", apiErr))
			})
		})
	}
}
