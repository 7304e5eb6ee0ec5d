package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/errmsg"
	"github.com/UkralStul/blog-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "3f2b6c1e-8a4d-4f7e-9b1a-2c3d4e5f6a7b"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "anon-key", "")
}

func TestClient_ListPosts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/posts", r.URL.Path)
		assert.Equal(t, "*,author:author_id(name)", r.URL.Query().Get("select"))
		assert.True(t, strings.HasPrefix(r.URL.Query().Get("order"), "created_at.desc"), r.URL.Query().Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Write([]byte(`[{"id":"p1","slug":"hello","title":"Hello","author_id":"u1",
			"created_at":"2025-01-02T03:04:05.123456+00:00","author":{"name":"Ada"}}]`))
	})

	posts, err := client.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Slug)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "Ada", posts[0].Author.Name)
	assert.Equal(t, 2025, posts[0].CreatedAt.Year())
}

func TestClient_ListPostsByAuthor_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.u1", r.URL.Query().Get("author_id"))
		w.Write([]byte(`[]`))
	})

	posts, err := client.ListPostsByAuthor(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestClient_GetPostBySlug_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.missing", r.URL.Query().Get("slug"))
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","details":"The result contains 0 rows","hint":null,
			"message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := client.GetPostBySlug(context.Background(), "missing")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeNotFound, apiErr.Code)
	assert.Equal(t, "Not Found", errmsg.Classify(errmsg.Generic, err).Title)
}

func TestClient_CreatePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Prefer"), "return=representation")
		assert.Equal(t, "/rest/v1/posts", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["author_id"])
		assert.Equal(t, "hello", body["slug"])
		assert.Contains(t, body, "created_at")
		assert.NotContains(t, body, "updated_at")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","slug":"hello","author_id":"u1","created_at":"2025-01-01T00:00:00Z"}`))
	})

	ctx := storage.WithCaller(context.Background(), storage.Caller{UserID: "u1", AccessToken: "user-token"})
	created, err := client.CreatePost(ctx, &domain.Post{Slug: "hello", Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.ID)

	_, err = client.CreatePost(context.Background(), &domain.Post{Slug: "hello"})
	assert.Error(t, err)
}

func TestClient_CreatePost_Duplicate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","details":null,"hint":null,
			"message":"duplicate key value violates unique constraint \"posts_slug_key\""}`))
	})

	ctx := storage.WithCaller(context.Background(), storage.Caller{UserID: "u1"})
	_, err := client.CreatePost(ctx, &domain.Post{Slug: "hello"})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeUniqueViolation, apiErr.Code)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Duplicate Entry", errmsg.Classify(errmsg.Generic, err).Title)
}

func TestClient_UpdatePost_HiddenRow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.p1", r.URL.Query().Get("id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "updated_at")
		w.Write([]byte(`[]`))
	})

	ctx := storage.WithCaller(context.Background(), storage.Caller{UserID: "u1"})
	_, err := client.UpdatePost(ctx, &domain.Post{ID: "p1", Slug: "hello"})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_SignIn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "Secret1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"jwt","token_type":"bearer","expires_in":3600,
			"user":{"id":"` + userID + `","email":"ada@example.com","user_metadata":{"name":"Ada"}}}`))
	})

	session, err := client.SignIn(context.Background(), "ada@example.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, "jwt", session.AccessToken)
	assert.Equal(t, userID, session.User.ID)
	assert.Equal(t, "Ada", session.User.Name)
	assert.False(t, session.ExpiresAt.IsZero())

	_, err = client.SignIn(context.Background(), "ada@example.com", "wrong")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.Equal(t, "Invalid credentials", errmsg.Classify(errmsg.Login, err).Title)
}

func TestClient_SignUp_Unconfirmed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"name": "Ada"}, body["data"])
		w.Write([]byte(`{"id":"` + userID + `","email":"ada@example.com","user_metadata":{"name":"Ada"}}`))
	})

	session, err := client.SignUp(context.Background(), domain.SignupForm{Name: "Ada", Email: "ada@example.com", Password: "Secret1"})
	require.NoError(t, err)
	assert.Empty(t, session.AccessToken)
	assert.Equal(t, userID, session.User.ID)
	assert.Equal(t, "Ada", session.User.Name)
}

func TestClient_Session(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":401,"error_code":"bad_jwt","msg":"invalid JWT: token is expired"}`))
			return
		}
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		w.Write([]byte(`{"id":"` + userID + `","email":"ada@example.com"}`))
	})

	session, err := client.Session(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, userID, session.User.ID)
	assert.Equal(t, "good", session.AccessToken)

	_, err = client.Session(context.Background(), "bad")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = client.Session(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_Upload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/post-covers/u1/1700000000000.png", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "png-bytes", string(data))
		w.Write([]byte(`{"Key":"post-covers/u1/1700000000000.png"}`))
	})

	err := client.Upload(context.Background(), "u1/1700000000000.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(client.PublicURL("u1/1700000000000.png"),
		"/storage/v1/object/public/post-covers/u1/1700000000000.png"))
}

func TestClient_TransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "anon-key", "")

	_, err := client.ListPosts(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Network Error", errmsg.Classify(errmsg.Generic, err).Title)
}

func TestClient_SignOut(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SignOut(context.Background(), "jwt"))
}

func TestClient_DeletePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.p1", r.URL.Query().Get("id"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := storage.WithCaller(context.Background(), storage.Caller{UserID: "u1", AccessToken: "user-token"})
	require.NoError(t, client.DeletePost(ctx, "p1"))
	assert.Error(t, client.DeletePost(context.Background(), "p1"))
}

func TestDecodeError(t *testing.T) {
	assert.NoError(t, decodeError(nil))

	transport := &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}
	assert.Same(t, transport, decodeError(transport))

	cases := []struct {
		name   string
		in     error
		code   string
		status int
		msg    string
	}{
		{"postgrest unique", errors.New(`(23505) duplicate key value violates unique constraint "posts_slug_key"`),
			domain.CodeUniqueViolation, http.StatusConflict, `duplicate key value violates unique constraint "posts_slug_key"`},
		{"postgrest rls", errors.New(`(42501) new row violates row-level security policy for table "posts"`),
			domain.CodePermissionDenied, http.StatusForbidden, ""},
		{"postgrest no rows", errors.New("(PGRST116) JSON object requested, multiple (or no) rows returned"),
			domain.CodeNotFound, http.StatusNotFound, "JSON object requested, multiple (or no) rows returned"},
		{"gotrue body", errors.New(`response status code 422: {"code":422,"error_code":"user_already_exists","msg":"User already registered"}`),
			"user_already_exists", http.StatusUnprocessableEntity, "User already registered"},
		{"gotrue bare status", errors.New("response status code 500"),
			"", http.StatusInternalServerError, ""},
		{"storage body", errors.New(`{"statusCode":"404","error":"not_found","message":"Object not found"}`),
			"", http.StatusNotFound, "Object not found"},
		{"plain text", errors.New("bucket exploded"),
			"", http.StatusBadGateway, "bucket exploded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var apiErr *domain.APIError
			require.ErrorAs(t, decodeError(tc.in), &apiErr)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, tc.status, apiErr.Status)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, apiErr.Message)
			}
		})
	}
}
