// Package supabase adapts a hosted Supabase project to the blog's storage
// and auth ports. It covers the three services the blog uses: PostgREST
// rows, GoTrue auth and the storage object API.
package supabase

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"

	"github.com/UkralStul/blog-service/internal/domain"
)

// DefaultBucket holds uploaded post covers.
const DefaultBucket = "post-covers"

const schema = "public"

// Client talks to one Supabase project with its public anon key. Requests
// made on behalf of a signed-in user carry that user's access token so row
// level security applies.
type Client struct {
	baseURL string
	anonKey string
	bucket  string
}

// NewClient creates a client for the project at baseURL. If bucket is empty
// it defaults to DefaultBucket.
func NewClient(baseURL, anonKey, bucket string) *Client {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		bucket:  bucket,
	}
}

// bearer is the token sent for a request; anonymous requests use the anon key.
func (c *Client) bearer(token string) string {
	if token == "" {
		return c.anonKey
	}
	return token
}

// rest returns a PostgREST client acting as token. The library keeps
// headers on the client, so one is built per request.
func (c *Client) rest(token string) (*postgrest.Client, error) {
	client := postgrest.NewClient(c.baseURL+"/rest/v1", schema, map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + c.bearer(token),
	})
	if client.ClientError != nil {
		return nil, client.ClientError
	}
	return client, nil
}

// auth returns a GoTrue client, acting as token when it is set.
func (c *Client) auth(token string) gotrue.Client {
	client := gotrue.New("", c.anonKey).WithCustomGoTrueURL(c.baseURL + "/auth/v1")
	if token != "" {
		client = client.WithToken(token)
	}
	return client
}

// objects returns a storage client acting as token.
func (c *Client) objects(token string) *storage_go.Client {
	return storage_go.NewClient(c.baseURL+"/storage/v1", c.bearer(token), map[string]string{
		"apikey": c.anonKey,
	})
}

// errorBody is the union of the PostgREST, GoTrue and storage error shapes.
type errorBody struct {
	// PostgREST
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	// GoTrue
	Msg              string `json:"msg"`
	ErrorCode        string `json:"error_code"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	// storage
	StatusCode string `json:"statusCode"`
}

// noRowsCode is PostgREST's answer to a single-object request matching no rows.
const noRowsCode = "PGRST116"

var (
	// postgrest-go reports "(<code>) <message>".
	restError = regexp.MustCompile(`^\(([^)]*)\) (.*)$`)
	// gotrue-go reports "response status code <status>: <body>".
	authError = regexp.MustCompile(`^response status code (\d+)(?::\s*(.*))?$`)
)

// restStatus is the HTTP status PostgREST sends with a code. postgrest-go
// drops the status, so it is recovered here.
func restStatus(code string) int {
	switch {
	case code == noRowsCode:
		return http.StatusNotAcceptable
	case code == domain.CodeUniqueViolation:
		return http.StatusConflict
	case code == domain.CodePermissionDenied:
		return http.StatusForbidden
	case code == "42P01", code == "42703", strings.HasPrefix(code, "PGRST1"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "PGRST3"):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeError maps a failure from one of the Supabase libraries to an
// *domain.APIError. Transport failures are returned unchanged so they
// classify as network errors.
func decodeError(err error) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return err
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	text := strings.TrimSpace(err.Error())
	if m := restError.FindStringSubmatch(text); m != nil {
		return restAPIError(m[1], m[2])
	}
	if m := authError.FindStringSubmatch(text); m != nil {
		status, _ := strconv.Atoi(m[1])
		return bodyError(status, []byte(m[2]))
	}
	return bodyError(http.StatusBadGateway, []byte(text))
}

func restAPIError(code, message string) error {
	if code == noRowsCode {
		notFound := domain.ErrNotFound("post")
		notFound.Message = message
		return notFound
	}
	status := restStatus(code)
	return &domain.APIError{
		Code:       code,
		Message:    message,
		Status:     status,
		StatusText: http.StatusText(status),
	}
}

// bodyError decodes a JSON error body returned with status.
func bodyError(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return &domain.APIError{
			Message:    strings.TrimSpace(string(body)),
			Status:     status,
			StatusText: http.StatusText(status),
		}
	}

	if s, err := strconv.Atoi(eb.StatusCode); err == nil && s > 0 {
		status = s
	}
	apiErr := &domain.APIError{
		Status:     status,
		StatusText: http.StatusText(status),
	}

	// PostgREST sends a string code, GoTrue a numeric one.
	var code string
	if err := json.Unmarshal(eb.Code, &code); err == nil {
		apiErr.Code = code
	} else if eb.ErrorCode != "" {
		apiErr.Code = eb.ErrorCode
	}

	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.ErrorName} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}

	if apiErr.Code == noRowsCode {
		return restAPIError(noRowsCode, apiErr.Message)
	}
	return apiErr
}
