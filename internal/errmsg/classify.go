// Package errmsg turns failures from the remote data service into short
// user-facing messages.
package errmsg

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Message is what the UI shows for a failure.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Context selects the wording used for a failure.
type Context int

const (
	Generic Context = iota
	Signup
	Login
	Logout
	FetchPosts
)

func (c Context) String() string {
	switch c {
	case Signup:
		return "Signup"
	case Login:
		return "Login"
	case Logout:
		return "Logout"
	case FetchPosts:
		return "Fetch posts"
	default:
		return "Generic"
	}
}

var (
	reNetwork       = regexp.MustCompile(`failed to fetch|network error`)
	reAlreadyExists = regexp.MustCompile(`user already registered|already exists|email.*in use`)
	reWeakPassword  = regexp.MustCompile(`password.*(weak|short|invalid)|at least 6`)
	reBadLogin      = regexp.MustCompile(`invalid login credentials|user not found`)
	reUnconfirmed   = regexp.MustCompile(`email not confirmed|confirm your email`)
	reSession       = regexp.MustCompile(`session|token|expired`)
	reNotAuthed     = regexp.MustCompile(`not authenticated|invalid api key`)
)

// Classify maps v to a message. v may be nil, a string, an error (usually a
// *domain.APIError) or anything else. It never panics.
func Classify(c Context, v any) Message {
	switch c {
	case Signup:
		return signup(v)
	case Login:
		return login(v)
	case Logout:
		return logout(v)
	case FetchPosts:
		return fetchPosts(v)
	default:
		return generic(v)
	}
}

func generic(v any) Message {
	fallback := Message{
		Title:       "Something went wrong",
		Description: "An unexpected error occurred. Please try again.",
	}

	var err error
	switch x := v.(type) {
	case nil:
		return fallback
	case string:
		return Message{Title: "Error", Description: x}
	case error:
		err = x
	default:
		return fallback
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		if apiErr.Message != "" && apiErr.Code != "" {
			return byCode(apiErr)
		}
		if apiErr.Status != 0 {
			return byStatus(apiErr)
		}
	}

	message := strings.ToLower(messageOf(err))
	switch {
	case isTransport(err) || strings.Contains(message, "failed to fetch"):
		return Message{
			Title:       "Network Error",
			Description: "Please check your internet connection and try again.",
		}
	case strings.Contains(message, "network"):
		return Message{
			Title:       "Network Error",
			Description: "We couldn’t reach the server. Try again later.",
		}
	case strings.Contains(message, "duplicate key"):
		return Message{
			Title:       "Duplicate Entry",
			Description: "This item already exists",
		}
	}
	return fallback
}

func byCode(e *domain.APIError) Message {
	switch e.Code {
	case domain.CodeUniqueViolation:
		return Message{"Duplicate Entry", "A record with this value already exists."}
	case domain.CodePermissionDenied:
		return Message{"Permission Denied", "You don’t have permission to perform this action."}
	case domain.CodeBadRequest:
		return Message{"Invalid Request", e.Message}
	case domain.CodeUnauthorized:
		return Message{"Unauthorized", "Your session may have expired. Please log in again."}
	case domain.CodeNotFound:
		return Message{"Not Found", "The requested resource could not be found."}
	case domain.CodeServerError:
		return Message{"Server Error", "We’re having trouble on our end. Please try again later."}
	default:
		return Message{"Error", e.Message}
	}
}

func byStatus(e *domain.APIError) Message {
	switch e.Status {
	case 400:
		return Message{"Invalid Request", "Please check your inputs and try again."}
	case 401:
		return Message{"Unauthorized", "Your session has expired. Please log in again."}
	case 403:
		return Message{"Forbidden", "You don’t have permission to perform this action."}
	case 404:
		return Message{"Not Found", "The requested item could not be found."}
	case 409:
		return Message{"Conflict", "This item already exists."}
	case 429:
		return Message{"Too Many Requests", "You’re doing that too often. Please slow down."}
	case 500:
		return Message{"Server Error", "Our servers are having trouble. Please try again later."}
	default:
		description := e.StatusText
		if description == "" {
			description = "An error occurred with the request."
		}
		return Message{fmt.Sprintf("Error %d", e.Status), description}
	}
}

func signup(v any) Message {
	err, raw, ok := asError(v)
	if !ok {
		return Message{"Signup failed", "Something went wrong. Please try again."}
	}
	message := strings.ToLower(raw)

	switch {
	case reAlreadyExists.MatchString(message):
		return Message{"Email already in use", "An account with this email already exists. Try logging in instead."}
	case reWeakPassword.MatchString(message):
		return Message{"Weak password", "Password must be at least 6 characters long."}
	case strings.Contains(message, "signup disabled"):
		return Message{"Signup disabled", "Email/password signups are disabled for this project."}
	case isTransport(err) || reNetwork.MatchString(message):
		return Message{"Network error", "We couldn’t connect. Please check your internet and try again."}
	}
	return Message{"Signup failed", orDefault(raw, "Something went wrong. Please try again.")}
}

func login(v any) Message {
	err, raw, _ := asError(v)
	message := strings.ToLower(raw)

	switch {
	case reBadLogin.MatchString(message):
		return Message{"Invalid credentials", "Email or password is incorrect."}
	case reUnconfirmed.MatchString(message):
		return Message{"Email not confirmed", "Check your inbox and confirm your account before logging in."}
	case isTransport(err) || reNetwork.MatchString(message):
		return Message{"Network error", "Please check your connection and try again."}
	case strings.Contains(message, "rate limit"):
		return Message{"Too many attempts", "Please wait a few moments and try again."}
	}
	return Message{"Login failed", orDefault(raw, "Something went wrong. Please try again.")}
}

func logout(v any) Message {
	err, raw, _ := asError(v)
	message := strings.ToLower(raw)

	switch {
	case isTransport(err) || reNetwork.MatchString(message):
		return Message{"Network error", "We couldn’t connect. Please check your internet and try again."}
	case reSession.MatchString(message):
		return Message{"Session expired", "Your session has already ended. Please log in again."}
	case reNotAuthed.MatchString(message):
		return Message{"Logout failed", "Authentication error. Please refresh and try again."}
	}
	return Message{"Logout failed", orDefault(raw, "Something went wrong. Please try again.")}
}

func fetchPosts(v any) Message {
	err, raw, _ := asError(v)
	if isTransport(err) || reNetwork.MatchString(strings.ToLower(raw)) {
		return Message{"Network error", "We couldn't connect. Please check your internet connection and try again."}
	}
	return Message{"An error occured.", "Please reload the page."}
}

// asError extracts the error and its raw message from v. ok is false for nil
// and for values that are neither errors nor strings.
func asError(v any) (err error, message string, ok bool) {
	switch x := v.(type) {
	case error:
		if x == nil {
			return nil, "", false
		}
		return x, messageOf(x), true
	case string:
		return nil, x, true
	default:
		return nil, "", false
	}
}

func messageOf(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// isTransport reports whether err is a failure to reach the backend at all.
func isTransport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
