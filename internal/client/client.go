// Package client is a Go client for the comments HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status int
	// Code is the error field of the envelope, or "http_<status>" when the
	// body carried none.
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("comments api: %d %s", e.Status, e.Code)
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	http  *resty.Client
	token string
}

// Option customizes Client.
type Option func(*Client)

// WithToken authenticates requests that need a bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient routes requests through httpClient, e.g. an httptest server's client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(httpClient).SetBaseURL(c.http.BaseURL)
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		http: resty.New().SetBaseURL(baseURL),
	}
	for _, option := range options {
		option(c)
	}
	c.http.
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	return c
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) request(ctx context.Context, authenticated bool) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&models.ErrorResponse{})
	if authenticated && c.token != "" {
		req.SetAuthToken(c.token)
	}
	return req
}

func asError(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	code := fmt.Sprintf("http_%d", resp.StatusCode())
	if envelope, ok := resp.Error().(*models.ErrorResponse); ok && envelope.Error != "" {
		code = envelope.Error
	}
	return &APIError{Status: resp.StatusCode(), Code: code}
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var result models.HealthResponse
	resp, err := c.request(ctx, false).SetResult(&result).Get("/health")
	if err := asError(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates username (or logs into it) and keeps the returned token
// for later calls.
func (c *Client) Register(ctx context.Context, username string) (*models.CreateUserResponse, error) {
	var result models.CreateUserResponse
	resp, err := c.request(ctx, false).
		SetBody(models.CreateUserRequest{Username: username}).
		SetResult(&result).
		Post("/users")
	if err := asError(resp, err); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

func (c *Client) UserExists(ctx context.Context, username string) (*models.UserExistsResponse, error) {
	var result models.UserExistsResponse
	resp, err := c.request(ctx, false).
		SetResult(&result).
		Get("/users/" + url.PathEscape(username))
	if err := asError(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Me(ctx context.Context) (*models.MeResponse, error) {
	var result models.MeResponse
	resp, err := c.request(ctx, true).SetResult(&result).Get("/me")
	if err := asError(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

func threadPath(threadID string) string {
	return "/threads/" + url.PathEscape(threadID) + "/comments"
}

func (c *Client) ListComments(ctx context.Context, threadID string) (*models.ThreadListing, error) {
	var result models.ThreadListing
	resp, err := c.request(ctx, false).SetResult(&result).Get(threadPath(threadID))
	if err := asError(resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PostComment(ctx context.Context, threadID, text string) (*models.CommentEntry, error) {
	var result models.PostCommentResponse
	resp, err := c.request(ctx, true).
		SetBody(models.PostCommentRequest{Text: text}).
		SetResult(&result).
		Post(threadPath(threadID))
	if err := asError(resp, err); err != nil {
		return nil, err
	}
	return &result.Comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, threadID, commentID string) (bool, error) {
	var result models.DeleteCommentResponse
	resp, err := c.request(ctx, true).
		SetResult(&result).
		Delete(threadPath(threadID) + "/" + url.PathEscape(commentID))
	if err := asError(resp, err); err != nil {
		return false, err
	}
	return result.Deleted, nil
}
