// Package models holds the persisted documents and the request/response
// payloads of the comments API.
package models

import "time"

// TimestampLayout is the fixed-width UTC layout used for every stored timestamp.
// Fixed width keeps lexicographic order equal to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CommentEntry is one comment owned by a UserDocument.
type CommentEntry struct {
	ID        string `json:"id"`
	ThreadID  string `json:"threadId"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// UserDocument is the single persisted record per username.
type UserDocument struct {
	Username  string         `json:"username"`
	CreatedAt string         `json:"createdAt"`
	Comments  []CommentEntry `json:"comments"`
}

// ThreadComment is a comment found by the thread aggregator, tagged with its author.
type ThreadComment struct {
	CommentEntry
	Username string `json:"username"`
}

// ThreadListing is the aggregated, createdAt-ordered view of one thread.
type ThreadListing struct {
	ThreadID string          `json:"threadId"`
	Comments []ThreadComment `json:"comments"`
	// Truncated is set when the scan cap stopped the scan before every user document was visited.
	Truncated bool `json:"truncated"`
}

type HealthResponse struct {
	OK bool   `json:"ok"`
	TS string `json:"ts"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
}

type CreateUserResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type UserExistsResponse struct {
	Username string `json:"username"`
	Exists   bool   `json:"exists"`
}

type MeResponse struct {
	Username string `json:"username"`
}

type PostCommentRequest struct {
	Text string `json:"text"`
}

type PostCommentResponse struct {
	OK      bool         `json:"ok"`
	Comment CommentEntry `json:"comment"`
}

type DeleteCommentResponse struct {
	OK      bool `json:"ok"`
	Deleted bool `json:"deleted"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeS3
	StorageTypeMemory
)
