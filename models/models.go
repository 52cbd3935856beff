package models

import (
	"time"
)

// Platform is the constant platform label written to every output row.
const Platform = "Reddit"

// Post represents a selected Reddit submission
type Post struct {
	ID         string    `json:"id"`
	SelfText   string    `json:"selftext"`
	CreatedUTC float64   `json:"created_utc"`
	CreatedAt  time.Time `json:"created_at"`
	Score      int       `json:"score"`
}

// CommentNode is one node of a post's reply tree as the API hands it
// over: the comment itself plus its ordered direct replies.
type CommentNode struct {
	ID         string        `json:"id"`
	Body       string        `json:"body"`
	CreatedUTC float64       `json:"created_utc"`
	CreatedAt  time.Time     `json:"created_at"`
	Replies    []CommentNode `json:"replies,omitempty"`
}

// FlatComment is one comment lifted out of its reply tree. ParentID is
// the structural parent: the owning post's ID for a root comment, the
// parent comment's ID for a nested reply.
type FlatComment struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	ParentID  string    `json:"parent_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is the structural classification of a flattened comment.
type Role string

const (
	// RoleComment marks a direct reply to a post.
	RoleComment Role = "COMMENT"
	// RoleReply marks a reply to another comment.
	RoleReply Role = "REPLY"
)

// ClassifiedComment is a FlatComment with its resolved role.
type ClassifiedComment struct {
	FlatComment
	Role Role `json:"role"`
}

// EnrichedComment is a classified comment with the body text of its
// immediate parent attached: the owning post's body for a COMMENT, the
// parent comment's body for a REPLY, empty when the parent is gone.
type EnrichedComment struct {
	ClassifiedComment
	ParentBody string `json:"parent_body"`
}

// Record is the unified output row. Every field is an always-present
// string so downstream consumers never have to handle null markers.
type Record struct {
	Platform          string `json:"platform"`
	Entity            string `json:"entity"`
	Date              string `json:"date"`
	Type              string `json:"type"`
	ID                string `json:"id"`
	Description       string `json:"description"`
	ParentDescription string `json:"parent_description"`
}
