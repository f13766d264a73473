package models

import (
	"time"
)

// Comment represents a visitor comment on a blog post.
// Exactly one of UserID, AnonymousID or IPAddress identifies the author,
// picked in that order of precedence.
type Comment struct {
	ID          int64        `json:"id" db:"id"`
	BlogID      int64        `json:"blog_id" db:"blog_id"`
	UserID      *int64       `json:"user_id" db:"user_id"`
	AnonymousID *string      `json:"anonymous_id" db:"anonymous_id"`
	IPAddress   string       `json:"ip_address,omitempty" db:"ip_address"`
	Name        string       `json:"name" db:"name"`
	Content     string       `json:"content" db:"content"`
	LikesCount  int          `json:"likes_count" db:"likes_count"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	IsAnonymous bool         `json:"is_anonymous" db:"-"`
	UserInfo    *CommentUser `json:"user_info,omitempty" db:"-"`
}

// CommentUser is the registered author attached to a comment listing
type CommentUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CommentStats is the read-only projection served by the stats endpoint
type CommentStats struct {
	CommentID           int64     `json:"comment_id"`
	LikesCount          int       `json:"likes_count"`
	TotalLikes          int       `json:"total_likes"`
	TotalCommentsInBlog int       `json:"total_comments_in_blog"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CommentFilter narrows comment listings
type CommentFilter struct {
	BlogID int64
	UserID int64
	Sort   string
	Order  string
	Page   int
	Limit  int
}

// SortableCommentColumns whitelists the columns a listing may be ordered by
var SortableCommentColumns = map[string]bool{
	"id":           true,
	"blog_id":      true,
	"user_id":      true,
	"anonymous_id": true,
	"ip_address":   true,
	"name":         true,
	"content":      true,
	"likes_count":  true,
	"created_at":   true,
	"updated_at":   true,
}

// Normalize fills defaults and replaces anything outside the whitelists
func (f *CommentFilter) Normalize() {
	if !SortableCommentColumns[f.Sort] {
		f.Sort = "created_at"
	}
	if f.Order != "ASC" && f.Order != "DESC" {
		f.Order = "DESC"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

// Offset returns the row offset for the current page
func (f *CommentFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// MaxPageSize caps listing page sizes
const MaxPageSize = 100

// CommentPage is one page of a comment listing
type CommentPage struct {
	Comments   []*Comment `json:"comments"`
	Pagination Pagination `json:"pagination"`
}
