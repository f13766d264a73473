package models

import (
	"time"
)

// Like is a single reaction of one actor on a blog or on one of its comments.
// CommentID is nil for a blog-level like.
type Like struct {
	ID          int64     `json:"id" db:"id"`
	BlogID      int64     `json:"blog_id" db:"blog_id"`
	CommentID   *int64    `json:"comment_id" db:"comment_id"`
	UserID      *int64    `json:"user_id" db:"user_id"`
	AnonymousID *string   `json:"anonymous_id,omitempty" db:"anonymous_id"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UserInfo    *LikeUser `json:"user_info" db:"-"`
}

// LikeUser is the registered liker attached to a like listing
type LikeUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LikedComment identifies one comment an actor has liked
type LikedComment struct {
	BlogID    int64 `json:"blog_id"`
	CommentID int64 `json:"comment_id"`
}

// MyLikes lists everything an actor currently likes
type MyLikes struct {
	LikedBlogs    []int64        `json:"likedBlogs"`
	LikedComments []LikedComment `json:"likedComments"`
}

// ToggleResult reports the outcome of a like toggle together with the
// counter value read back after the write
type ToggleResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// Message returns the human readable outcome
func (r ToggleResult) Message() string {
	if r.Liked {
		return "Liked"
	}
	return "Unliked"
}

// Pagination describes a page of a listing
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page metadata
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// LikePage is one page of a comment's like records
type LikePage struct {
	Likes      []*Like    `json:"likes"`
	Pagination Pagination `json:"pagination"`
}
