package models

// Blog carries the denormalized counters the interaction layer maintains.
// Everything else about a blog post belongs to the content API.
type Blog struct {
	ID            int64  `json:"blog_id" db:"id"`
	Title         string `json:"title,omitempty" db:"title"`
	Slug          string `json:"slug,omitempty" db:"slug"`
	LikesCount    int    `json:"likes_count" db:"likes_count"`
	CommentsCount int    `json:"comments_count" db:"comments_count"`
}
