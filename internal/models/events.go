package models

// Realtime event names
const (
	EventCommentCreated = "comment:created"
	EventCommentUpdated = "comment:updated"
	EventCommentDeleted = "comment:deleted"
	EventCommentLikes   = "comment:likes"
	EventBlogLikes      = "blog:likes"
)

// CommentCreatedEvent is emitted after a comment is stored
type CommentCreatedEvent struct {
	Comment *Comment `json:"comment"`
	Delta   int      `json:"delta"`
}

// CommentUpdatedEvent is emitted after a comment body changes
type CommentUpdatedEvent struct {
	Comment *Comment `json:"comment"`
}

// CommentDeletedEvent is emitted after a comment is removed
type CommentDeletedEvent struct {
	BlogID    int64 `json:"blog_id"`
	CommentID int64 `json:"comment_id"`
}

// CommentLikesEvent is emitted after a comment like toggle
type CommentLikesEvent struct {
	BlogID     int64 `json:"blog_id"`
	CommentID  int64 `json:"comment_id"`
	Delta      int   `json:"delta"`
	LikesCount int   `json:"likes_count"`
}

// BlogLikesEvent is emitted after a blog like toggle
type BlogLikesEvent struct {
	BlogID     int64 `json:"blog_id"`
	Delta      int   `json:"delta"`
	LikesCount int   `json:"likes_count"`
}
