package service

import (
	"context"

	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/repository"
	"github.com/rs/zerolog"
)

// Broadcaster fans an event out to a room. Implementations log and
// swallow their own failures.
type Broadcaster interface {
	Emit(room, event string, payload interface{})
}

// CommentService defines the comment operations
type CommentService interface {
	Create(ctx context.Context, blogID int64, actor identity.Actor, name, content string) (*models.Comment, error)
	Update(ctx context.Context, commentID int64, actor identity.Actor, content string) (*models.Comment, error)
	Delete(ctx context.Context, commentID int64, actor identity.Actor) error
	Get(ctx context.Context, commentID int64) (*models.Comment, error)
	List(ctx context.Context, filter models.CommentFilter) (*models.CommentPage, error)
	ListByBlog(ctx context.Context, blogID int64, filter models.CommentFilter) (*models.CommentPage, error)
	Stats(ctx context.Context, commentID int64) (*models.CommentStats, error)
}

// LikeService defines the reaction operations
type LikeService interface {
	// Toggle flips the actor's like on a blog, or on one of its comments
	// when commentID is set.
	Toggle(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.ToggleResult, error)
	ToggleComment(ctx context.Context, commentID int64, actor identity.Actor) (*models.ToggleResult, error)
	Status(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (bool, error)
	CommentStatus(ctx context.Context, commentID int64, actor identity.Actor) (bool, error)
	Mine(ctx context.Context, actor identity.Actor) (*models.MyLikes, error)
	CommentLikes(ctx context.Context, commentID int64, page, limit int) (*models.LikePage, error)
	Counters(ctx context.Context, blogID int64) (*models.Blog, error)
}

// Services holds all service interfaces
type Services struct {
	Comment CommentService
	Like    LikeService
}

// NewServices creates all services. A nil broadcaster disables realtime
// events without affecting mutations.
func NewServices(repos *repository.Repositories, broadcaster Broadcaster, log zerolog.Logger) *Services {
	events := &emitter{broadcaster: broadcaster, log: log.With().Str("service", "events").Logger()}

	return &Services{
		Comment: newCommentService(repos, events, log),
		Like:    newLikeService(repos, events, log),
	}
}
