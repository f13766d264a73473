package service

import (
	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/realtime"
	"github.com/rs/zerolog"
)

// emitter builds the event payloads for a blog's room
type emitter struct {
	broadcaster Broadcaster
	log         zerolog.Logger
}

func (e *emitter) emit(blogID int64, event string, payload interface{}) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Emit(realtime.BlogRoom(blogID), event, payload)
	e.log.Debug().Int64("blog_id", blogID).Str("event", event).Msg("Event dispatched")
}

func (e *emitter) commentCreated(c *models.Comment) {
	e.emit(c.BlogID, models.EventCommentCreated, models.CommentCreatedEvent{Comment: c, Delta: 1})
}

func (e *emitter) commentUpdated(c *models.Comment) {
	e.emit(c.BlogID, models.EventCommentUpdated, models.CommentUpdatedEvent{Comment: c})
}

func (e *emitter) commentDeleted(blogID, commentID int64) {
	e.emit(blogID, models.EventCommentDeleted, models.CommentDeletedEvent{BlogID: blogID, CommentID: commentID})
}

func (e *emitter) likes(blogID int64, commentID *int64, delta, count int) {
	if commentID != nil {
		e.emit(blogID, models.EventCommentLikes, models.CommentLikesEvent{
			BlogID:     blogID,
			CommentID:  *commentID,
			Delta:      delta,
			LikesCount: count,
		})
		return
	}
	e.emit(blogID, models.EventBlogLikes, models.BlogLikesEvent{
		BlogID:     blogID,
		Delta:      delta,
		LikesCount: count,
	})
}
