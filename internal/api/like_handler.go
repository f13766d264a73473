package api

import (
	"net/http"

	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LikeHandler handles reaction endpoints
type LikeHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(services *service.Services, log zerolog.Logger) *LikeHandler {
	return &LikeHandler{
		services: services,
		log:      log.With().Str("handler", "like").Logger(),
	}
}

type toggleLikeRequest struct {
	BlogID    int64  `json:"blog_id"`
	CommentID *int64 `json:"comment_id"`
}

func toggleResponse(result *models.ToggleResult) gin.H {
	return gin.H{
		"message":     result.Message(),
		"liked":       result.Liked,
		"likes_count": result.LikesCount,
	}
}

// Toggle handles POST /api/likes
func (h *LikeHandler) Toggle(c *gin.Context) {
	var req toggleLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.services.Like.Toggle(c.Request.Context(), req.BlogID, req.CommentID, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toggleResponse(result))
}

// ToggleComment handles POST /api/comments/:commentId/like
func (h *LikeHandler) ToggleComment(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	result, err := h.services.Like.ToggleComment(c.Request.Context(), commentID, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toggleResponse(result))
}

// Status handles GET /api/likes/status?blog_id=&comment_id=
func (h *LikeHandler) Status(c *gin.Context) {
	blogID, present, ok := queryID(c, "blog_id")
	if !ok || !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blog_id is required"})
		return
	}
	var commentID *int64
	if id, present, ok := queryID(c, "comment_id"); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment_id"})
		return
	} else if present {
		commentID = &id
	}

	liked, err := h.services.Like.Status(c.Request.Context(), blogID, commentID, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// CommentStatus handles GET /api/comments/:commentId/like/status
func (h *LikeHandler) CommentStatus(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	actor := actorFrom(c)
	liked, err := h.services.Like.CommentStatus(c.Request.Context(), commentID, actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var (
		userID      interface{}
		anonymousID interface{}
	)
	if id, ok := actor.UserID(); ok {
		userID = id
	}
	if id, ok := actor.AnonymousID(); ok {
		anonymousID = id
	}

	c.JSON(http.StatusOK, gin.H{
		"liked":        liked,
		"comment_id":   commentID,
		"user_id":      userID,
		"anonymous_id": anonymousID,
		"is_anonymous": actor.IsAnonymous(),
	})
}

// Mine handles GET /api/likes/mine
func (h *LikeHandler) Mine(c *gin.Context) {
	likes, err := h.services.Like.Mine(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, likes)
}

// CommentLikes handles GET /api/comments/:commentId/likes
func (h *LikeHandler) CommentLikes(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	page, err := h.services.Like.CommentLikes(c.Request.Context(), commentID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Counters handles GET /api/blogs/:blogId/counters
func (h *LikeHandler) Counters(c *gin.Context) {
	blogID, ok := pathID(c, "blogId")
	if !ok {
		return
	}

	blog, err := h.services.Like.Counters(c.Request.Context(), blogID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blog_id":        blog.ID,
		"likes_count":    blog.LikesCount,
		"comments_count": blog.CommentsCount,
	})
}
