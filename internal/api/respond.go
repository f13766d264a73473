package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	actorKey     = "actor"
	requestIDKey = "request_id"
)

// actorFrom returns the visitor resolved by identityMiddleware
func actorFrom(c *gin.Context) identity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(identity.Actor); ok {
			return actor
		}
	}
	return identity.AddressOnly(identity.ClientIP(c.Request))
}

// respondError maps a service failure to its status. Store failures are
// logged with their cause and reported generically.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case service.KindValidation:
			status, message = http.StatusBadRequest, svcErr.Message
		case service.KindNotFound:
			status, message = http.StatusNotFound, svcErr.Message
		case service.KindForbidden:
			status, message = http.StatusForbidden, svcErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(requestIDKey)).
			Str("actor", actorFrom(c).Key()).
			Msg("Request failed")
	}

	c.JSON(status, gin.H{"error": message})
}

// pathID parses a positive integer path parameter, answering 400 otherwise
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// queryID parses an optional id query parameter; ok is false when the
// value is present but malformed
func queryID(c *gin.Context, name string) (id int64, present, ok bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, false
	}
	return id, true, true
}
