package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field limits for comment submissions
const (
	MaxContentLength = 5000
	MaxNameLength    = 100
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string { return e.Message }

// ValidateNewComment validates a comment submission. Anonymous authors
// must supply a display name; registered authors use their account name.
func ValidateNewComment(blogID int64, anonymous bool, name, content string) []ValidationError {
	var errors []ValidationError

	// Validate blog reference
	if blogID <= 0 {
		errors = append(errors, ValidationError{Field: "blog_id", Message: "Blog ID is required"})
	}

	errors = append(errors, validateContent(content)...)

	// Registered authors take their account name, so their input is not checked
	if !anonymous {
		return errors
	}
	name = strings.TrimSpace(name)
	if name == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "Name is required for anonymous comments"})
	} else if !ValidName(name) {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("Name must be at most %d characters", MaxNameLength),
		})
	}

	return errors
}

// ValidName reports whether a display name fits the stored column
func ValidName(name string) bool {
	return utf8.RuneCountInString(name) <= MaxNameLength
}

// ValidateCommentEdit validates a replacement comment body
func ValidateCommentEdit(content string) []ValidationError {
	return validateContent(content)
}

func validateContent(content string) []ValidationError {
	content = strings.TrimSpace(content)
	if content == "" {
		return []ValidationError{{Field: "content", Message: "Content is required"}}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return []ValidationError{{
			Field:   "content",
			Message: fmt.Sprintf("Content must be at most %d characters", MaxContentLength),
		}}
	}
	return nil
}

// ValidateLikeTarget validates the blog and optional comment a like points at
func ValidateLikeTarget(blogID int64, commentID *int64) []ValidationError {
	var errors []ValidationError

	if blogID <= 0 {
		errors = append(errors, ValidationError{Field: "blog_id", Message: "blog_id is required"})
	}
	if commentID != nil && *commentID <= 0 {
		errors = append(errors, ValidationError{
			Field:   "comment_id",
			Message: "comment_id must be a positive integer",
			Value:   *commentID,
		})
	}

	return errors
}
