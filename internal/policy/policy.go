// Package policy decides whether a caller may mutate a resource.
package policy

import (
	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
)

// Owned is implemented by every resource that has exactly one owning identity.
type Owned interface {
	Owner() models.ID
}

// IsAuthorized reports whether caller owns resource. Anonymous callers own nothing.
func IsAuthorized(caller models.ID, resource Owned) bool {
	if caller.IsZero() || resource == nil {
		return false
	}
	return resource.Owner().Equal(caller)
}

// RequireOwner fails with apperr.ErrForbidden unless caller owns resource.
func RequireOwner(caller models.ID, resource Owned, action string) error {
	if IsAuthorized(caller, resource) {
		return nil
	}
	return apperr.Forbidden("you are not allowed to %s", action)
}

// CommentDeletion authorizes removing a comment: the comment's author and the owner
// of the video it was left on may both delete it.
func CommentDeletion(caller models.ID, comment models.Comment, video models.Video) error {
	if IsAuthorized(caller, comment) || IsAuthorized(caller, video) {
		return nil
	}
	return apperr.Forbidden("you are not allowed to delete this comment")
}
