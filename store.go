package blogflow

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound indicates the identifier does not resolve to a ContentItem.
	ErrNotFound = errors.New("content item not found")
)

// IsNotFound reports whether the error indicates a missing content item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// WriteOptions carries metadata for a Store write.
type WriteOptions struct {
	// Message is a human-readable description of the transition (e.g.
	// "Research complete for <title>"). Version-controlled backends use it
	// as the commit message, making the history double as a transition log.
	// Hosted backends may ignore it.
	Message string
}

// Store is the uniform read/query/write surface over a content backend.
// Implementations exist for Notion databases (notion), markdown files with
// frontmatter over a git working tree (frontmatter), and JSON documents
// committed through a hosting API (repo).
type Store interface {
	// QueryByStatus returns the items currently in status, in store order.
	// Results must reflect the latest committed write.
	QueryByStatus(ctx context.Context, status Status) ([]ContentItem, error)

	// Read returns the item with the given ID, or ErrNotFound.
	Read(ctx context.Context, id string) (*ContentItem, error)

	// Write persists the item's status, body, and error fields as a single
	// atomic update. A half-applied write (new status, stale body) is a
	// contract violation.
	Write(ctx context.Context, item *ContentItem, opts WriteOptions) error

	// Create persists a new item and returns its ID. The item's RelatedID
	// carries the link back to its source. An empty parentID places the
	// item in the store's configured draft destination; a non-empty one
	// overrides it (a database ID, a directory, depending on the backend).
	Create(ctx context.Context, parentID string, item *ContentItem) (string, error)
}
