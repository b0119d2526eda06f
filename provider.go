package blogflow

import (
	"context"
	"errors"
	"strings"
)

// Provider boundary errors.
var (
	// ErrEmptyResult indicates a provider returned no usable content.
	ErrEmptyResult = errors.New("provider returned empty content")
)

// ResearchResult is the validated output of a research provider.
type ResearchResult struct {
	// Content is the synthesized research prose.
	Content string

	// Citations are source references in provider order. They are rendered
	// into a numbered Sources section when merged into the item body.
	Citations []string
}

// Validate checks the result at the provider boundary.
func (r *ResearchResult) Validate() error {
	if r == nil || strings.TrimSpace(r.Content) == "" {
		return ErrEmptyResult
	}
	return nil
}

// DraftResult is the validated output of a draft provider.
type DraftResult struct {
	// Content is the long-form draft, as markdown.
	Content string
}

// Validate checks the result at the provider boundary.
func (r *DraftResult) Validate() error {
	if r == nil || strings.TrimSpace(r.Content) == "" {
		return ErrEmptyResult
	}
	return nil
}

// ResearchProvider turns a topic title into researched prose with citations.
// A call is a single blocking request; the provider does not retry beyond
// whatever its HTTP layer does for transient failures.
type ResearchProvider interface {
	Research(ctx context.Context, title string) (*ResearchResult, error)
}

// DraftProvider turns a title plus accumulated research into a long-form
// draft.
type DraftProvider interface {
	Draft(ctx context.Context, title, research string) (*DraftResult, error)
}
