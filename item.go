package blogflow

import "time"

// =============================================================================
// Status Vocabulary
// =============================================================================

// Status is the pipeline stage of a ContentItem. The string values are matched
// verbatim against the backing store (Notion select options, frontmatter
// fields), so the exact spelling is part of the contract.
type Status string

// Pipeline statuses.
const (
	// StatusReadyForResearch marks a topic waiting for the research stage.
	StatusReadyForResearch Status = "Ready for Research"

	// StatusResearchInProgress marks an item the research stage is actively
	// working on. Persisted before the research provider is called.
	StatusResearchInProgress Status = "Research In Progress"

	// StatusReadyForDraft marks a researched item waiting for the draft stage.
	StatusReadyForDraft Status = "Ready for Draft"

	// StatusDraftInProgress marks an item the draft stage is actively working
	// on. Persisted before the draft provider is called.
	StatusDraftInProgress Status = "Draft In Progress"

	// StatusReadyForReview marks a finished draft awaiting human review.
	StatusReadyForReview Status = "Ready for Review"

	// StatusResearchProcessed marks a research brief whose draft has been
	// created. Terminal for the brief.
	StatusResearchProcessed Status = "Research Processed"

	// StatusDraftComplete marks an upstream topic whose draft exists.
	// Terminal for the topic.
	StatusDraftComplete Status = "Draft Complete"

	// StatusError parks an item after a failure until it is manually reset.
	StatusError Status = "Error"
)

// Valid reports whether s is a known pipeline status.
func (s Status) Valid() bool {
	switch s {
	case StatusReadyForResearch, StatusResearchInProgress,
		StatusReadyForDraft, StatusDraftInProgress,
		StatusReadyForReview, StatusResearchProcessed,
		StatusDraftComplete, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is an end state the machine never selects from.
func (s Status) Terminal() bool {
	switch s {
	case StatusReadyForReview, StatusResearchProcessed, StatusDraftComplete:
		return true
	}
	return false
}

// =============================================================================
// Stages
// =============================================================================

// Stage identifies one pass of the pipeline.
type Stage string

// Pipeline stages.
const (
	StageResearch Stage = "research"
	StageDraft    Stage = "draft"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s == StageResearch || s == StageDraft
}

// EntryStatus returns the status that makes an item eligible for the stage.
func (s Stage) EntryStatus() Status {
	if s == StageDraft {
		return StatusReadyForDraft
	}
	return StatusReadyForResearch
}

// InProgressStatus returns the status persisted before the stage's provider
// call begins.
func (s Stage) InProgressStatus() Status {
	if s == StageDraft {
		return StatusDraftInProgress
	}
	return StatusResearchInProgress
}

// SuccessStatus returns the status of the processed item after the stage
// completes. For the draft stage this applies to the source brief; the new
// draft artifact itself is created with StatusReadyForReview.
func (s Stage) SuccessStatus() Status {
	if s == StageDraft {
		return StatusResearchProcessed
	}
	return StatusReadyForDraft
}

// =============================================================================
// ContentItem
// =============================================================================

// ContentItem is the unit of work moving through the pipeline. The ID is
// opaque to the machine: a Notion page ID, a file path, or a repository path,
// depending on the Store backend.
type ContentItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       Status    `json:"status"`
	Body         string    `json:"body,omitempty"`
	RelatedID    string    `json:"relatedId,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	LastModified time.Time `json:"lastModified,omitempty"`
}

// SetError parks the item at StatusError with the failure message.
func (i *ContentItem) SetError(err error) {
	i.Status = StatusError
	if err != nil {
		i.ErrorMessage = err.Error()
	}
}

// SetStatus moves the item to status and clears any stale error message,
// preserving the invariant that ErrorMessage is set only at StatusError.
func (i *ContentItem) SetStatus(status Status) {
	i.Status = status
	if status != StatusError {
		i.ErrorMessage = ""
	}
}

// HasError reports whether the item is parked at StatusError.
func (i *ContentItem) HasError() bool {
	return i.Status == StatusError
}
