package blogflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/npavkovic/blogflow/notify"
)

// Machine construction errors.
var (
	ErrStoreRequired    = errors.New("content store is required")
	ErrResearchRequired = errors.New("research provider is required")
	ErrDraftRequired    = errors.New("draft provider is required")
	ErrUnknownStage     = errors.New("unknown stage")
)

// FailurePolicy decides what happens to an item when its stage fails after
// the in-progress status has been persisted.
type FailurePolicy string

const (
	// PolicyError parks the item at StatusError with the failure message.
	// Recovery requires a manual status reset.
	PolicyError FailurePolicy = "error"

	// PolicyRetry rolls the item back to the stage's entry status so the
	// next cycle picks it up again automatically.
	PolicyRetry FailurePolicy = "retry"
)

// MachineConfig wires the machine's collaborators. Store, Research, and
// Draft are required; everything else has working defaults.
type MachineConfig struct {
	Store    Store
	Research ResearchProvider
	Draft    DraftProvider

	// Notifier receives pipeline events. Optional; events are best-effort
	// and never fail a run.
	Notifier notify.Notifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ResearchFailure is the failure policy for the research stage.
	// Defaults to PolicyError: research failures usually mean a bad topic
	// or credentials, so they park for inspection.
	ResearchFailure FailurePolicy

	// DraftFailure is the failure policy for the draft stage. Defaults to
	// PolicyRetry: draft failures are dominated by transient provider
	// errors and the research body is already safe in the store.
	DraftFailure FailurePolicy
}

// Machine drives one eligible ContentItem at a time through a pipeline
// stage, with crash-safe status bookkeeping: the in-progress status is
// persisted and confirmed before any provider call, so a crash mid-call is
// visible as a stuck in-progress item rather than silently lost work.
//
// Machine is not safe for concurrent invocations against the same store;
// the deployment model serializes invocations through the external trigger.
type Machine struct {
	store    Store
	research ResearchProvider
	draft    DraftProvider
	notifier notify.Notifier
	logger   *slog.Logger
	policies map[Stage]FailurePolicy
}

// NewMachine validates cfg and builds a Machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.Research == nil {
		return nil, ErrResearchRequired
	}
	if cfg.Draft == nil {
		return nil, ErrDraftRequired
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	researchPolicy := cfg.ResearchFailure
	if researchPolicy == "" {
		researchPolicy = PolicyError
	}
	draftPolicy := cfg.DraftFailure
	if draftPolicy == "" {
		draftPolicy = PolicyRetry
	}

	return &Machine{
		store:    cfg.Store,
		research: cfg.Research,
		draft:    cfg.Draft,
		notifier: cfg.Notifier,
		logger:   logger,
		policies: map[Stage]FailurePolicy{
			StageResearch: researchPolicy,
			StageDraft:    draftPolicy,
		},
	}, nil
}

// Options configures a single invocation.
type Options struct {
	// SingleItem processes at most one eligible item instead of all of them.
	SingleItem bool

	// DryRun validates eligible items and stops: no status mutation, no
	// provider call, no writes of any kind.
	DryRun bool
}

// Outcome classifies what happened to one item during a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// ItemResult records the outcome for one processed item.
type ItemResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Outcome Outcome `json:"outcome"`
	DraftID string  `json:"draftId,omitempty"` // set when a draft artifact was created
	Error   string  `json:"error,omitempty"`
}

// RunReport summarizes one invocation.
type RunReport struct {
	RunID    string        `json:"runId"`
	Stage    Stage         `json:"stage"`
	DryRun   bool          `json:"dryRun,omitempty"`
	Selected int           `json:"selected"`
	Items    []ItemResult  `json:"items,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Completed returns the number of items that finished the stage.
func (r *RunReport) Completed() int { return r.count(OutcomeCompleted) }

// Failed returns the number of items that hit the failure path.
func (r *RunReport) Failed() int { return r.count(OutcomeFailed) }

// Skipped returns the number of items skipped by validation.
func (r *RunReport) Skipped() int { return r.count(OutcomeSkipped) }

func (r *RunReport) count(o Outcome) int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome == o {
			n++
		}
	}
	return n
}

// Run selects the items whose status exactly equals the stage's entry status
// and drives each through the stage sequentially. Per-item failures are
// recorded on the item and in the report; they never abort the batch. The
// returned error covers only invocation-level problems (bad stage, store
// query failure).
func (m *Machine) Run(ctx context.Context, stage Stage, opts Options) (*RunReport, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	report := &RunReport{
		RunID:  newRunID(stage),
		Stage:  stage,
		DryRun: opts.DryRun,
	}
	start := time.Now()

	items, err := m.store.QueryByStatus(ctx, stage.EntryStatus())
	if err != nil {
		return nil, fmt.Errorf("query eligible items: %w", err)
	}
	if opts.SingleItem && len(items) > 1 {
		items = items[:1]
	}
	report.Selected = len(items)

	m.logger.Info("run started",
		"runId", report.RunID,
		"stage", stage,
		"selected", len(items),
		"dryRun", opts.DryRun,
	)
	m.emit(ctx, notify.Event{
		Type:    notify.EventRunStarted,
		RunID:   report.RunID,
		Stage:   string(stage),
		Message: fmt.Sprintf("%s run started: %d eligible", stage, len(items)),
	})

	for i := range items {
		result := m.runStage(ctx, stage, report.RunID, &items[i], opts)
		report.Items = append(report.Items, result)
	}

	report.Duration = time.Since(start)
	m.logger.Info("run finished",
		"runId", report.RunID,
		"stage", stage,
		"completed", report.Completed(),
		"skipped", report.Skipped(),
		"failed", report.Failed(),
		"duration", report.Duration,
	)
	return report, nil
}

// runStage drives one item through one stage. All failures after validation
// are caught here and recorded through the stage's failure policy.
func (m *Machine) runStage(ctx context.Context, stage Stage, runID string, item *ContentItem, opts Options) ItemResult {
	result := ItemResult{ID: item.ID, Title: item.Title}

	// Step 1: validation. A missing title is a skip, not an error; the item
	// is left untouched for a human to fix.
	if item.Title == "" {
		m.logger.Warn("skipping item without title", "runId", runID, "id", item.ID)
		result.Outcome = OutcomeSkipped
		return result
	}

	if opts.DryRun {
		m.logger.Info("dry run: item eligible", "runId", runID, "id", item.ID, "title", item.Title)
		result.Outcome = OutcomeSkipped
		return result
	}

	// Re-read the item so the stage works from the latest committed state.
	// Query results can omit or trail the body (the hosted-database store
	// returns page properties only), and the draft stage consumes it.
	fresh, err := m.store.Read(ctx, item.ID)
	if err != nil {
		return m.recordFailure(ctx, stage, runID, item, result, fmt.Errorf("refresh item: %w", err))
	}
	*item = *fresh

	// Step 2: persist the in-progress status before the provider call. The
	// write must be confirmed first so a crash mid-call leaves a visible
	// in-progress item.
	item.SetStatus(stage.InProgressStatus())
	if err := m.store.Write(ctx, item, WriteOptions{
		Message: fmt.Sprintf("%s started for %s", stageNoun(stage), item.Title),
	}); err != nil {
		return m.recordFailure(ctx, stage, runID, item, result, fmt.Errorf("mark in progress: %w", err))
	}

	// Step 3: companion checkpoint, best-effort.
	if stage == StageDraft {
		m.updateCompanion(ctx, runID, item, StatusDraftInProgress,
			fmt.Sprintf("Draft started for %s", item.Title))
	}

	// Steps 4-6.
	var draftID string
	switch stage {
	case StageResearch:
		err = m.completeResearch(ctx, item)
	case StageDraft:
		draftID, err = m.completeDraft(ctx, item)
	}
	if err != nil {
		if draftID != "" {
			// The draft artifact already exists; a retry would create a
			// second one. Park the brief no matter the configured policy.
			result.DraftID = draftID
			return m.recordFailureWith(ctx, stage, runID, item, result, err, PolicyError)
		}
		return m.recordFailure(ctx, stage, runID, item, result, err)
	}

	result.Outcome = OutcomeCompleted
	result.DraftID = draftID
	m.logger.Info("stage completed", "runId", runID, "stage", stage, "id", item.ID, "title", item.Title)
	m.emit(ctx, notify.Event{
		Type:    notify.EventItemCompleted,
		RunID:   runID,
		Stage:   string(stage),
		ItemID:  item.ID,
		Title:   item.Title,
		Message: fmt.Sprintf("%s complete for %s", stageNoun(stage), item.Title),
	})
	return result
}

// completeResearch runs the research provider and persists the merged body
// together with the success status as one write.
func (m *Machine) completeResearch(ctx context.Context, item *ContentItem) error {
	res, err := m.research.Research(ctx, item.Title)
	if err != nil {
		return fmt.Errorf("research provider: %w", err)
	}
	if err := res.Validate(); err != nil {
		return fmt.Errorf("research provider: %w", err)
	}

	item.Body = MergeResearch(item.Body, res)
	item.SetStatus(StageResearch.SuccessStatus())
	if err := m.store.Write(ctx, item, WriteOptions{
		Message: fmt.Sprintf("Research complete for %s", item.Title),
	}); err != nil {
		return fmt.Errorf("persist research: %w", err)
	}
	return nil
}

// completeDraft runs the draft provider, creates the draft artifact linked
// back to the source brief, advances the brief to its terminal status, and
// advances the upstream companion when one exists.
func (m *Machine) completeDraft(ctx context.Context, item *ContentItem) (string, error) {
	res, err := m.draft.Draft(ctx, item.Title, item.Body)
	if err != nil {
		return "", fmt.Errorf("draft provider: %w", err)
	}
	if err := res.Validate(); err != nil {
		return "", fmt.Errorf("draft provider: %w", err)
	}

	draft := &ContentItem{
		Title:     item.Title,
		Status:    StatusReadyForReview,
		Body:      res.Content,
		RelatedID: item.ID,
	}
	draftID, err := m.store.Create(ctx, "", draft)
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}

	item.SetStatus(StageDraft.SuccessStatus())
	if err := m.store.Write(ctx, item, WriteOptions{
		Message: fmt.Sprintf("Draft created for %s", item.Title),
	}); err != nil {
		return draftID, fmt.Errorf("persist processed status: %w", err)
	}

	m.updateCompanion(ctx, "", item, StatusDraftComplete,
		fmt.Sprintf("Draft created for %s", item.Title))

	m.emit(ctx, notify.Event{
		Type:    notify.EventDraftCreated,
		ItemID:  draftID,
		Title:   item.Title,
		Message: fmt.Sprintf("Draft ready for review: %s", item.Title),
		Metadata: map[string]any{
			"sourceId": item.ID,
		},
	})
	return draftID, nil
}

// recordFailure applies the stage's failure policy to the item (step 7).
// Store errors inside this path are logged and swallowed: the error path
// must not throw.
func (m *Machine) recordFailure(ctx context.Context, stage Stage, runID string, item *ContentItem, result ItemResult, cause error) ItemResult {
	return m.recordFailureWith(ctx, stage, runID, item, result, cause, m.policies[stage])
}

// recordFailureWith records the failure under an explicit policy.
func (m *Machine) recordFailureWith(ctx context.Context, stage Stage, runID string, item *ContentItem, result ItemResult, cause error, policy FailurePolicy) ItemResult {
	result.Outcome = OutcomeFailed
	result.Error = cause.Error()

	m.logger.Error("stage failed",
		"runId", runID,
		"stage", stage,
		"id", item.ID,
		"title", item.Title,
		"error", cause,
	)

	switch policy {
	case PolicyRetry:
		item.SetStatus(stage.EntryStatus())
		if err := m.store.Write(ctx, item, WriteOptions{
			Message: fmt.Sprintf("%s requeued for %s", stageNoun(stage), item.Title),
		}); err != nil {
			m.logger.Error("failed to requeue item", "runId", runID, "id", item.ID, "error", err)
		}
	default: // PolicyError
		item.SetError(cause)
		if err := m.store.Write(ctx, item, WriteOptions{
			Message: fmt.Sprintf("Error recorded for %s", item.Title),
		}); err != nil {
			m.logger.Error("failed to record error status", "runId", runID, "id", item.ID, "error", err)
		}
	}

	if stage == StageDraft {
		m.updateCompanionError(ctx, runID, item, cause)
	}

	m.emit(ctx, notify.Event{
		Type:     notify.EventItemFailed,
		RunID:    runID,
		Stage:    string(stage),
		ItemID:   item.ID,
		Title:    item.Title,
		Severity: notify.SeverityError,
		Message:  fmt.Sprintf("%s failed for %s: %v", stageNoun(stage), item.Title, cause),
	})
	return result
}

// updateCompanion advances the related item's status at a defined
// checkpoint. Best-effort: failures are logged and never abort the stage.
func (m *Machine) updateCompanion(ctx context.Context, runID string, item *ContentItem, status Status, message string) {
	if item.RelatedID == "" {
		return
	}

	companion, err := m.store.Read(ctx, item.RelatedID)
	if err != nil {
		m.logger.Warn("companion read failed", "runId", runID, "relatedId", item.RelatedID, "error", err)
		return
	}

	companion.SetStatus(status)
	if err := m.store.Write(ctx, companion, WriteOptions{Message: message}); err != nil {
		m.logger.Warn("companion update failed", "runId", runID, "relatedId", item.RelatedID, "error", err)
	}
}

// updateCompanionError leaves a best-effort error note on the companion.
func (m *Machine) updateCompanionError(ctx context.Context, runID string, item *ContentItem, cause error) {
	if item.RelatedID == "" {
		return
	}

	companion, err := m.store.Read(ctx, item.RelatedID)
	if err != nil {
		m.logger.Warn("companion read failed", "runId", runID, "relatedId", item.RelatedID, "error", err)
		return
	}

	companion.SetError(fmt.Errorf("draft failed for %s: %w", item.Title, cause))
	if err := m.store.Write(ctx, companion, WriteOptions{
		Message: fmt.Sprintf("Error noted for %s", companion.Title),
	}); err != nil {
		m.logger.Warn("companion error note failed", "runId", runID, "relatedId", item.RelatedID, "error", err)
	}
}

// emit sends a notification, best-effort.
func (m *Machine) emit(ctx context.Context, event notify.Event) {
	if m.notifier == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = notify.SeverityInfo
	}
	if err := m.notifier.Notify(ctx, event); err != nil {
		m.logger.Warn("notification failed", "eventType", event.Type, "error", err)
	}
}

// stageNoun returns the capitalized noun used in transition messages.
func stageNoun(stage Stage) string {
	if stage == StageDraft {
		return "Draft"
	}
	return "Research"
}

// newRunID creates a unique, sortable run identifier.
func newRunID(stage Stage) string {
	suffix, err := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 8)
	if err != nil {
		suffix = "00000000"
	}
	return fmt.Sprintf("%s-%s-%s", time.Now().Format("2006-01-02"), stage, suffix)
}
