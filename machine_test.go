package blogflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/npavkovic/blogflow/notify"
)

// fakeStore is an in-memory Store that records every write in order.
type fakeStore struct {
	items   map[string]*ContentItem
	writes  []ContentItem
	creates []ContentItem

	writeErr   error
	writeErrOn Status // when set, writeErr applies only to writes of this status
	createErr  error
	queryErr   error

	// queryOmitsBody mimics stores whose queries return metadata only.
	queryOmitsBody bool
}

func newFakeStore(items ...*ContentItem) *fakeStore {
	s := &fakeStore{items: make(map[string]*ContentItem)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeStore) QueryByStatus(_ context.Context, status Status) ([]ContentItem, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var matched []ContentItem
	for _, item := range s.items {
		if item.Status == status {
			copied := *item
			if s.queryOmitsBody {
				copied.Body = ""
			}
			matched = append(matched, copied)
		}
	}
	return matched, nil
}

func (s *fakeStore) Read(_ context.Context, id string) (*ContentItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *fakeStore) Write(_ context.Context, item *ContentItem, _ WriteOptions) error {
	if s.writeErr != nil && (s.writeErrOn == "" || item.Status == s.writeErrOn) {
		return s.writeErr
	}
	copied := *item
	s.writes = append(s.writes, copied)
	s.items[item.ID] = &copied
	return nil
}

func (s *fakeStore) Create(_ context.Context, _ string, item *ContentItem) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	copied := *item
	copied.ID = "draft-1"
	s.creates = append(s.creates, copied)
	s.items[copied.ID] = &copied
	return copied.ID, nil
}

func testMachine(t *testing.T, cfg MachineConfig) *Machine {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Research == nil {
		cfg.Research = &MockResearcher{}
	}
	if cfg.Draft == nil {
		cfg.Draft = &MockDrafter{}
	}
	m, err := NewMachine(cfg)
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	return m
}

func TestNewMachineValidation(t *testing.T) {
	store := newFakeStore()
	research := &MockResearcher{}
	draft := &MockDrafter{}

	tests := []struct {
		name    string
		cfg     MachineConfig
		wantErr error
	}{
		{name: "missing store", cfg: MachineConfig{Research: research, Draft: draft}, wantErr: ErrStoreRequired},
		{name: "missing research", cfg: MachineConfig{Store: store, Draft: draft}, wantErr: ErrResearchRequired},
		{name: "missing draft", cfg: MachineConfig{Store: store, Research: research}, wantErr: ErrDraftRequired},
		{name: "complete", cfg: MachineConfig{Store: store, Research: research, Draft: draft}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMachine(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewMachine() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunUnknownStage(t *testing.T) {
	m := testMachine(t, MachineConfig{Store: newFakeStore()})

	_, err := m.Run(context.Background(), Stage("publish"), Options{})
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("Run() error = %v, want ErrUnknownStage", err)
	}
}

func TestRunQueryError(t *testing.T) {
	store := newFakeStore()
	store.queryErr = errors.New("store offline")
	m := testMachine(t, MachineConfig{Store: store})

	if _, err := m.Run(context.Background(), StageResearch, Options{}); err == nil {
		t.Error("Run() error = nil, want query error")
	}
}

func TestResearchStageHappyPath(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForResearch,
	})

	var providerCalled bool
	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, title string) (*ResearchResult, error) {
			providerCalled = true
			// The in-progress status must already be persisted.
			if got := store.items["brief-1"].Status; got != StatusResearchInProgress {
				t.Errorf("status at provider call = %q, want %q", got, StatusResearchInProgress)
			}
			return &ResearchResult{
				Content:   "## Findings\n\nEmbeddings need indexes.",
				Citations: []string{"https://example.com/hnsw"},
			}, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !providerCalled {
		t.Fatal("research provider was never called")
	}
	if report.Completed() != 1 || report.Failed() != 0 {
		t.Errorf("completed = %d, failed = %d, want 1 and 0", report.Completed(), report.Failed())
	}

	final := store.items["brief-1"]
	if final.Status != StatusReadyForDraft {
		t.Errorf("final status = %q, want %q", final.Status, StatusReadyForDraft)
	}
	if !strings.Contains(final.Body, "Embeddings need indexes.") {
		t.Errorf("body missing findings: %q", final.Body)
	}
	if !strings.Contains(final.Body, "## Sources\n1. https://example.com/hnsw") {
		t.Errorf("body missing sources section: %q", final.Body)
	}

	// Exactly two writes: in-progress, then findings with success status.
	if len(store.writes) != 2 {
		t.Fatalf("got %d writes, want 2", len(store.writes))
	}
	if store.writes[0].Status != StatusResearchInProgress {
		t.Errorf("first write status = %q, want %q", store.writes[0].Status, StatusResearchInProgress)
	}
}

func TestDraftStageHappyPath(t *testing.T) {
	store := newFakeStore(
		&ContentItem{
			ID:        "brief-1",
			Title:     "Vector Databases",
			Status:    StatusReadyForDraft,
			Body:      "## Findings\n\nEmbeddings need indexes.",
			RelatedID: "topic-1",
		},
		&ContentItem{
			ID:     "topic-1",
			Title:  "Vector Databases",
			Status: StatusResearchInProgress,
		},
	)

	draft := &MockDrafter{
		DraftFunc: func(_ context.Context, title, research string) (*DraftResult, error) {
			if !strings.Contains(research, "Embeddings need indexes.") {
				t.Errorf("draft provider got research %q, want the brief body", research)
			}
			return &DraftResult{Content: "# Vector Databases\n\nThe article."}, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Draft: draft})
	report, err := m.Run(context.Background(), StageDraft, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Completed() != 1 {
		t.Fatalf("completed = %d, want 1", report.Completed())
	}
	if report.Items[0].DraftID != "draft-1" {
		t.Errorf("DraftID = %q, want draft-1", report.Items[0].DraftID)
	}

	// The new draft artifact links back to its source brief.
	if len(store.creates) != 1 {
		t.Fatalf("got %d creates, want 1", len(store.creates))
	}
	created := store.creates[0]
	if created.Status != StatusReadyForReview {
		t.Errorf("draft status = %q, want %q", created.Status, StatusReadyForReview)
	}
	if created.RelatedID != "brief-1" {
		t.Errorf("draft RelatedID = %q, want brief-1", created.RelatedID)
	}

	if got := store.items["brief-1"].Status; got != StatusResearchProcessed {
		t.Errorf("brief status = %q, want %q", got, StatusResearchProcessed)
	}
	// The upstream topic advances to its terminal status.
	if got := store.items["topic-1"].Status; got != StatusDraftComplete {
		t.Errorf("topic status = %q, want %q", got, StatusDraftComplete)
	}
}

func TestDraftStageReadsBodyBeforeProvider(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForDraft,
		Body:   "Embeddings need indexes.",
	})
	store.queryOmitsBody = true

	draft := &MockDrafter{
		DraftFunc: func(_ context.Context, _, research string) (*DraftResult, error) {
			if research != "Embeddings need indexes." {
				t.Errorf("draft provider research = %q, want the stored body", research)
			}
			return &DraftResult{Content: "The article."}, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Draft: draft})
	report, err := m.Run(context.Background(), StageDraft, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Completed() != 1 {
		t.Errorf("completed = %d, want 1", report.Completed())
	}
}

func TestResearchFailureParksItem(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForResearch,
	})
	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, _ string) (*ResearchResult, error) {
			return nil, errors.New("perplexity unavailable")
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Failed() != 1 {
		t.Errorf("failed = %d, want 1", report.Failed())
	}

	final := store.items["brief-1"]
	if final.Status != StatusError {
		t.Errorf("final status = %q, want %q", final.Status, StatusError)
	}
	if !strings.Contains(final.ErrorMessage, "perplexity unavailable") {
		t.Errorf("ErrorMessage = %q, want provider error", final.ErrorMessage)
	}
}

func TestDraftFailureRequeuesItem(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForDraft,
		Body:   "## Findings\n\nResearch.",
	})
	draft := &MockDrafter{
		DraftFunc: func(_ context.Context, _, _ string) (*DraftResult, error) {
			return nil, errors.New("claude overloaded")
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Draft: draft})
	report, err := m.Run(context.Background(), StageDraft, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Failed() != 1 {
		t.Errorf("failed = %d, want 1", report.Failed())
	}

	// PolicyRetry rolls back to the entry status for the next cycle.
	final := store.items["brief-1"]
	if final.Status != StatusReadyForDraft {
		t.Errorf("final status = %q, want %q", final.Status, StatusReadyForDraft)
	}
	if final.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty after requeue", final.ErrorMessage)
	}
	// The research body survives the failed draft.
	if !strings.Contains(final.Body, "Research.") {
		t.Errorf("body lost on requeue: %q", final.Body)
	}
}

func TestDraftFailureWithErrorPolicy(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForDraft,
	})
	draft := &MockDrafter{
		DraftFunc: func(_ context.Context, _, _ string) (*DraftResult, error) {
			return nil, errors.New("bad prompt")
		},
	}

	m := testMachine(t, MachineConfig{
		Store:        store,
		Draft:        draft,
		DraftFailure: PolicyError,
	})
	if _, err := m.Run(context.Background(), StageDraft, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := store.items["brief-1"].Status; got != StatusError {
		t.Errorf("final status = %q, want %q", got, StatusError)
	}
}

func TestDraftPostCreateWriteFailureParksItem(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForDraft,
		Body:   "## Findings\n\nResearch.",
	})
	store.writeErr = errors.New("store write refused")
	store.writeErrOn = StatusResearchProcessed

	m := testMachine(t, MachineConfig{Store: store})
	report, err := m.Run(context.Background(), StageDraft, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Failed() != 1 {
		t.Errorf("failed = %d, want 1", report.Failed())
	}
	if len(store.creates) != 1 {
		t.Fatalf("got %d creates, want 1", len(store.creates))
	}
	// The report still points at the artifact that was created.
	if report.Items[0].DraftID != "draft-1" {
		t.Errorf("DraftID = %q, want draft-1", report.Items[0].DraftID)
	}

	// The brief parks at Error even under the default retry policy: a
	// requeue would produce a second draft next cycle.
	final := store.items["brief-1"]
	if final.Status != StatusError {
		t.Errorf("final status = %q, want %q", final.Status, StatusError)
	}
	if !strings.Contains(final.ErrorMessage, "persist processed status") {
		t.Errorf("ErrorMessage = %q, want the failed write", final.ErrorMessage)
	}
}

func TestEmptyProviderResultFails(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForResearch,
	})
	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, _ string) (*ResearchResult, error) {
			return &ResearchResult{Content: "   "}, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Failed() != 1 {
		t.Errorf("failed = %d, want 1", report.Failed())
	}
	if !strings.Contains(report.Items[0].Error, "empty content") {
		t.Errorf("error = %q, want empty content error", report.Items[0].Error)
	}
}

func TestMissingTitleSkipsItem(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Status: StatusReadyForResearch,
	})
	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, _ string) (*ResearchResult, error) {
			t.Error("provider called for item without title")
			return nil, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Skipped() != 1 {
		t.Errorf("skipped = %d, want 1", report.Skipped())
	}
	if len(store.writes) != 0 {
		t.Errorf("got %d writes, want 0 (skipped items stay untouched)", len(store.writes))
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForResearch,
	})
	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, _ string) (*ResearchResult, error) {
			t.Error("provider called during dry run")
			return nil, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !report.DryRun {
		t.Error("report.DryRun = false, want true")
	}
	if report.Selected != 1 {
		t.Errorf("selected = %d, want 1", report.Selected)
	}
	if len(store.writes) != 0 || len(store.creates) != 0 {
		t.Error("dry run performed store writes")
	}
}

func TestSingleItemProcessesOne(t *testing.T) {
	store := newFakeStore(
		&ContentItem{ID: "brief-1", Title: "One", Status: StatusReadyForResearch},
		&ContentItem{ID: "brief-2", Title: "Two", Status: StatusReadyForResearch},
	)

	calls := 0
	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, title string) (*ResearchResult, error) {
			calls++
			return &ResearchResult{Content: "findings for " + title}, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{SingleItem: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
	if report.Selected != 1 {
		t.Errorf("selected = %d, want 1", report.Selected)
	}
}

func TestInProgressWriteFailureAbortsProviderCall(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForResearch,
	})
	store.writeErr = errors.New("store write refused")

	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, _ string) (*ResearchResult, error) {
			t.Error("provider called after in-progress write failed")
			return nil, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Failed() != 1 {
		t.Errorf("failed = %d, want 1", report.Failed())
	}
	if !strings.Contains(report.Items[0].Error, "mark in progress") {
		t.Errorf("error = %q, want in-progress write failure", report.Items[0].Error)
	}
}

func TestPerItemFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore(
		&ContentItem{ID: "brief-1", Title: "Fails", Status: StatusReadyForResearch},
		&ContentItem{ID: "brief-2", Title: "Succeeds", Status: StatusReadyForResearch},
	)

	research := &MockResearcher{
		ResearchFunc: func(_ context.Context, title string) (*ResearchResult, error) {
			if title == "Fails" {
				return nil, errors.New("boom")
			}
			return &ResearchResult{Content: "findings"}, nil
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Research: research})
	report, err := m.Run(context.Background(), StageResearch, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Completed() != 1 || report.Failed() != 1 {
		t.Errorf("completed = %d, failed = %d, want 1 and 1", report.Completed(), report.Failed())
	}
}

func TestDraftFailureNotesCompanion(t *testing.T) {
	store := newFakeStore(
		&ContentItem{
			ID:        "brief-1",
			Title:     "Vector Databases",
			Status:    StatusReadyForDraft,
			RelatedID: "topic-1",
		},
		&ContentItem{ID: "topic-1", Title: "Vector Databases", Status: StatusResearchInProgress},
	)
	draft := &MockDrafter{
		DraftFunc: func(_ context.Context, _, _ string) (*DraftResult, error) {
			return nil, errors.New("claude overloaded")
		},
	}

	m := testMachine(t, MachineConfig{Store: store, Draft: draft})
	if _, err := m.Run(context.Background(), StageDraft, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	companion := store.items["topic-1"]
	if companion.Status != StatusError {
		t.Errorf("companion status = %q, want %q", companion.Status, StatusError)
	}
	if !strings.Contains(companion.ErrorMessage, "claude overloaded") {
		t.Errorf("companion ErrorMessage = %q, want the draft failure", companion.ErrorMessage)
	}
}

func TestMissingCompanionIsBestEffort(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:        "brief-1",
		Title:     "Vector Databases",
		Status:    StatusReadyForDraft,
		RelatedID: "topic-gone",
	})

	m := testMachine(t, MachineConfig{Store: store})
	report, err := m.Run(context.Background(), StageDraft, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The brief still completes even though its companion is missing.
	if report.Completed() != 1 {
		t.Errorf("completed = %d, want 1", report.Completed())
	}
	if got := store.items["brief-1"].Status; got != StatusResearchProcessed {
		t.Errorf("brief status = %q, want %q", got, StatusResearchProcessed)
	}
}

// captureNotifier records events for assertions.
type captureNotifier struct {
	events []notify.Event
}

func (c *captureNotifier) Notify(_ context.Context, event notify.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestRunEmitsNotifications(t *testing.T) {
	store := newFakeStore(&ContentItem{
		ID:     "brief-1",
		Title:  "Vector Databases",
		Status: StatusReadyForDraft,
		Body:   "Findings.",
	})
	captured := &captureNotifier{}

	m := testMachine(t, MachineConfig{Store: store, Notifier: captured})
	if _, err := m.Run(context.Background(), StageDraft, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var types []notify.EventType
	for _, event := range captured.events {
		types = append(types, event.Type)
	}

	for _, want := range []notify.EventType{
		notify.EventRunStarted,
		notify.EventDraftCreated,
		notify.EventItemCompleted,
	} {
		found := false
		for _, got := range types {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing event %q, got %v", want, types)
		}
	}
}
