package notion

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/npavkovic/blogflow"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		Token:      "secret_test",
		DatabaseID: "db-briefs",
		BaseURL:    server.URL,
		BatchDelay: 1 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Token: "t", DatabaseID: "d"}, false},
		{"missing token", Config{DatabaseID: "d"}, true},
		{"missing database", Config{Token: "t"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueryByStatus(t *testing.T) {
	var gotFilter queryRequest
	var gotAuth, gotVersion string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/databases/db-briefs/query" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/v1/databases/db-briefs/query")
		}
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		_ = json.NewDecoder(r.Body).Decode(&gotFilter)

		_ = json.NewEncoder(w).Encode(queryResponse{
			Results: []page{
				{
					ID: "page-1",
					Properties: map[string]propertyValue{
						"Name":   {Title: []richText{{PlainText: "AI in Healthcare"}}},
						"Status": {Status: &selectOption{Name: "Ready for Research"}},
					},
				},
			},
		})
	}))

	items, err := client.QueryByStatus(context.Background(), blogflow.StatusReadyForResearch)
	if err != nil {
		t.Fatalf("QueryByStatus failed: %v", err)
	}

	if gotAuth != "Bearer secret_test" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret_test")
	}
	if gotVersion != apiVersion {
		t.Errorf("Notion-Version = %q, want %q", gotVersion, apiVersion)
	}
	if gotFilter.Filter == nil || gotFilter.Filter.Status == nil {
		t.Fatal("expected status filter in request")
	}
	if gotFilter.Filter.Status.Equals != "Ready for Research" {
		t.Errorf("filter equals = %q, want %q", gotFilter.Filter.Status.Equals, "Ready for Research")
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ID != "page-1" {
		t.Errorf("ID = %q, want %q", items[0].ID, "page-1")
	}
	if items[0].Title != "AI in Healthcare" {
		t.Errorf("Title = %q, want %q", items[0].Title, "AI in Healthcare")
	}
	if items[0].Status != blogflow.StatusReadyForResearch {
		t.Errorf("Status = %q, want %q", items[0].Status, blogflow.StatusReadyForResearch)
	}
}

func TestQueryByStatus_Pagination(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req queryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if calls == 1 {
			if req.StartCursor != "" {
				t.Errorf("first call cursor = %q, want empty", req.StartCursor)
			}
			_ = json.NewEncoder(w).Encode(queryResponse{
				Results:    []page{{ID: "page-1"}},
				HasMore:    true,
				NextCursor: "cursor-2",
			})
			return
		}

		if req.StartCursor != "cursor-2" {
			t.Errorf("second call cursor = %q, want %q", req.StartCursor, "cursor-2")
		}
		_ = json.NewEncoder(w).Encode(queryResponse{
			Results: []page{{ID: "page-2"}},
		})
	}))

	items, err := client.QueryByStatus(context.Background(), blogflow.StatusReadyForDraft)
	if err != nil {
		t.Fatalf("QueryByStatus failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("got %d calls, want 2", calls)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[1].ID != "page-2" {
		t.Errorf("second item ID = %q, want %q", items[1].ID, "page-2")
	}
}

func TestRead(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/pages/page-1":
			_ = json.NewEncoder(w).Encode(page{
				ID: "page-1",
				Properties: map[string]propertyValue{
					"Name":          {Title: []richText{{PlainText: "My Topic"}}},
					"Status":        {Select: &selectOption{Name: "Ready for Draft"}},
					"Error Message": {RichText: []richText{}},
				},
			})
		case "/v1/blocks/page-1/children":
			_ = json.NewEncoder(w).Encode(blockChildrenResponse{
				Results: []block{
					textBlock("heading_2", "Overview"),
					textBlock("paragraph", "Research findings."),
				},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	item, err := client.Read(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if item.Title != "My Topic" {
		t.Errorf("Title = %q, want %q", item.Title, "My Topic")
	}
	if item.Status != blogflow.StatusReadyForDraft {
		t.Errorf("Status = %q, want %q", item.Status, blogflow.StatusReadyForDraft)
	}
	want := "## Overview\n\nResearch findings."
	if item.Body != want {
		t.Errorf("Body = %q, want %q", item.Body, want)
	}
}

func TestRead_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found"})
	}))

	_, err := client.Read(context.Background(), "missing")
	if !blogflow.IsNotFound(err) {
		t.Errorf("got error %v, want not found", err)
	}
}

func TestWrite(t *testing.T) {
	var gotUpdate updatePageRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q, want PATCH", r.Method)
		}
		if r.URL.Path != "/v1/pages/page-1" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/v1/pages/page-1")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotUpdate)
		_ = json.NewEncoder(w).Encode(page{ID: "page-1"})
	}))

	item := blogflow.ContentItem{
		ID:           "page-1",
		Status:       blogflow.StatusError,
		ErrorMessage: "provider timed out",
	}
	err := client.Write(context.Background(), &item, blogflow.WriteOptions{})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	status := gotUpdate.Properties["Status"]
	if status.Status == nil || status.Status.Name != "Error" {
		t.Errorf("status property = %+v, want Error", status)
	}
	errProp := gotUpdate.Properties["Error Message"]
	if plainText(errProp.RichText) != "provider timed out" {
		t.Errorf("error message = %q, want %q", plainText(errProp.RichText), "provider timed out")
	}
}

func TestWrite_AppendsNewBody(t *testing.T) {
	var appendCalls [][]block
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/pages/page-1" && r.Method == http.MethodPatch:
			_ = json.NewEncoder(w).Encode(page{ID: "page-1"})
		case r.URL.Path == "/v1/blocks/page-1/children" && r.Method == http.MethodPatch:
			var req appendChildrenRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			appendCalls = append(appendCalls, req.Children)
			_ = json.NewEncoder(w).Encode(blockChildrenResponse{})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	item := blogflow.ContentItem{
		ID:     "page-1",
		Status: blogflow.StatusReadyForDraft,
		Body:   "New research findings.",
	}
	err := client.Write(context.Background(), &item, blogflow.WriteOptions{})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(appendCalls) != 1 {
		t.Fatalf("got %d append calls, want 1", len(appendCalls))
	}
	if len(appendCalls[0]) != 1 {
		t.Fatalf("got %d blocks, want 1", len(appendCalls[0]))
	}
	got := plainText(appendCalls[0][0].Paragraph.RichText)
	if got != "New research findings." {
		t.Errorf("block text = %q, want %q", got, "New research findings.")
	}
}

func TestWrite_AppendsBodyBeforeStatus(t *testing.T) {
	var order []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/blocks/page-1/children" && r.Method == http.MethodPatch:
			order = append(order, "append")
			_ = json.NewEncoder(w).Encode(blockChildrenResponse{})
		case r.URL.Path == "/v1/pages/page-1" && r.Method == http.MethodPatch:
			order = append(order, "status")
			_ = json.NewEncoder(w).Encode(page{ID: "page-1"})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	item := blogflow.ContentItem{
		ID:     "page-1",
		Status: blogflow.StatusReadyForDraft,
		Body:   "New research findings.",
	}
	if err := client.Write(context.Background(), &item, blogflow.WriteOptions{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(order) != 2 || order[0] != "append" || order[1] != "status" {
		t.Errorf("request order = %v, want [append status]", order)
	}
}

func TestWrite_FailedAppendLeavesStatusUntouched(t *testing.T) {
	var statusPatches int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/blocks/page-1/children":
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid block"})
		case r.URL.Path == "/v1/pages/page-1":
			statusPatches++
			_ = json.NewEncoder(w).Encode(page{ID: "page-1"})
		}
	}))

	item := blogflow.ContentItem{
		ID:     "page-1",
		Status: blogflow.StatusReadyForDraft,
		Body:   "New research findings.",
	}
	err := client.Write(context.Background(), &item, blogflow.WriteOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if statusPatches != 0 {
		t.Errorf("got %d status patches, want 0 (page keeps its previous status)", statusPatches)
	}
}

func TestWrite_BatchesLargeBodies(t *testing.T) {
	var batchSizes []int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/pages/") && r.Method == http.MethodPatch:
			_ = json.NewEncoder(w).Encode(page{ID: "page-1"})
		case r.Method == http.MethodPatch:
			var req appendChildrenRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			batchSizes = append(batchSizes, len(req.Children))
			_ = json.NewEncoder(w).Encode(blockChildrenResponse{})
		}
	}))

	// 150 paragraphs exceed the 100-block append limit.
	paragraphs := make([]string, 150)
	for i := range paragraphs {
		paragraphs[i] = "Paragraph content."
	}
	item := blogflow.ContentItem{
		ID:     "page-1",
		Status: blogflow.StatusReadyForDraft,
		Body:   strings.Join(paragraphs, "\n\n"),
	}

	err := client.Write(context.Background(), &item, blogflow.WriteOptions{})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(batchSizes) != 2 {
		t.Fatalf("got %d batches, want 2", len(batchSizes))
	}
	if batchSizes[0] != 100 {
		t.Errorf("first batch = %d blocks, want 100", batchSizes[0])
	}
	if batchSizes[1] != 50 {
		t.Errorf("second batch = %d blocks, want 50", batchSizes[1])
	}
}

func TestCreate(t *testing.T) {
	var gotCreate createPageRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/pages" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/v1/pages")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotCreate)
		_ = json.NewEncoder(w).Encode(page{ID: "page-new"})
	}))

	item := blogflow.ContentItem{
		Title:     "My Topic",
		Status:    blogflow.StatusReadyForReview,
		Body:      "Draft content.",
		RelatedID: "page-brief",
	}
	id, err := client.Create(context.Background(), "db-drafts", &item)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if id != "page-new" {
		t.Errorf("id = %q, want %q", id, "page-new")
	}
	if gotCreate.Parent.DatabaseID != "db-drafts" {
		t.Errorf("parent = %q, want %q", gotCreate.Parent.DatabaseID, "db-drafts")
	}
	title := gotCreate.Properties["Name"]
	if plainText(title.Title) != "My Topic" {
		t.Errorf("title = %q, want %q", plainText(title.Title), "My Topic")
	}
	related := gotCreate.Properties["Related"]
	if len(related.Relation) != 1 || related.Relation[0].ID != "page-brief" {
		t.Errorf("relation = %+v, want page-brief", related.Relation)
	}
	if len(gotCreate.Children) != 1 {
		t.Errorf("got %d children, want 1", len(gotCreate.Children))
	}
}

func TestCreate_DefaultsToDraftsDatabase(t *testing.T) {
	var gotCreate createPageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotCreate)
		_ = json.NewEncoder(w).Encode(page{ID: "page-new"})
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{
		Token:            "secret_test",
		DatabaseID:       "db-briefs",
		DraftsDatabaseID: "db-drafts",
		BaseURL:          server.URL,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	item := blogflow.ContentItem{
		Title:  "My Topic",
		Status: blogflow.StatusReadyForReview,
	}
	if _, err := client.Create(context.Background(), "", &item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if gotCreate.Parent.DatabaseID != "db-drafts" {
		t.Errorf("parent = %q, want %q", gotCreate.Parent.DatabaseID, "db-drafts")
	}
}

func TestDraftRunUsesPageBody(t *testing.T) {
	briefProps := map[string]propertyValue{
		"Name":   {Title: []richText{{PlainText: "Embeddings"}}},
		"Status": {Status: &selectOption{Name: "Ready for Draft"}},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/databases/db-briefs/query":
			_ = json.NewEncoder(w).Encode(queryResponse{
				Results: []page{{ID: "page-brief", Properties: briefProps}},
			})
		case r.URL.Path == "/v1/pages/page-brief" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(page{ID: "page-brief", Properties: briefProps})
		case r.URL.Path == "/v1/blocks/page-brief/children" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(blockChildrenResponse{
				Results: []block{textBlock("paragraph", "Embeddings need indexes.")},
			})
		case r.URL.Path == "/v1/pages/page-brief" && r.Method == http.MethodPatch:
			_ = json.NewEncoder(w).Encode(page{ID: "page-brief"})
		case r.URL.Path == "/v1/pages" && r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(page{ID: "page-draft"})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	var gotResearch string
	m, err := blogflow.NewMachine(blogflow.MachineConfig{
		Store:    client,
		Research: &blogflow.MockResearcher{},
		Draft: &blogflow.MockDrafter{
			DraftFunc: func(_ context.Context, _, research string) (*blogflow.DraftResult, error) {
				gotResearch = research
				return &blogflow.DraftResult{Content: "The article."}, nil
			},
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}

	report, err := m.Run(context.Background(), blogflow.StageDraft, blogflow.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Completed() != 1 {
		t.Fatalf("completed = %d, want 1 (%+v)", report.Completed(), report.Items)
	}

	// The query returns page properties only; the run must still hand the
	// page's block content to the draft provider.
	if gotResearch != "Embeddings need indexes." {
		t.Errorf("draft provider research = %q, want the page body", gotResearch)
	}
}

func TestMarkdownToBlocks(t *testing.T) {
	body := "# Title\n\nSome paragraph.\n\n## Sources\n1. First source\n2. Second source\n\n- bullet"

	blocks := markdownToBlocks(body)
	if len(blocks) != 6 {
		t.Fatalf("got %d blocks, want 6", len(blocks))
	}

	wantTypes := []string{
		"heading_1", "paragraph", "heading_2",
		"numbered_list_item", "numbered_list_item", "bulleted_list_item",
	}
	for i, want := range wantTypes {
		if blocks[i].Type != want {
			t.Errorf("block %d type = %q, want %q", i, blocks[i].Type, want)
		}
	}
}

func TestBlocksToMarkdown_RoundTrip(t *testing.T) {
	body := "# Title\n\nSome paragraph.\n\n## Sources\n\n1. First source\n\n2. Second source"

	got := blocksToMarkdown(markdownToBlocks(body))
	if got != body {
		t.Errorf("round trip = %q, want %q", got, body)
	}
}

func TestNewRichText_SplitsLongContent(t *testing.T) {
	content := strings.Repeat("a", maxRichTextLen+500)

	parts := newRichText(content)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if len(parts[0].Text.Content) != maxRichTextLen {
		t.Errorf("first part length = %d, want %d", len(parts[0].Text.Content), maxRichTextLen)
	}
	if len(parts[1].Text.Content) != 500 {
		t.Errorf("second part length = %d, want 500", len(parts[1].Text.Content))
	}
}
