package blogflow

import "context"

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	QueryByStatusFunc func(ctx context.Context, status Status) ([]ContentItem, error)
	ReadFunc          func(ctx context.Context, id string) (*ContentItem, error)
	WriteFunc         func(ctx context.Context, item *ContentItem, opts WriteOptions) error
	CreateFunc        func(ctx context.Context, parentID string, item *ContentItem) (string, error)
}

// QueryByStatus implements Store.
func (m *MockStore) QueryByStatus(ctx context.Context, status Status) ([]ContentItem, error) {
	if m.QueryByStatusFunc != nil {
		return m.QueryByStatusFunc(ctx, status)
	}
	return nil, nil
}

// Read implements Store.
func (m *MockStore) Read(ctx context.Context, id string) (*ContentItem, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, id)
	}
	return nil, ErrNotFound
}

// Write implements Store.
func (m *MockStore) Write(ctx context.Context, item *ContentItem, opts WriteOptions) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, item, opts)
	}
	return nil
}

// Create implements Store.
func (m *MockStore) Create(ctx context.Context, parentID string, item *ContentItem) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, parentID, item)
	}
	return "mock-id", nil
}

// MockResearcher is a mock implementation of ResearchProvider for testing.
type MockResearcher struct {
	ResearchFunc func(ctx context.Context, title string) (*ResearchResult, error)
}

// Research implements ResearchProvider.
func (m *MockResearcher) Research(ctx context.Context, title string) (*ResearchResult, error) {
	if m.ResearchFunc != nil {
		return m.ResearchFunc(ctx, title)
	}
	return &ResearchResult{Content: "mock research for " + title}, nil
}

// MockDrafter is a mock implementation of DraftProvider for testing.
type MockDrafter struct {
	DraftFunc func(ctx context.Context, title, research string) (*DraftResult, error)
}

// Draft implements DraftProvider.
func (m *MockDrafter) Draft(ctx context.Context, title, research string) (*DraftResult, error) {
	if m.DraftFunc != nil {
		return m.DraftFunc(ctx, title, research)
	}
	return &DraftResult{Content: "mock draft for " + title}, nil
}
