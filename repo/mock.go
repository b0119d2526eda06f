package repo

import "context"

// MockProvider is a func-field mock for Provider. Unset funcs return
// zero values.
type MockProvider struct {
	GetFileFunc   func(ctx context.Context, path string) (*File, error)
	ListFilesFunc func(ctx context.Context, dir string) ([]string, error)
	PutFileFunc   func(ctx context.Context, path string, content []byte, message string) error
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) GetFile(ctx context.Context, path string) (*File, error) {
	if m.GetFileFunc != nil {
		return m.GetFileFunc(ctx, path)
	}
	return nil, ErrFileNotFound
}

func (m *MockProvider) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if m.ListFilesFunc != nil {
		return m.ListFilesFunc(ctx, dir)
	}
	return nil, nil
}

func (m *MockProvider) PutFile(ctx context.Context, path string, content []byte, message string) error {
	if m.PutFileFunc != nil {
		return m.PutFileFunc(ctx, path, content, message)
	}
	return nil
}
