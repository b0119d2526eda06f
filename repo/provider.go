package repo

import (
	"context"
	"errors"
)

// Provider errors.
var (
	// ErrFileNotFound indicates the path does not exist in the repository.
	ErrFileNotFound = errors.New("file not found in repository")
)

// File is a repository file's content at the configured branch.
type File struct {
	Path    string
	Content []byte
}

// Provider abstracts a repository hosting API's file operations.
type Provider interface {
	// GetFile fetches the file at path, or ErrFileNotFound.
	GetFile(ctx context.Context, path string) (*File, error)

	// ListFiles returns the paths of all files under dir, recursively.
	ListFiles(ctx context.Context, dir string) ([]string, error)

	// PutFile creates or updates the file at path in a single commit
	// with the given message.
	PutFile(ctx context.Context, path string, content []byte, message string) error
}

// IsFileNotFound reports whether the error indicates a missing file.
func IsFileNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}
