package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/npavkovic/blogflow"
)

// fileIDAlphabet generates the random suffix in new file names.
const fileIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// document is the JSON shape of a stored content item.
type document struct {
	Title        string `json:"title"`
	Status       string `json:"status"`
	Related      string `json:"related,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Body         string `json:"body,omitempty"`
}

// StoreConfig holds repo store configuration.
type StoreConfig struct {
	// Provider talks to the hosting API.
	Provider Provider

	// Dir is the directory scanned by QueryByStatus. Defaults to "content".
	Dir string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a content store backed by JSON documents in a hosted repository.
type Store struct {
	provider Provider
	dir      string
	logger   *slog.Logger
}

var _ blogflow.Store = (*Store)(nil)

// NewStore creates a repo-backed content store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("repo: provider is required")
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "content"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		provider: cfg.Provider,
		dir:      dir,
		logger:   logger,
	}, nil
}

// QueryByStatus lists the content directory and returns items with the
// given status.
func (s *Store) QueryByStatus(ctx context.Context, status blogflow.Status) ([]blogflow.ContentItem, error) {
	paths, err := s.provider.ListFiles(ctx, s.dir)
	if err != nil {
		return nil, err
	}

	var items []blogflow.ContentItem
	for _, p := range paths {
		if !strings.HasSuffix(p, ".json") {
			continue
		}

		item, readErr := s.Read(ctx, p)
		if readErr != nil {
			s.logger.Warn("skipping unreadable content document",
				"path", p, "error", readErr)
			continue
		}

		if item.Status == status {
			items = append(items, *item)
		}
	}

	return items, nil
}

// Read loads the document stored at the given path.
func (s *Store) Read(ctx context.Context, id string) (*blogflow.ContentItem, error) {
	file, err := s.provider.GetFile(ctx, id)
	if err != nil {
		if IsFileNotFound(err) {
			return nil, fmt.Errorf("%s: %w", id, blogflow.ErrNotFound)
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(file.Content, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}

	return &blogflow.ContentItem{
		ID:           id,
		Title:        doc.Title,
		Status:       blogflow.Status(doc.Status),
		Body:         doc.Body,
		RelatedID:    doc.Related,
		ErrorMessage: doc.ErrorMessage,
	}, nil
}

// Write saves the item as one commit through the hosting API.
func (s *Store) Write(ctx context.Context, item *blogflow.ContentItem, opts blogflow.WriteOptions) error {
	if item.ID == "" {
		return fmt.Errorf("repo: item ID is required")
	}

	data, err := marshalDocument(item)
	if err != nil {
		return err
	}

	message := opts.Message
	if message == "" {
		message = "Update " + item.ID
	}

	return s.provider.PutFile(ctx, item.ID, data, message)
}

// Create writes a new document into the given directory (default: the
// configured content directory) and returns its path.
func (s *Store) Create(ctx context.Context, parentID string, item *blogflow.ContentItem) (string, error) {
	dir := parentID
	if dir == "" {
		dir = s.dir
	}

	name, err := fileName(item.Title)
	if err != nil {
		return "", err
	}
	id := path.Join(dir, name)

	data, err := marshalDocument(item)
	if err != nil {
		return "", err
	}

	if err := s.provider.PutFile(ctx, id, data, "Create "+item.Title); err != nil {
		return "", err
	}
	return id, nil
}

func marshalDocument(item *blogflow.ContentItem) ([]byte, error) {
	doc := document{
		Title:        item.Title,
		Status:       string(item.Status),
		Related:      item.RelatedID,
		ErrorMessage: item.ErrorMessage,
		Body:         item.Body,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// fileName builds a slugged file name with a random suffix.
func fileName(title string) (string, error) {
	suffix, err := gonanoid.Generate(fileIDAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("generate file id: %w", err)
	}

	slug := slugify(title)
	if slug == "" {
		return suffix + ".json", nil
	}
	return slug + "-" + suffix + ".json", nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}
