package frontmatter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/npavkovic/blogflow"
	"github.com/npavkovic/blogflow/git"
)

// fileIDAlphabet generates the random suffix in new file names.
const fileIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Config holds frontmatter store configuration.
type Config struct {
	// RepoPath is the git repository holding the content files.
	RepoPath string

	// Dir is the directory scanned by QueryByStatus, relative to the
	// repository root. Defaults to "content".
	Dir string

	// AutoPush pushes to origin after every commit.
	AutoPush bool

	// Runner overrides git command execution. Used in tests.
	Runner git.CommandRunner

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a content store backed by markdown files in a git repository.
type Store struct {
	git      *git.Context
	repoPath string
	dir      string
	autoPush bool
	logger   *slog.Logger
}

var _ blogflow.Store = (*Store)(nil)

// New creates a frontmatter store for the given repository.
func New(cfg Config) (*Store, error) {
	if cfg.RepoPath == "" {
		return nil, fmt.Errorf("frontmatter: repo path is required")
	}

	var opts []git.Option
	if cfg.Runner != nil {
		opts = append(opts, git.WithRunner(cfg.Runner))
	}

	gitCtx, err := git.NewContext(cfg.RepoPath, opts...)
	if err != nil {
		return nil, err
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
		git:      gitCtx,
		repoPath: gitCtx.RepoPath(),
		dir:      dir,
		autoPush: cfg.AutoPush,
		logger:   logger,
	}, nil
}

// QueryByStatus scans the content directory for items with the given status.
// When AutoPush is set the working tree is refreshed from origin first, so
// status changes pushed from elsewhere are visible before selecting work.
func (s *Store) QueryByStatus(ctx context.Context, status blogflow.Status) ([]blogflow.ContentItem, error) {
	if s.autoPush {
		if err := s.pull(); err != nil {
			s.logger.Warn("pull failed, scanning local working tree", "error", err)
		}
	}

	root := filepath.Join(s.repoPath, s.dir)

	var items []blogflow.ContentItem
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, relErr := filepath.Rel(s.repoPath, path)
		if relErr != nil {
			return relErr
		}

		item, readErr := s.readFile(rel)
		if readErr != nil {
			s.logger.Warn("skipping unparsable content file",
				"path", rel, "error", readErr)
			return nil
		}

		if item.Status == status {
			items = append(items, *item)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", s.dir, err)
	}

	return items, nil
}

// Read loads the item stored at the given path.
func (s *Store) Read(_ context.Context, id string) (*blogflow.ContentItem, error) {
	return s.readFile(id)
}

// Write saves the item to its file and commits the change.
func (s *Store) Write(_ context.Context, item *blogflow.ContentItem, opts blogflow.WriteOptions) error {
	if item.ID == "" {
		return fmt.Errorf("frontmatter: item ID is required")
	}

	if err := s.writeFile(item.ID, item); err != nil {
		return err
	}

	return s.commit(git.ActionStatus, opts.Message, item.ID)
}

// Create writes a new item into the given directory (relative to the
// repository root) and commits it. Returns the new file path.
func (s *Store) Create(_ context.Context, parentID string, item *blogflow.ContentItem) (string, error) {
	dir := parentID
	if dir == "" {
		dir = s.dir
	}

	name, err := fileName(item.Title)
	if err != nil {
		return "", err
	}
	id := filepath.Join(dir, name)

	if err := os.MkdirAll(filepath.Join(s.repoPath, dir), 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	if err := s.writeFile(id, item); err != nil {
		return "", err
	}

	if err := s.commit(git.ActionCreate, "Create "+item.Title, id); err != nil {
		return "", err
	}

	return id, nil
}

func (s *Store) readFile(id string) (*blogflow.ContentItem, error) {
	path := filepath.Join(s.repoPath, id)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", id, blogflow.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	fm, body, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}

	item := &blogflow.ContentItem{
		ID:           id,
		Title:        fm.Title,
		Status:       blogflow.Status(fm.Status),
		Body:         body,
		RelatedID:    fm.Related,
		ErrorMessage: fm.ErrorMessage,
	}

	if info, statErr := os.Stat(path); statErr == nil {
		item.LastModified = info.ModTime()
	}

	return item, nil
}

func (s *Store) writeFile(id string, item *blogflow.ContentItem) error {
	fm := frontMatter{
		Title:        item.Title,
		Status:       string(item.Status),
		Related:      item.RelatedID,
		ErrorMessage: item.ErrorMessage,
	}

	data, err := renderDocument(fm, item.Body)
	if err != nil {
		return err
	}

	path := filepath.Join(s.repoPath, id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

// commit records the change. A write that produced no file change is not
// an error; the store treats it as an idempotent no-op.
func (s *Store) commit(action git.Action, subject, id string) error {
	if subject == "" {
		subject = "Update " + id
	}

	msg := git.NewCommitMessage(action, subject)
	if _, err := s.git.CommitFiles(msg.String(), id); err != nil {
		if errors.Is(err, git.ErrNothingToCommit) {
			return nil
		}
		return fmt.Errorf("commit %s: %w", id, err)
	}

	if s.autoPush {
		if _, err := s.git.PushCurrent(); err != nil {
			s.logger.Warn("push failed, commit is local only",
				"path", id, "error", err)
		}
	}

	return nil
}

// pull fast-forwards the current branch from origin.
func (s *Store) pull() error {
	branch, err := s.git.CurrentBranch()
	if err != nil {
		return err
	}
	return s.git.Pull("origin", branch)
}

// fileName builds a slugged file name with a random suffix.
func fileName(title string) (string, error) {
	suffix, err := gonanoid.Generate(fileIDAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("generate file id: %w", err)
	}

	slug := slugify(title)
	if slug == "" {
		return suffix + ".md", nil
	}
	return slug + "-" + suffix + ".md", nil
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
