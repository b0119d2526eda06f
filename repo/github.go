package repo

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubProvider implements Provider for GitHub repositories.
type GitHubProvider struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubProvider creates a new GitHub provider.
// token is a personal access token or GitHub App token.
// branch defaults to "main".
func NewGitHubProvider(token, owner, repo, branch string) (*GitHubProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	if branch == "" {
		branch = "main"
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	client := github.NewClient(tc)

	return &GitHubProvider{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: branch,
	}, nil
}

// GetFile fetches a file's content from the configured branch.
func (p *GitHubProvider) GetFile(ctx context.Context, path string) (*File, error) {
	opts := &github.RepositoryContentGetOptions{Ref: p.branch}

	fileContent, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &File{Path: path, Content: []byte(content)}, nil
}

// ListFiles returns paths of all files under dir, recursively.
func (p *GitHubProvider) ListFiles(ctx context.Context, dir string) ([]string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: p.branch}

	_, dirContent, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, dir, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range dirContent {
		switch entry.GetType() {
		case "file":
			paths = append(paths, entry.GetPath())
		case "dir":
			sub, subErr := p.ListFiles(ctx, entry.GetPath())
			if subErr != nil {
				return nil, subErr
			}
			paths = append(paths, sub...)
		}
	}
	return paths, nil
}

// PutFile creates or updates a file in a single commit.
func (p *GitHubProvider) PutFile(ctx context.Context, path string, content []byte, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(p.branch),
	}

	// Updates need the current blob SHA; a missing file means create.
	getOpts := &github.RepositoryContentGetOptions{Ref: p.branch}
	existing, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, path, getOpts)
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		if _, _, updateErr := p.client.Repositories.UpdateFile(ctx, p.owner, p.repo, path, opts); updateErr != nil {
			return fmt.Errorf("update %s: %w", path, updateErr)
		}
		return nil
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		if _, _, createErr := p.client.Repositories.CreateFile(ctx, p.owner, p.repo, path, opts); createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}
		return nil
	default:
		return fmt.Errorf("stat %s: %w", path, err)
	}
}
