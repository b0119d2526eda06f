package repo

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/xanzy/go-gitlab"
)

// GitLabProvider implements Provider for GitLab repositories.
type GitLabProvider struct {
	client    *gitlab.Client
	projectID string // Can be numeric ID or "namespace/project"
	branch    string
}

// NewGitLabProvider creates a new GitLab provider.
// token is a personal access token.
// baseURL is the GitLab instance URL (empty for gitlab.com).
// projectID can be numeric ID or "namespace/project" path.
// branch defaults to "main".
func NewGitLabProvider(token, baseURL, projectID, branch string) (*GitLabProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if branch == "" {
		branch = "main"
	}

	var client *gitlab.Client
	var err error

	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabProvider{
		client:    client,
		projectID: projectID,
		branch:    branch,
	}, nil
}

// GetFile fetches a file's content from the configured branch.
func (p *GitLabProvider) GetFile(ctx context.Context, path string) (*File, error) {
	opts := &gitlab.GetFileOptions{Ref: gitlab.Ptr(p.branch)}

	file, resp, err := p.client.RepositoryFiles.GetFile(p.projectID, path, opts, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	content := []byte(file.Content)
	if file.Encoding == "base64" {
		decoded, decodeErr := base64.StdEncoding.DecodeString(file.Content)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
		}
		content = decoded
	}

	return &File{Path: path, Content: content}, nil
}

// ListFiles returns paths of all files under dir, recursively.
func (p *GitLabProvider) ListFiles(ctx context.Context, dir string) ([]string, error) {
	opts := &gitlab.ListTreeOptions{
		Path:      gitlab.Ptr(dir),
		Ref:       gitlab.Ptr(p.branch),
		Recursive: gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{
			PerPage: 100,
		},
	}

	var paths []string
	for {
		nodes, resp, err := p.client.Repositories.ListTree(p.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}

		for _, node := range nodes {
			if node.Type == "blob" {
				paths = append(paths, node.Path)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return paths, nil
}

// PutFile creates or updates a file in a single commit.
func (p *GitLabProvider) PutFile(ctx context.Context, path string, content []byte, message string) error {
	// Probe for existence to decide between create and update.
	_, resp, err := p.client.RepositoryFiles.GetFile(p.projectID,
		path, &gitlab.GetFileOptions{Ref: gitlab.Ptr(p.branch)}, gitlab.WithContext(ctx))

	switch {
	case err == nil:
		opts := &gitlab.UpdateFileOptions{
			Branch:        gitlab.Ptr(p.branch),
			Content:       gitlab.Ptr(string(content)),
			CommitMessage: gitlab.Ptr(message),
		}
		if _, _, updateErr := p.client.RepositoryFiles.UpdateFile(p.projectID, path, opts, gitlab.WithContext(ctx)); updateErr != nil {
			return fmt.Errorf("update %s: %w", path, updateErr)
		}
		return nil
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		opts := &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(p.branch),
			Content:       gitlab.Ptr(string(content)),
			CommitMessage: gitlab.Ptr(message),
		}
		if _, _, createErr := p.client.RepositoryFiles.CreateFile(p.projectID, path, opts, gitlab.WithContext(ctx)); createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}
		return nil
	default:
		return fmt.Errorf("stat %s: %w", path, err)
	}
}
