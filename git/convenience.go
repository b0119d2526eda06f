package git

import (
	"fmt"
	"time"
)

// CommitResult contains the result of a commit operation.
type CommitResult struct {
	SHA     string    // Full commit SHA
	Branch  string    // Branch name
	Message string    // Commit message
	Date    time.Time // Commit timestamp
}

// PushResult contains the result of a push operation.
type PushResult struct {
	Remote      string // Remote name (e.g., "origin")
	Branch      string // Branch that was pushed
	SHA         string // Commit SHA that was pushed
	SetUpstream bool   // Whether upstream tracking was set
	URL         string // Remote URL (for reference)
}

// CommitAndPushResult contains the result of a commit and push operation.
type CommitAndPushResult struct {
	Commit *CommitResult
	Push   *PushResult
}

// CommitFiles stages the given files and commits with the given message.
// Returns ErrNothingToCommit if the files have no changes.
func (g *Context) CommitFiles(message string, files ...string) (*CommitResult, error) {
	if err := g.Stage(files...); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	return g.commitStaged(message)
}

// CommitAll stages all changes and commits with the given message.
// Returns ErrNothingToCommit if there are no changes to commit.
func (g *Context) CommitAll(message string) (*CommitResult, error) {
	if err := g.StageAll(); err != nil {
		return nil, fmt.Errorf("stage all: %w", err)
	}
	return g.commitStaged(message)
}

func (g *Context) commitStaged(message string) (*CommitResult, error) {
	if err := g.Commit(message); err != nil {
		return nil, err // Already wrapped appropriately
	}

	sha, err := g.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}

	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}

	return &CommitResult{
		SHA:     sha,
		Branch:  branch,
		Message: message,
		Date:    time.Now(),
	}, nil
}

// PushCurrent pushes the current branch to origin.
// Automatically sets upstream tracking if the branch hasn't been pushed before.
func (g *Context) PushCurrent() (*PushResult, error) {
	return g.PushCurrentTo("origin")
}

// PushCurrentTo pushes the current branch to the specified remote.
// Automatically sets upstream tracking if needed.
func (g *Context) PushCurrentTo(remote string) (*PushResult, error) {
	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("get current branch: %w", err)
	}

	setUpstream := !g.IsBranchPushed(branch)

	if err := g.Push(remote, branch, setUpstream); err != nil {
		return nil, err
	}

	sha, err := g.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}

	url, _ := g.GetRemoteURL(remote) // Ignore error, URL is optional

	return &PushResult{
		Remote:      remote,
		Branch:      branch,
		SHA:         sha,
		SetUpstream: setUpstream,
		URL:         url,
	}, nil
}

// CommitAllAndPush stages all changes, commits, and pushes to origin.
// If push fails, returns partial result with the commit info.
func (g *Context) CommitAllAndPush(message string) (*CommitAndPushResult, error) {
	commit, err := g.CommitAll(message)
	if err != nil {
		return nil, err
	}

	push, err := g.PushCurrent()
	if err != nil {
		// Return partial result so caller knows commit succeeded
		return &CommitAndPushResult{Commit: commit}, err
	}

	return &CommitAndPushResult{
		Commit: commit,
		Push:   push,
	}, nil
}
