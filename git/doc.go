// Package git provides Git operations for content repositories, including
// staging, commits, pushes, and command execution.
//
// Core types:
//   - Context: Git repository context with staging and commit operations
//   - CommandRunner: Interface for executing git commands (with mock for testing)
//   - CommitMessage: Structured commit message builder for content changes
//
// Example usage:
//
//	ctx, err := git.NewContext("/path/to/content-repo")
//	result, err := ctx.CommitAll("Research complete for My Topic")
package git
