package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// SetupContentRepo creates a temporary git repository laid out as a
// content repository, with an initial commit and an empty content/
// directory. Returns the path to the repository.
func SetupContentRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "pipeline@test.com")
	runGit(t, dir, "config", "user.name", "Pipeline Test")

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Content Repository\n"), 0o644); err != nil {
		t.Fatalf("failed to create README: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "content"), 0o755); err != nil {
		t.Fatalf("failed to create content dir: %v", err)
	}

	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	return dir
}

// WriteBrief writes a frontmatter content file into the repository's
// content directory and commits it. Returns the path relative to the
// repository root, which doubles as the item ID.
func WriteBrief(t *testing.T, repoDir, fileName, title, status, body string) string {
	t.Helper()

	var doc strings.Builder
	doc.WriteString("---\n")
	fmt.Fprintf(&doc, "title: %s\n", title)
	fmt.Fprintf(&doc, "status: %s\n", status)
	doc.WriteString("---\n\n")
	doc.WriteString(body)
	doc.WriteString("\n")

	relPath := filepath.Join("content", fileName)
	fullPath := filepath.Join(repoDir, relPath)
	if err := os.WriteFile(fullPath, []byte(doc.String()), 0o644); err != nil {
		t.Fatalf("failed to write brief %s: %v", fileName, err)
	}

	runGit(t, repoDir, "add", relPath)
	runGit(t, repoDir, "commit", "-m", "Add "+title)

	return relPath
}

// CurrentBranch returns the repository's current branch name.
func CurrentBranch(t *testing.T, repoDir string) string {
	t.Helper()
	return gitOutput(t, repoDir, "branch", "--show-current")
}

// HeadSHA returns the current HEAD commit SHA.
func HeadSHA(t *testing.T, repoDir string) string {
	t.Helper()
	return gitOutput(t, repoDir, "rev-parse", "HEAD")
}

// HeadMessage returns the full message of the HEAD commit.
func HeadMessage(t *testing.T, repoDir string) string {
	t.Helper()
	return gitOutput(t, repoDir, "log", "-1", "--format=%B")
}

// runGit runs a git command in the repository, failing the test on error.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Pipeline Test",
		"GIT_AUTHOR_EMAIL=pipeline@test.com",
		"GIT_COMMITTER_NAME=Pipeline Test",
		"GIT_COMMITTER_EMAIL=pipeline@test.com",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, output)
	}
}

// gitOutput runs a git command and returns its trimmed stdout.
func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %v failed: %v", args, err)
	}
	return strings.TrimSpace(string(output))
}
