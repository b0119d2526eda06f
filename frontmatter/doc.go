// Package frontmatter implements the content store as markdown files with
// YAML frontmatter in a git working tree.
//
// Each content item is one .md file; the item ID is the file path relative
// to the repository root. Every write produces a git commit, so the content
// history doubles as an audit log of the pipeline's actions.
package frontmatter
