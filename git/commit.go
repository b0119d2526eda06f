package git

import (
	"fmt"
	"strings"
)

// Action represents the kind of content change in a commit.
type Action string

const (
	ActionResearch Action = "research"
	ActionDraft    Action = "draft"
	ActionStatus   Action = "status"
	ActionError    Action = "error"
	ActionCreate   Action = "create"
)

// CommitMessage represents a structured commit message for a content change.
type CommitMessage struct {
	Action      Action // Required: kind of change (research, draft, etc.)
	Subject     string // Required: short description
	Body        string // Optional: detailed explanation
	RunID       string // Optional: pipeline run that produced the change
	GeneratedBy string // Optional: tool that generated the commit
}

// NewCommitMessage creates a commit message with the blogflow marker.
func NewCommitMessage(action Action, subject string) *CommitMessage {
	return &CommitMessage{
		Action:      action,
		Subject:     subject,
		GeneratedBy: "blogflow",
	}
}

// WithBody adds a body to the commit message.
func (c *CommitMessage) WithBody(body string) *CommitMessage {
	c.Body = body
	return c
}

// WithRunID adds a run reference.
func (c *CommitMessage) WithRunID(id string) *CommitMessage {
	c.RunID = id
	return c
}

// WithoutGeneratedBy removes the Generated-By footer.
func (c *CommitMessage) WithoutGeneratedBy() *CommitMessage {
	c.GeneratedBy = ""
	return c
}

// String formats the commit message.
func (c *CommitMessage) String() string {
	var b strings.Builder

	// Subject line: action: subject
	b.WriteString(string(c.Action))
	b.WriteString(": ")
	b.WriteString(c.Subject)

	if c.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(wrapText(c.Body, 72))
	}

	var footer []string
	if c.RunID != "" {
		footer = append(footer, fmt.Sprintf("Run: %s", c.RunID))
	}
	if c.GeneratedBy != "" {
		footer = append(footer, fmt.Sprintf("Generated-By: %s", c.GeneratedBy))
	}

	if len(footer) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(footer, "\n"))
	}

	return b.String()
}

// Validate checks if the commit message is valid.
func (c *CommitMessage) Validate() error {
	if c.Action == "" {
		return fmt.Errorf("commit action is required")
	}
	if c.Subject == "" {
		return fmt.Errorf("commit subject is required")
	}
	if len(c.Subject) > 100 {
		return fmt.Errorf("commit subject too long (max 100 characters)")
	}
	return nil
}

// wrapText wraps text at the specified width, preserving existing newlines.
func wrapText(text string, width int) string {
	var result []string

	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}

		var line string
		for _, word := range strings.Fields(paragraph) {
			if line == "" {
				line = word
			} else if len(line)+1+len(word) > width {
				result = append(result, line)
				line = word
			} else {
				line += " " + word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
