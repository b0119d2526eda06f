package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// frontMatter holds the metadata block at the top of a content file.
type frontMatter struct {
	Title        string `yaml:"title"`
	Status       string `yaml:"status"`
	Related      string `yaml:"related,omitempty"`
	ErrorMessage string `yaml:"error_message,omitempty"`
}

// renderDocument serializes frontmatter and body into file content.
func renderDocument(fm frontMatter, body string) ([]byte, error) {
	meta, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.Write(meta)
	b.WriteString(delimiter + "\n")
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}

// parseDocument splits file content into frontmatter and body.
func parseDocument(data []byte) (frontMatter, string, error) {
	var fm frontMatter

	content := string(data)
	if !strings.HasPrefix(content, delimiter+"\n") {
		return fm, "", fmt.Errorf("missing frontmatter delimiter")
	}

	rest := content[len(delimiter)+1:]
	meta, body, found := strings.Cut(rest, "\n"+delimiter+"\n")
	if !found {
		return fm, "", fmt.Errorf("unterminated frontmatter")
	}

	if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
		return fm, "", fmt.Errorf("parse frontmatter: %w", err)
	}

	return fm, strings.TrimSpace(body), nil
}
