package blogflow

import (
	"fmt"
	"strings"
)

// AppendSources appends a numbered Sources section to content:
//
//	<content>
//
//	## Sources
//	1. first citation
//	2. second citation
//
// Citations keep provider order and are 1-indexed. When citations is empty
// the content is returned unchanged.
func AppendSources(content string, citations []string) string {
	if len(citations) == 0 {
		return content
	}

	var b strings.Builder
	b.WriteString(content)
	b.WriteString("\n\n## Sources\n")
	for i, citation := range citations {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, citation))
	}
	return b.String()
}

// MergeResearch folds a research result into an existing body. An empty body
// is replaced outright; otherwise the findings are appended after a blank
// line so earlier notes survive.
func MergeResearch(body string, result *ResearchResult) string {
	findings := AppendSources(result.Content, result.Citations)
	if strings.TrimSpace(body) == "" {
		return findings
	}
	return body + "\n\n" + findings
}
