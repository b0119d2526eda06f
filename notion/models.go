package notion

import "time"

// richText is a Notion rich text fragment.
type richText struct {
	Type      string       `json:"type,omitempty"`
	Text      *textContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
}

// newRichText builds a writable rich text array from plain content.
// Notion rejects fragments over 2000 characters, so long content is split.
func newRichText(content string) []richText {
	if content == "" {
		return []richText{}
	}

	var parts []richText
	for len(content) > maxRichTextLen {
		parts = append(parts, richText{
			Type: "text",
			Text: &textContent{Content: content[:maxRichTextLen]},
		})
		content = content[maxRichTextLen:]
	}
	parts = append(parts, richText{
		Type: "text",
		Text: &textContent{Content: content},
	})
	return parts
}

// plainText flattens a rich text array to a plain string.
func plainText(parts []richText) string {
	var s string
	for _, p := range parts {
		if p.PlainText != "" {
			s += p.PlainText
		} else if p.Text != nil {
			s += p.Text.Content
		}
	}
	return s
}

type selectOption struct {
	Name string `json:"name"`
}

type relationRef struct {
	ID string `json:"id"`
}

// propertyValue covers the property types the store reads and writes.
type propertyValue struct {
	Type     string        `json:"type,omitempty"`
	Title    []richText    `json:"title,omitempty"`
	RichText []richText    `json:"rich_text,omitempty"`
	Status   *selectOption `json:"status,omitempty"`
	Select   *selectOption `json:"select,omitempty"`
	Relation []relationRef `json:"relation,omitempty"`
}

// page is a Notion page object.
type page struct {
	ID             string                   `json:"id"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Properties     map[string]propertyValue `json:"properties"`
}

type parentRef struct {
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     parentRef                `json:"parent"`
	Properties map[string]propertyValue `json:"properties"`
	Children   []block                  `json:"children,omitempty"`
}

type updatePageRequest struct {
	Properties map[string]propertyValue `json:"properties"`
}

type equalsFilter struct {
	Equals string `json:"equals"`
}

// queryFilter matches a status or select property by exact value.
type queryFilter struct {
	Property string        `json:"property"`
	Status   *equalsFilter `json:"status,omitempty"`
	Select   *equalsFilter `json:"select,omitempty"`
}

type queryRequest struct {
	Filter      *queryFilter `json:"filter,omitempty"`
	StartCursor string       `json:"start_cursor,omitempty"`
	PageSize    int          `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// block is a Notion block, limited to the text block types the store emits.
type blockContent struct {
	RichText []richText `json:"rich_text"`
}

type block struct {
	Object    string        `json:"object,omitempty"`
	Type      string        `json:"type"`
	Paragraph *blockContent `json:"paragraph,omitempty"`
	Heading1  *blockContent `json:"heading_1,omitempty"`
	Heading2  *blockContent `json:"heading_2,omitempty"`
	Heading3  *blockContent `json:"heading_3,omitempty"`
	Bulleted  *blockContent `json:"bulleted_list_item,omitempty"`
	Numbered  *blockContent `json:"numbered_list_item,omitempty"`
}

type appendChildrenRequest struct {
	Children []block `json:"children"`
}

type blockChildrenResponse struct {
	Results    []block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}
