package notion

import (
	"strconv"
	"strings"
)

// maxRichTextLen is Notion's limit on a single rich text fragment.
const maxRichTextLen = 2000

// maxBlocksPerAppend is Notion's limit on blocks per append request.
const maxBlocksPerAppend = 100

// markdownToBlocks converts a markdown body to Notion blocks. Headings,
// bulleted lists, and numbered lists become their block types; everything
// else becomes paragraphs.
func markdownToBlocks(body string) []block {
	var blocks []block

	for _, paragraph := range strings.Split(body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		for _, line := range strings.Split(paragraph, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			switch {
			case strings.HasPrefix(line, "### "):
				blocks = append(blocks, textBlock("heading_3", strings.TrimPrefix(line, "### ")))
			case strings.HasPrefix(line, "## "):
				blocks = append(blocks, textBlock("heading_2", strings.TrimPrefix(line, "## ")))
			case strings.HasPrefix(line, "# "):
				blocks = append(blocks, textBlock("heading_1", strings.TrimPrefix(line, "# ")))
			case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
				blocks = append(blocks, textBlock("bulleted_list_item", line[2:]))
			case isNumberedItem(line):
				_, rest, _ := strings.Cut(line, ". ")
				blocks = append(blocks, textBlock("numbered_list_item", rest))
			default:
				blocks = append(blocks, textBlock("paragraph", line))
			}
		}
	}

	return blocks
}

// blocksToMarkdown flattens blocks back to a markdown body. Used when
// reading page content so research can be merged and re-appended.
func blocksToMarkdown(blocks []block) string {
	var lines []string
	num := 0

	for _, b := range blocks {
		switch b.Type {
		case "heading_1":
			num = 0
			lines = append(lines, "# "+plainText(b.Heading1.RichText))
		case "heading_2":
			num = 0
			lines = append(lines, "## "+plainText(b.Heading2.RichText))
		case "heading_3":
			num = 0
			lines = append(lines, "### "+plainText(b.Heading3.RichText))
		case "bulleted_list_item":
			num = 0
			lines = append(lines, "- "+plainText(b.Bulleted.RichText))
		case "numbered_list_item":
			num++
			lines = append(lines, strconv.Itoa(num)+". "+plainText(b.Numbered.RichText))
		case "paragraph":
			num = 0
			if text := plainText(b.Paragraph.RichText); text != "" {
				lines = append(lines, text)
			}
		}
	}

	return strings.Join(lines, "\n\n")
}

func textBlock(typ, content string) block {
	b := block{Object: "block", Type: typ}
	text := &blockContent{RichText: newRichText(content)}

	switch typ {
	case "heading_1":
		b.Heading1 = text
	case "heading_2":
		b.Heading2 = text
	case "heading_3":
		b.Heading3 = text
	case "bulleted_list_item":
		b.Bulleted = text
	case "numbered_list_item":
		b.Numbered = text
	default:
		b.Type = "paragraph"
		b.Paragraph = text
	}
	return b
}

// isNumberedItem reports whether the line looks like "1. item".
func isNumberedItem(line string) bool {
	digits, rest, found := strings.Cut(line, ". ")
	if !found || digits == "" || rest == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
