// Package notion implements the content store on top of the Notion API.
//
// Pages in a Notion database are mapped to content items: the title property
// holds the item title, a status property drives the workflow, a rich text
// property carries the recorded error message, and a relation property links
// briefs to their drafts. Page bodies are read and written as blocks, with
// large bodies appended in batches to stay within Notion's limits.
package notion
