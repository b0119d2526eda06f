// Package prompt provides prompt template loading for the research and
// draft providers.
//
// Templates are plain text files with Go template syntax. The loader
// searches .blogflow/prompts/ and prompts/ in the project directory, then
// falls back to the defaults embedded in the binary, so a project can
// override either prompt by dropping a file in place.
package prompt
