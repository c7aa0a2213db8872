package mcpserver

import (
	"strconv"
	"strings"

	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/prompt"
)

// GuideFormatURI is the resource URI of the guide format contract.
const GuideFormatURI = "guidesmith://guide-format"

// GuideFormatContract describes what a generated guide looks like and how
// entity hints are used, for MCP clients choosing tool arguments.
var GuideFormatContract = `# Guide Format Contract

Guides are generated from a topic (a question or theme about Austin, Texas)
and persisted as "guide" documents in the content store.

## Generation schema

The generation service is asked for exactly this JSON object:

` + "```json\n" + prompt.GuideSchema + "\n```" + `

- Only ` + "`title`" + ` is mandatory. A missing slug is derived from the title
  (lowercase, non-word characters removed, runs of spaces and dashes collapsed).
- An unknown guide type becomes ` + "`list`" + `.
- Guide types: ` + strings.Join(models.GuideTypes, ", ") + `.

## Content

The HTML content is stored as rich-text blocks. By default markup is removed
and the text is split into paragraphs on blank lines, so headings, lists and
emphasis are not preserved.

## Entity hints

- ` + "`places`" + ` and ` + "`neighborhoods`" + ` are slugs of existing documents
  (for example ` + "`franklin-barbecue`" + `, ` + "`east-austin`" + `).
- Hints are mentioned in the generation prompt and then resolved to document
  references. Unknown slugs are dropped silently; use ` + "`resolve_slugs`" + ` first
  to check which ones exist.

## Topic ideas

Topic categories: ` + strings.Join(models.TopicCategories, ", ") + `.
Ideation returns between 1 and ` + strconv.Itoa(prompt.MaxTopicCount) + ` topics (default ` + strconv.Itoa(prompt.DefaultTopicCount) + `).
Nothing is persisted by ideation.
`

