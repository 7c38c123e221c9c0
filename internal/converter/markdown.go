package converter

import (
	"regexp"
	"strings"
)

var (
	mdCodeFence   = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	mdInlineCode  = regexp.MustCompile("`([^`]+)`")
	mdImage       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLink        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote  = regexp.MustCompile(`(?m)^>\s*`)
	mdRule        = regexp.MustCompile(`(?m)^\s*[-*_]{3,}\s*$`)
	mdListMarker  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdEmphasis    = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	mdHTMLComment = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// stripMarkdown removes markup while keeping the readable text, including
// the contents of code blocks and link labels.
func stripMarkdown(content string) string {
	content = mdHTMLComment.ReplaceAllString(content, "")
	content = mdCodeFence.ReplaceAllString(content, "$1")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdImage.ReplaceAllString(content, "$1")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdListMarker.ReplaceAllString(content, "")
	content = mdNumbered.ReplaceAllString(content, "")
	content = mdEmphasis.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
