package ai

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTagsRegex = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?li>|</?blockquote>`)
	blankRunRegex  = regexp.MustCompile(`\n\s*\n+`)

	markdown    = goldmark.New()
	stripPolicy = bluemonday.StrictPolicy()
)

// Plaintext renders the markdown a model tends to answer with and strips the
// markup, keeping line structure. Callers escape the result before sending
// it as HTML.
func Plaintext(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	out := blockTagsRegex.ReplaceAllString(buf.String(), "\n")
	out = stripPolicy.Sanitize(out)
	out = blankRunRegex.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(html.UnescapeString(out))
	if out == "" {
		return strings.TrimSpace(text)
	}
	return out
}
