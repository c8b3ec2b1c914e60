package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// skipElements are rendered invisible or carry no prose.
var skipElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// NormalizeContent reduces post content to visible plain text. Posts
// arrive as either plain text or HTML depending on the platform; plain
// text passes through with whitespace collapsed.
func NormalizeContent(content string) string {
	if !strings.Contains(content, "<") {
		return collapseWhitespace(content)
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return collapseWhitespace(content)
	}
	var b strings.Builder
	visit(doc, &b)
	return collapseWhitespace(b.String())
}

func visit(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skipElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c, b)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
