package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// suppressedTags never contribute text, nor does anything nested in them.
var suppressedTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Header: true,
	atom.Footer: true,
}

// isContentNode reports whether n matches article, main, [class*=content],
// [class*=post] or [id*=content].
func isContentNode(n *html.Node) bool {
	if n.DataAtom == atom.Article || n.DataAtom == atom.Main {
		return true
	}
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		switch a.Key {
		case "class":
			if strings.Contains(a.Val, "content") || strings.Contains(a.Val, "post") {
				return true
			}
		case "id":
			if strings.Contains(a.Val, "content") {
				return true
			}
		}
	}
	return false
}

// textCollector walks the element tree keeping two depth counters: text under
// a suppressed element is dropped, text under a content element also lands in
// the priority buffer.
type textCollector struct {
	suppressed int
	priority   int
	full       strings.Builder
	prio       strings.Builder
}

func (c *textCollector) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if c.suppressed > 0 {
			return
		}
		if c.priority > 0 {
			c.prio.WriteString(n.Data)
			c.prio.WriteByte(' ')
		}
		c.full.WriteString(n.Data)
		c.full.WriteByte(' ')
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	var suppress, prioritize bool
	if n.Type == html.ElementNode {
		suppress = suppressedTags[n.DataAtom]
		prioritize = isContentNode(n)
	}
	if suppress {
		c.suppressed++
	}
	if prioritize {
		c.priority++
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child)
	}
	if prioritize {
		c.priority--
	}
	if suppress {
		c.suppressed--
	}
}

func (c *textCollector) text() string {
	if p := strings.TrimSpace(c.prio.String()); p != "" {
		return p
	}
	return strings.TrimSpace(c.full.String())
}

func extractHTML(raw, sourceURL string) (Result, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := collapseWhitespace(goquery.NewDocumentFromNode(doc).Find("title").First().Text())
	if title == "" {
		title = sourceURL
	}

	var c textCollector
	c.walk(doc)
	return Result{Title: title, CleanText: c.text()}, nil
}
