// Package markdown converts the HTML found in episode descriptions and show
// notes into Markdown suitable for a note body.
package markdown

import (
	"strings"

	nethtml "golang.org/x/net/html"
)

type htmlMarkdownRenderer struct{}

// FromHTML converts an HTML fragment to Markdown. Plain text passes through
// with its whitespace normalized.
func FromHTML(raw string) string {
	return strings.Join(Lines(raw), "\n")
}

// Lines is FromHTML split into lines, with leading, trailing and repeated
// blank lines removed.
func Lines(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + raw + "</body></html>"))
	if err != nil {
		return plainLines(raw)
	}
	body := findBodyNode(doc)
	if body == nil {
		return plainLines(raw)
	}
	var r htmlMarkdownRenderer
	return trimBlankLines(r.renderNodes(elementChildren(body), 0))
}

// PrefixLines prepends prefix to every line of text, blank lines included.
func PrefixLines(text, prefix string) string {
	if prefix == "" || text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func plainLines(raw string) []string {
	text := normalizeInlineText(raw)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func trimBlankLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines) - 1
	for end >= start && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	if end < start {
		return nil
	}
	out := make([]string, 0, end-start+1)
	prevBlank := false
	for i := start; i <= end; i++ {
		blank := strings.TrimSpace(lines[i]) == ""
		if blank && prevBlank {
			continue
		}
		if blank {
			out = append(out, "")
		} else {
			out = append(out, lines[i])
		}
		prevBlank = blank
	}
	return out
}

func findBodyNode(node *nethtml.Node) *nethtml.Node {
	if node == nil {
		return nil
	}
	if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "body") {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBodyNode(child); found != nil {
			return found
		}
	}
	return nil
}

func elementChildren(node *nethtml.Node) []*nethtml.Node {
	children := make([]*nethtml.Node, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.TextNode && strings.TrimSpace(child.Data) == "" {
			continue
		}
		children = append(children, child)
	}
	return children
}

func nodeAttr(node *nethtml.Node, name string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func collectRawText(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == nethtml.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(collectRawText(child))
	}
	return b.String()
}
