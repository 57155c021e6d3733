package markdown

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

func (r htmlMarkdownRenderer) renderInlineChildren(node *nethtml.Node) string {
	parts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		parts = append(parts, r.renderInlineNode(child))
	}
	return strings.Join(parts, " ")
}

func (r htmlMarkdownRenderer) renderInlineNode(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case nethtml.TextNode:
		return node.Data
	case nethtml.ElementNode:
		tag := strings.ToLower(node.Data)
		switch tag {
		case "script", "style", "noscript":
			return ""
		case "img":
			return renderImage(node)
		case "br":
			return "\n"
		case "a":
			text := singleLine(normalizeInlineText(r.renderInlineChildren(node)))
			href := strings.TrimSpace(nodeAttr(node, "href"))
			switch {
			case href == "":
				return text
			case text == "":
				return "<" + href + ">"
			default:
				return "[" + text + "](" + href + ")"
			}
		case "strong", "b":
			return wrapInline(r, node, "**")
		case "em", "i":
			return wrapInline(r, node, "*")
		case "s", "del", "strike":
			return wrapInline(r, node, "~~")
		case "q":
			return wrapInline(r, node, `"`)
		case "code", "kbd", "samp":
			return wrapInline(r, node, "`")
		default:
			return r.renderInlineChildren(node)
		}
	default:
		return ""
	}
}

func wrapInline(r htmlMarkdownRenderer, node *nethtml.Node, marker string) string {
	text := singleLine(normalizeInlineText(r.renderInlineChildren(node)))
	if text == "" {
		return ""
	}
	return marker + text + marker
}

func renderImage(node *nethtml.Node) string {
	src := nodeAttr(node, "src")
	if src == "" {
		return ""
	}
	alt := normalizeInlineText(nodeAttr(node, "alt"))
	if alt == "" {
		alt = normalizeInlineText(nodeAttr(node, "title"))
	}
	return "![" + singleLine(alt) + "](" + src + ")"
}

func normalizeInlineText(s string) string {
	s = html.UnescapeString(s)
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	normalized := strings.Join(out, "\n")
	replacer := strings.NewReplacer(
		" .", ".",
		" ,", ",",
		" ;", ";",
		" :", ":",
		" !", "!",
		" ?", "?",
		" )", ")",
		"( ", "(",
	)
	return replacer.Replace(normalized)
}
