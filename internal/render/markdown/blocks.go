package markdown

import (
	"fmt"
	"strings"

	nethtml "golang.org/x/net/html"
)

func (r htmlMarkdownRenderer) renderNodes(nodes []*nethtml.Node, listDepth int) []string {
	lines := make([]string, 0, len(nodes)*2)
	inlineParts := make([]string, 0, 4)
	appendBlock := func(block []string) {
		if len(block) == 0 {
			return
		}
		if len(lines) > 0 && lines[len(lines)-1] != "" {
			lines = append(lines, "")
		}
		lines = append(lines, block...)
	}
	flushInline := func() {
		text := normalizeInlineText(strings.Join(inlineParts, " "))
		inlineParts = inlineParts[:0]
		if text == "" {
			return
		}
		appendBlock(strings.Split(text, "\n"))
	}

	for _, node := range nodes {
		switch node.Type {
		case nethtml.TextNode:
			inlineParts = append(inlineParts, node.Data)
		case nethtml.ElementNode:
			if isBlockElement(node.Data) {
				flushInline()
				appendBlock(r.renderBlock(node, listDepth))
				continue
			}
			inlineParts = append(inlineParts, r.renderInlineNode(node))
		}
	}
	flushInline()
	return trimBlankLines(lines)
}

func (r htmlMarkdownRenderer) renderBlock(node *nethtml.Node, listDepth int) []string {
	tag := strings.ToLower(node.Data)
	switch tag {
	case "script", "style", "noscript":
		return nil
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(tag[1] - '0')
		text := singleLine(normalizeInlineText(r.renderInlineChildren(node)))
		if text == "" {
			return nil
		}
		return []string{strings.Repeat("#", level) + " " + text}
	case "p", "div", "section", "article", "main", "header", "footer", "aside", "nav":
		if hasBlockChild(node) {
			return r.renderNodes(elementChildren(node), listDepth)
		}
		text := normalizeInlineText(r.renderInlineChildren(node))
		if text == "" {
			return nil
		}
		return strings.Split(text, "\n")
	case "blockquote":
		inner := r.renderNodes(elementChildren(node), listDepth)
		out := make([]string, 0, len(inner))
		for _, line := range inner {
			if strings.TrimSpace(line) == "" {
				out = append(out, ">")
				continue
			}
			out = append(out, "> "+line)
		}
		return out
	case "ul":
		return r.renderList(node, false, listDepth+1)
	case "ol":
		return r.renderList(node, true, listDepth+1)
	case "li":
		return r.renderListItem(node, listDepth, "- ")
	case "table":
		return renderTableLines(node, r)
	case "figcaption", "caption":
		text := singleLine(normalizeInlineText(r.renderInlineChildren(node)))
		if text == "" {
			return nil
		}
		return []string{"*" + text + "*"}
	case "figure":
		return r.renderNodes(elementChildren(node), listDepth)
	case "img":
		if image := renderImage(node); image != "" {
			return []string{image}
		}
		return nil
	case "pre":
		return renderCodeBlock(node)
	case "hr":
		return []string{"---"}
	case "dl":
		return r.renderDefinitionList(node)
	default:
		text := normalizeInlineText(r.renderInlineChildren(node))
		if text != "" {
			return strings.Split(text, "\n")
		}
		return r.renderNodes(elementChildren(node), listDepth)
	}
}

func (r htmlMarkdownRenderer) renderDefinitionList(node *nethtml.Node) []string {
	lines := make([]string, 0, 8)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			continue
		}
		text := singleLine(normalizeInlineText(r.renderInlineChildren(child)))
		if text == "" {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "dt":
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, "**"+text+"**")
		case "dd":
			lines = append(lines, ": "+text)
		}
	}
	return lines
}

func (r htmlMarkdownRenderer) renderList(node *nethtml.Node, ordered bool, listDepth int) []string {
	lines := make([]string, 0, 16)
	itemIndex := 0
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode || strings.ToLower(child.Data) != "li" {
			continue
		}
		itemIndex++
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", itemIndex)
		}
		lines = append(lines, r.renderListItem(child, listDepth, marker)...)
	}
	return lines
}

func (r htmlMarkdownRenderer) renderListItem(node *nethtml.Node, listDepth int, marker string) []string {
	indent := strings.Repeat("  ", max(0, listDepth-1))
	restPrefix := indent + strings.Repeat(" ", len(marker))
	lines := make([]string, 0, 4)

	textParts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode {
			tag := strings.ToLower(child.Data)
			if tag == "ul" || tag == "ol" {
				continue
			}
			if tag == "p" || tag == "div" {
				textParts = append(textParts, r.renderInlineChildren(child), "\n")
				continue
			}
		}
		textParts = append(textParts, r.renderInlineNode(child))
	}
	text := normalizeInlineText(strings.Join(textParts, " "))
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if len(lines) == 0 {
			lines = append(lines, indent+marker+line)
			continue
		}
		lines = append(lines, restPrefix+line)
	}
	if len(lines) == 0 {
		lines = append(lines, indent+strings.TrimRight(marker, " "))
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "ul":
			lines = append(lines, r.renderList(child, false, listDepth+1)...)
		case "ol":
			lines = append(lines, r.renderList(child, true, listDepth+1)...)
		}
	}
	return lines
}

func renderCodeBlock(node *nethtml.Node) []string {
	lang := ""
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode && strings.EqualFold(child.Data, "code") {
			for _, class := range strings.Fields(nodeAttr(child, "class")) {
				if after, ok := strings.CutPrefix(class, "language-"); ok {
					lang = after
					break
				}
			}
		}
	}
	text := strings.ReplaceAll(collectRawText(node), "\r\n", "\n")
	text = strings.Trim(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	out := []string{"```" + lang}
	for _, line := range strings.Split(text, "\n") {
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return append(out, "```")
}

func singleLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func isBlockElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6",
		"p", "div", "section", "article", "main", "header", "footer", "aside", "nav",
		"blockquote", "ul", "ol", "li", "table", "thead", "tbody", "tfoot", "tr", "td", "th", "img",
		"dl", "dt", "dd", "pre", "figure", "figcaption", "caption", "hr":
		return true
	default:
		return false
	}
}

func hasBlockChild(node *nethtml.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode && isBlockElement(child.Data) {
			return true
		}
	}
	return false
}
