package markdown

import (
	"strings"

	nethtml "golang.org/x/net/html"
)

// renderTableLines emits a pipe table. The first row always acts as the
// header since Markdown tables require one.
func renderTableLines(tableNode *nethtml.Node, renderer htmlMarkdownRenderer) []string {
	rows := tableRows(tableNode, renderer)
	if len(rows) == 0 {
		return nil
	}
	columns := 0
	for _, row := range rows {
		columns = max(columns, len(row))
	}
	lines := make([]string, 0, len(rows)+1)
	for i, row := range rows {
		cells := make([]string, columns)
		copy(cells, row)
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			sep := make([]string, columns)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return lines
}

func tableRows(tableNode *nethtml.Node, renderer htmlMarkdownRenderer) [][]string {
	rows := make([][]string, 0, 8)
	var walk func(*nethtml.Node)
	walk = func(node *nethtml.Node) {
		if node == nil {
			return
		}
		if node.Type == nethtml.ElementNode && strings.ToLower(node.Data) == "tr" {
			row := make([]string, 0, 4)
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != nethtml.ElementNode {
					continue
				}
				tag := strings.ToLower(c.Data)
				if tag != "th" && tag != "td" {
					continue
				}
				cell := singleLine(normalizeInlineText(renderer.renderInlineChildren(c)))
				row = append(row, strings.ReplaceAll(cell, "|", `\|`))
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tableNode)
	return rows
}
