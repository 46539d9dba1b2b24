package restructure

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// htmlTable is a parsed <table> from a table block's content.
type htmlTable struct {
	node *html.Node
	// Rendered back inside <html><body> when the source was a full document.
	wrapped bool
}

// parseTable extracts the first <table> element from content. ok is false
// when content holds no table.
func parseTable(content string) (*htmlTable, bool) {
	if !strings.Contains(strings.ToLower(content), "<table") {
		return nil, false
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, false
	}
	tbl := findElement(doc, "table")
	if tbl == nil {
		return nil, false
	}
	return &htmlTable{
		node:    tbl,
		wrapped: strings.Contains(strings.ToLower(content), "<html"),
	}, true
}

// rowNodes returns the <tr> elements of the table in document order,
// looking through thead/tbody/tfoot sections.
func (t *htmlTable) rowNodes() []*html.Node {
	var rows []*html.Node
	for c := t.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if r.Type == html.ElementNode && r.Data == "tr" {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

// columns is the widest row measured in colspan units.
func (t *htmlTable) columns() int {
	widest := 0
	for _, tr := range t.rowNodes() {
		n := 0
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				n += colspan(c)
			}
		}
		if n > widest {
			widest = n
		}
	}
	return widest
}

// rows returns cell text row by row.
func (t *htmlTable) rows() [][]string {
	var out [][]string
	for _, tr := range t.rowNodes() {
		var row []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				row = append(row, strings.TrimSpace(textContent(c)))
			}
		}
		out = append(out, row)
	}
	return out
}

// appendRows moves every row of next to the end of t.
func (t *htmlTable) appendRows(next *htmlTable) {
	dst := t.node
	for c := t.node.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode && c.Data == "tbody" {
			dst = c
			break
		}
	}
	for _, tr := range next.rowNodes() {
		tr.Parent.RemoveChild(tr)
		dst.AppendChild(tr)
	}
}

func (t *htmlTable) render() (string, error) {
	var buf bytes.Buffer
	if t.wrapped {
		buf.WriteString("<html><body>")
	}
	if err := html.Render(&buf, t.node); err != nil {
		return "", err
	}
	if t.wrapped {
		buf.WriteString("</body></html>")
	}
	return buf.String(), nil
}

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == "colspan" {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && v > 0 {
				return v
			}
		}
	}
	return 1
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
