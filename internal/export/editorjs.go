package export

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

type blockDoc struct {
	Blocks []blockNode `json:"blocks"`
}

type blockNode struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// RenderBlocksHTML converts an Editor.js payload to an HTML fragment.
// Inline markup inside text fields (paragraphs, headers, list items,
// table cells) comes from the editor and is passed through; only code
// blocks are escaped, since the editor stores those unformatted.
func RenderBlocksHTML(content []byte) string {
	var doc blockDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var b strings.Builder
	for _, block := range doc.Blocks {
		switch block.Type {
		case "paragraph":
			var data struct {
				Text string `json:"text"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				fmt.Fprintf(&b, "<p>%s</p>\n", data.Text)
			}
		case "header":
			var data struct {
				Text  string `json:"text"`
				Level int    `json:"level"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				level := data.Level
				if level < 1 || level > 6 {
					level = 2
				}
				fmt.Fprintf(&b, "<h%d>%s</h%d>\n", level, data.Text, level)
			}
		case "list":
			var data struct {
				Style string          `json:"style"`
				Items json.RawMessage `json:"items"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				tag := "ul"
				if data.Style == "ordered" {
					tag = "ol"
				}
				fmt.Fprintf(&b, "<%s>\n", tag)
				for _, item := range flattenListItems(data.Items) {
					fmt.Fprintf(&b, "<li>%s</li>\n", item)
				}
				fmt.Fprintf(&b, "</%s>\n", tag)
			}
		case "checklist":
			var data struct {
				Items []struct {
					Text    string `json:"text"`
					Checked bool   `json:"checked"`
				} `json:"items"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				b.WriteString("<ul class=\"checklist\">\n")
				for _, item := range data.Items {
					mark := "&#9744;"
					if item.Checked {
						mark = "&#9745;"
					}
					fmt.Fprintf(&b, "<li>%s %s</li>\n", mark, item.Text)
				}
				b.WriteString("</ul>\n")
			}
		case "quote":
			var data struct {
				Text    string `json:"text"`
				Caption string `json:"caption"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				fmt.Fprintf(&b, "<blockquote>%s", data.Text)
				if data.Caption != "" {
					fmt.Fprintf(&b, "<footer>%s</footer>", data.Caption)
				}
				b.WriteString("</blockquote>\n")
			}
		case "table":
			var data struct {
				WithHeadings bool       `json:"withHeadings"`
				Content      [][]string `json:"content"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				b.WriteString("<table>\n")
				for i, row := range data.Content {
					cell := "td"
					if data.WithHeadings && i == 0 {
						cell = "th"
					}
					b.WriteString("<tr>")
					for _, value := range row {
						fmt.Fprintf(&b, "<%s>%s</%s>", cell, value, cell)
					}
					b.WriteString("</tr>\n")
				}
				b.WriteString("</table>\n")
			}
		case "warning":
			var data struct {
				Title   string `json:"title"`
				Message string `json:"message"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				fmt.Fprintf(&b, "<div class=\"warning\"><strong>%s</strong> %s</div>\n", data.Title, data.Message)
			}
		case "code":
			var data struct {
				Code string `json:"code"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				fmt.Fprintf(&b, "<pre><code>%s</code></pre>\n", html.EscapeString(data.Code))
			}
		case "delimiter":
			b.WriteString("<hr>\n")
		case "raw":
			var data struct {
				HTML string `json:"html"`
			}
			if json.Unmarshal(block.Data, &data) == nil {
				b.WriteString(data.HTML)
				b.WriteString("\n")
			}
		case "image":
			var data struct {
				File struct {
					URL string `json:"url"`
				} `json:"file"`
				Caption string `json:"caption"`
			}
			if json.Unmarshal(block.Data, &data) == nil && data.File.URL != "" {
				fmt.Fprintf(&b, "<figure><img src=%q alt=%q>", data.File.URL, data.Caption)
				if data.Caption != "" {
					fmt.Fprintf(&b, "<figcaption>%s</figcaption>", data.Caption)
				}
				b.WriteString("</figure>\n")
			}
		}
	}
	return b.String()
}

func flattenListItems(raw json.RawMessage) []string {
	var plain []string
	if json.Unmarshal(raw, &plain) == nil {
		return plain
	}

	var nested []struct {
		Content string          `json:"content"`
		Items   json.RawMessage `json:"items"`
	}
	if json.Unmarshal(raw, &nested) != nil {
		return nil
	}
	var out []string
	for _, item := range nested {
		if item.Content != "" {
			out = append(out, item.Content)
		}
		out = append(out, flattenListItems(item.Items)...)
	}
	return out
}
