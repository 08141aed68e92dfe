// Package editorjs derives plain text from Editor.js block documents.
package editorjs

import (
	"encoding/json"
	"regexp"
	"strings"
)

// maxTextLen caps derived text at the column size of content_text.
const maxTextLen = 65535

type document struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// ExtractPlainText walks the block list of an Editor.js document and
// concatenates the human-readable text of every known block type.
// Unknown block types are skipped. Invalid JSON yields an empty string.
func ExtractPlainText(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var parts []string
	add := func(s string) {
		s = strings.TrimSpace(stripTags(s))
		if s != "" {
			parts = append(parts, s)
		}
	}

	for _, b := range doc.Blocks {
		switch b.Type {
		case "paragraph", "header":
			var data struct {
				Text string `json:"text"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				add(data.Text)
			}
		case "list":
			var data struct {
				Items json.RawMessage `json:"items"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				for _, item := range listItems(data.Items) {
					add(item)
				}
			}
		case "checklist":
			var data struct {
				Items []struct {
					Text string `json:"text"`
				} `json:"items"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				for _, item := range data.Items {
					add(item.Text)
				}
			}
		case "quote":
			var data struct {
				Text    string `json:"text"`
				Caption string `json:"caption"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				add(data.Text)
				add(data.Caption)
			}
		case "table":
			var data struct {
				Content [][]string `json:"content"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				for _, row := range data.Content {
					for _, cell := range row {
						add(cell)
					}
				}
			}
		case "warning":
			var data struct {
				Title   string `json:"title"`
				Message string `json:"message"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				add(data.Title)
				add(data.Message)
			}
		case "raw":
			var data struct {
				HTML string `json:"html"`
			}
			if json.Unmarshal(b.Data, &data) == nil {
				add(data.HTML)
			}
		}
	}

	text := spacePattern.ReplaceAllString(strings.Join(parts, " "), " ")
	text = strings.TrimSpace(text)
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	return text
}

// listItems flattens list entries, which are either bare strings or
// objects with nested item arrays depending on the editor version.
func listItems(raw json.RawMessage) []string {
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
		out = append(out, listItems(item.Items)...)
	}
	return out
}

func stripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return s
}
