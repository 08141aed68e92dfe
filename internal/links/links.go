// Package links extracts and reconciles wiki-style [[Title]] references.
package links

import (
	"regexp"
	"strings"
)

// maxTitleLen bounds a link target title; longer matches are ignored.
const maxTitleLen = 255

var linkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// ExtractTitles returns the distinct link titles in the text, trimmed,
// in first-occurrence order. Duplicate titles differing only by case
// count as one occurrence.
func ExtractTitles(text string) []string {
	matches := linkPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var titles []string
	for _, m := range matches {
		title := strings.TrimSpace(m[1])
		if title == "" || len(title) > maxTitleLen {
			continue
		}
		key := strings.ToLower(title)
		if seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, title)
	}
	return titles
}

// Diff compares the stored link targets against the desired set and
// returns the ids to insert and to delete. Order of the inputs does
// not matter.
func Diff(existing, desired []int64) (toInsert, toDelete []int64) {
	have := make(map[int64]bool, len(existing))
	for _, id := range existing {
		have[id] = true
	}
	want := make(map[int64]bool, len(desired))
	for _, id := range desired {
		if want[id] {
			continue
		}
		want[id] = true
		if !have[id] {
			toInsert = append(toInsert, id)
		}
	}
	for _, id := range existing {
		if !want[id] {
			toDelete = append(toDelete, id)
		}
	}
	return toInsert, toDelete
}
