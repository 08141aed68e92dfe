// Package search provides grouped full-text search over the handbook:
// Meilisearch when configured and healthy, tokenized Postgres matching
// otherwise.
package search

// MinQueryLen is the shortest query worth running; anything shorter
// returns empty groups.
const MinQueryLen = 2

type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Hit is one search result in any group.
type Hit struct {
	ID               int64  `json:"id"`
	NavigationItemID int64  `json:"navigationItemId,omitempty"`
	Title            string `json:"title"`
	Snippet          string `json:"snippet,omitempty"`
	Icon             string `json:"icon,omitempty"`
}

// Response groups hits by entity kind.
type Response struct {
	Query      string `json:"query"`
	Navigation []Hit  `json:"navigation"`
	Documents  []Hit  `json:"documents"`
	Processes  []Hit  `json:"processes"`
}

func emptyResponse(query string) Response {
	return Response{
		Query:      query,
		Navigation: []Hit{},
		Documents:  []Hit{},
		Processes:  []Hit{},
	}
}

// NavigationRecord is the indexed form of a navigation item.
type NavigationRecord struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Icon  string `json:"icon"`
}

// DocumentRecord is the indexed form of a document.
type DocumentRecord struct {
	ID               int64  `json:"id"`
	NavigationItemID int64  `json:"navigationItemId"`
	Title            string `json:"title"`
	Text             string `json:"text"`
}

// ProcessRecord is the indexed form of a process.
type ProcessRecord struct {
	ID               int64  `json:"id"`
	NavigationItemID int64  `json:"navigationItemId"`
	Title            string `json:"title"`
	Version          int    `json:"version"`
}
