package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type NavigationItem struct {
	ID        int64
	ParentID  *int64
	Title     string
	Type      string
	Status    string
	Icon      string
	SortOrder int
	CreatedBy *int64
	UpdatedBy *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NavigationItemPatch carries the fields of a partial update; nil means
// "leave unchanged".
type NavigationItemPatch struct {
	ParentID  **int64
	Title     *string
	Type      *string
	Status    *string
	Icon      *string
	SortOrder *int
	UpdatedBy *int64
}

// ReorderEntry is one node move inside a bulk reorder.
type ReorderEntry struct {
	ID        int64
	ParentID  *int64
	SortOrder int
}

type Document struct {
	ID               int64
	NavigationItemID int64
	Content          json.RawMessage
	ContentText      string
	UpdatedBy        *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Process struct {
	ID               int64
	NavigationItemID int64
	BpmnXML          string
	Version          int
	UpdatedBy        *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LinkedItem is one endpoint of a wiki-link edge with enough metadata
// to render a link list.
type LinkedItem struct {
	NavigationItemID int64
	Title            string
	Type             string
	Icon             string
}

type File struct {
	ID               int64
	NavigationItemID *int64
	StoredName       string
	OriginalName     string
	MimeType         string
	Size             int64
	CreatedBy        *int64
	CreatedAt        time.Time
}

type Tag struct {
	ID   int64
	Name string
}

type RecentItem struct {
	NavigationItemID int64
	Title            string
	Type             string
	Icon             string
	Visits           int
	LastVisitedAt    time.Time
}

type Review struct {
	NavigationItemID int64
	ReviewedBy       *int64
	ReviewerName     string
	Note             string
	ReviewedAt       time.Time
}

type Approval struct {
	ID               int64
	NavigationItemID int64
	ApprovedBy       *int64
	ApproverName     string
	Note             string
	CreatedAt        time.Time
}

type Acknowledgement struct {
	ID               int64
	NavigationItemID int64
	AcknowledgedBy   *int64
	UserName         string
	CreatedAt        time.Time
}

// ComplianceRow is the per-item rollup in the report overview.
type ComplianceRow struct {
	NavigationItemID int64
	Title            string
	Status           string
	LastReviewedAt   *time.Time
	Approvals        int
	Acknowledgements int
}

type Stats struct {
	Documents int
	Processes int
	Files     int
}
