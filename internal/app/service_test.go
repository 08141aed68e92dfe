package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"handbook/api/internal/authpw"
	"handbook/api/internal/search"
	"handbook/api/internal/session"
	"handbook/api/internal/store"
)

type fakeStore struct {
	getUserByLoginFn         func(context.Context, string) (store.User, error)
	getUserByIDFn            func(context.Context, int64) (store.User, error)
	getNavigationItemFn      func(context.Context, int64) (store.NavigationItem, error)
	listNavigationItemsFn    func(context.Context) ([]store.NavigationItem, error)
	insertNavigationItemFn   func(context.Context, store.NavigationItem) (store.NavigationItem, error)
	countChildrenFn          func(context.Context, int64) (int, error)
	deleteNavigationItemFn   func(context.Context, int64) error
	reorderNavigationItemsFn func(context.Context, []store.ReorderEntry) (int, error)
	getDocumentFn            func(context.Context, int64) (store.Document, error)
	getDocumentByNavFn       func(context.Context, int64) (store.Document, error)
	getProcessByNavFn        func(context.Context, int64) (store.Process, error)
	insertDocumentFn         func(context.Context, int64, []byte, string, int64) (store.Document, error)
	saveDocumentContentFn    func(context.Context, int64, []byte, string, []string, int64) (store.Document, error)
	listBacklinksFn          func(context.Context, int64) ([]store.LinkedItem, error)
	toggleFavoriteFn         func(context.Context, int64, int64) (bool, error)
	updateProcessFn          func(context.Context, int64, string, int64) (store.Process, error)
	replaceItemTagsFn        func(context.Context, int64, []string) ([]store.Tag, error)
}

func (f *fakeStore) GetUserByLogin(ctx context.Context, login string) (store.User, error) {
	if f.getUserByLoginFn != nil {
		return f.getUserByLoginFn(ctx, login)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetNavigationItem(ctx context.Context, id int64) (store.NavigationItem, error) {
	if f.getNavigationItemFn != nil {
		return f.getNavigationItemFn(ctx, id)
	}
	return store.NavigationItem{}, sql.ErrNoRows
}
func (f *fakeStore) ListNavigationItems(ctx context.Context) ([]store.NavigationItem, error) {
	if f.listNavigationItemsFn != nil {
		return f.listNavigationItemsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ListChildren(context.Context, *int64) ([]store.NavigationItem, error) {
	return nil, nil
}
func (f *fakeStore) InsertNavigationItem(ctx context.Context, item store.NavigationItem) (store.NavigationItem, error) {
	if f.insertNavigationItemFn != nil {
		return f.insertNavigationItemFn(ctx, item)
	}
	item.ID = 1
	return item, nil
}
func (f *fakeStore) UpdateNavigationItem(context.Context, int64, store.NavigationItemPatch) (store.NavigationItem, error) {
	return store.NavigationItem{}, sql.ErrNoRows
}
func (f *fakeStore) CountChildren(ctx context.Context, id int64) (int, error) {
	if f.countChildrenFn != nil {
		return f.countChildrenFn(ctx, id)
	}
	return 0, nil
}
func (f *fakeStore) DeleteNavigationItem(ctx context.Context, id int64) error {
	if f.deleteNavigationItemFn != nil {
		return f.deleteNavigationItemFn(ctx, id)
	}
	return nil
}
func (f *fakeStore) ReorderNavigationItems(ctx context.Context, entries []store.ReorderEntry) (int, error) {
	if f.reorderNavigationItemsFn != nil {
		return f.reorderNavigationItemsFn(ctx, entries)
	}
	return len(entries), nil
}
func (f *fakeStore) GetDocument(ctx context.Context, id int64) (store.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, id)
	}
	return store.Document{}, sql.ErrNoRows
}
func (f *fakeStore) GetDocumentByNavigationItem(ctx context.Context, navID int64) (store.Document, error) {
	if f.getDocumentByNavFn != nil {
		return f.getDocumentByNavFn(ctx, navID)
	}
	return store.Document{}, sql.ErrNoRows
}
func (f *fakeStore) ListDocuments(context.Context, *int64) ([]store.Document, error) {
	return nil, nil
}
func (f *fakeStore) InsertDocument(ctx context.Context, navID int64, content []byte, text string, createdBy int64) (store.Document, error) {
	if f.insertDocumentFn != nil {
		return f.insertDocumentFn(ctx, navID, content, text, createdBy)
	}
	return store.Document{ID: 1, NavigationItemID: navID, Content: content, ContentText: text}, nil
}
func (f *fakeStore) SaveDocumentContent(ctx context.Context, id int64, content []byte, text string, titles []string, updatedBy int64) (store.Document, error) {
	if f.saveDocumentContentFn != nil {
		return f.saveDocumentContentFn(ctx, id, content, text, titles, updatedBy)
	}
	return store.Document{ID: id, Content: content, ContentText: text}, nil
}
func (f *fakeStore) ListOutgoingLinks(context.Context, int64) ([]store.LinkedItem, error) {
	return nil, nil
}
func (f *fakeStore) ListBacklinks(ctx context.Context, navID int64) ([]store.LinkedItem, error) {
	if f.listBacklinksFn != nil {
		return f.listBacklinksFn(ctx, navID)
	}
	return nil, nil
}
func (f *fakeStore) GetProcess(context.Context, int64) (store.Process, error) {
	return store.Process{}, sql.ErrNoRows
}
func (f *fakeStore) GetProcessByNavigationItem(ctx context.Context, navID int64) (store.Process, error) {
	if f.getProcessByNavFn != nil {
		return f.getProcessByNavFn(ctx, navID)
	}
	return store.Process{}, sql.ErrNoRows
}
func (f *fakeStore) ListProcesses(context.Context, *int64) ([]store.Process, error) {
	return nil, nil
}
func (f *fakeStore) InsertProcess(ctx context.Context, navID int64, xml string, createdBy int64) (store.Process, error) {
	return store.Process{ID: 1, NavigationItemID: navID, BpmnXML: xml, Version: 1}, nil
}
func (f *fakeStore) UpdateProcess(ctx context.Context, id int64, xml string, updatedBy int64) (store.Process, error) {
	if f.updateProcessFn != nil {
		return f.updateProcessFn(ctx, id, xml, updatedBy)
	}
	return store.Process{}, sql.ErrNoRows
}
func (f *fakeStore) GetFile(context.Context, int64) (store.File, error) {
	return store.File{}, sql.ErrNoRows
}
func (f *fakeStore) ListFiles(context.Context, *int64) ([]store.File, error) { return nil, nil }
func (f *fakeStore) InsertFile(ctx context.Context, file store.File) (store.File, error) {
	file.ID = 1
	return file, nil
}
func (f *fakeStore) DeleteFile(context.Context, int64) (store.File, error) {
	return store.File{}, sql.ErrNoRows
}
func (f *fakeStore) ListTags(context.Context) ([]store.Tag, error) { return nil, nil }
func (f *fakeStore) ListItemTags(context.Context, int64) ([]store.Tag, error) {
	return nil, nil
}
func (f *fakeStore) ReplaceItemTags(ctx context.Context, navID int64, names []string) ([]store.Tag, error) {
	if f.replaceItemTagsFn != nil {
		return f.replaceItemTagsFn(ctx, navID, names)
	}
	return nil, nil
}
func (f *fakeStore) ToggleFavorite(ctx context.Context, userID, navID int64) (bool, error) {
	if f.toggleFavoriteFn != nil {
		return f.toggleFavoriteFn(ctx, userID, navID)
	}
	return false, nil
}
func (f *fakeStore) ListFavorites(context.Context, int64) ([]store.NavigationItem, error) {
	return nil, nil
}
func (f *fakeStore) RecordVisit(context.Context, int64, int64) error { return nil }
func (f *fakeStore) ListRecents(context.Context, int64, int) ([]store.RecentItem, error) {
	return nil, nil
}
func (f *fakeStore) UpsertReview(context.Context, int64, int64, string, string) (store.Review, error) {
	return store.Review{}, nil
}
func (f *fakeStore) InsertApproval(context.Context, int64, int64, string, string) (store.Approval, error) {
	return store.Approval{}, nil
}
func (f *fakeStore) InsertAcknowledgement(context.Context, int64, int64, string) (store.Acknowledgement, error) {
	return store.Acknowledgement{}, nil
}
func (f *fakeStore) ComplianceOverview(context.Context) ([]store.ComplianceRow, error) {
	return nil, nil
}
func (f *fakeStore) CountStats(context.Context) (store.Stats, error) { return store.Stats{}, nil }

// fakeSearch records index and delete calls.
type fakeSearch struct {
	mu               sync.Mutex
	deletedNav       []int64
	deletedDocs      []int64
	deletedProcesses []int64
}

func (f *fakeSearch) Search(context.Context, search.Query) search.Response {
	return search.Response{}
}
func (f *fakeSearch) IndexNavigation(search.NavigationRecord) {}
func (f *fakeSearch) IndexDocument(search.DocumentRecord)     {}
func (f *fakeSearch) IndexProcess(search.ProcessRecord)       {}
func (f *fakeSearch) DeleteNavigation(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedNav = append(f.deletedNav, id)
}
func (f *fakeSearch) DeleteDocument(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDocs = append(f.deletedDocs, id)
}
func (f *fakeSearch) DeleteProcess(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedProcesses = append(f.deletedProcesses, id)
}

// fakeSessions is an in-memory session.Store.
type fakeSessions struct {
	mu      sync.Mutex
	saved   map[string]session.Data
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(map[string]session.Data)}
}

func (f *fakeSessions) Save(_ context.Context, tokenHash string, userID int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[tokenHash] = session.Data{UserID: userID, CreatedAt: time.Now()}
	return nil
}

func (f *fakeSessions) Lookup(_ context.Context, tokenHash string) (session.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.saved[tokenHash]
	if !ok {
		return session.Data{}, session.ErrNotFound
	}
	return data, nil
}

func (f *fakeSessions) Revoke(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, tokenHash)
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		store:      fs,
		sessions:   newFakeSessions(),
		passwords:  authpw.New(fs),
		search:     &fakeSearch{},
		jwtSecret:  []byte("test-secret"),
		accessTTL:  time.Hour,
		refreshTTL: 24 * time.Hour,
	}
}

func editorSession() Session {
	return Session{UserID: 7, UserName: "Edie", Role: "editor"}
}

func TestBreadcrumbsRootFirst(t *testing.T) {
	parentOf := map[int64]*int64{1: nil, 2: ptr(int64(1)), 3: ptr(int64(2))}
	fs := &fakeStore{
		getNavigationItemFn: func(_ context.Context, id int64) (store.NavigationItem, error) {
			parent, ok := parentOf[id]
			if !ok {
				return store.NavigationItem{}, sql.ErrNoRows
			}
			return store.NavigationItem{ID: id, ParentID: parent, Title: "Item"}, nil
		},
	}
	svc := newTestService(fs)

	chain, err := svc.Breadcrumbs(context.Background(), 3)
	if err != nil {
		t.Fatalf("Breadcrumbs failed: %v", err)
	}
	got := make([]int64, 0, len(chain))
	for _, crumb := range chain {
		got = append(got, crumb.ID)
	}
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected chain %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected chain %v, got %v", want, got)
		}
	}
}

func TestBreadcrumbsTruncatesOnCycle(t *testing.T) {
	// 1 -> 2 -> 1 -> ... must stop at the depth bound, not loop.
	fs := &fakeStore{
		getNavigationItemFn: func(_ context.Context, id int64) (store.NavigationItem, error) {
			other := int64(1)
			if id == 1 {
				other = 2
			}
			return store.NavigationItem{ID: id, ParentID: &other}, nil
		},
	}
	svc := newTestService(fs)

	chain, err := svc.Breadcrumbs(context.Background(), 1)
	if err != nil {
		t.Fatalf("Breadcrumbs failed: %v", err)
	}
	if len(chain) != breadcrumbDepthLimit {
		t.Errorf("expected %d crumbs, got %d", breadcrumbDepthLimit, len(chain))
	}
	if chain[len(chain)-1].ID != 1 {
		t.Errorf("expected chain to end at requested item, got %d", chain[len(chain)-1].ID)
	}
}

func TestBreadcrumbsUnknownItem(t *testing.T) {
	svc := newTestService(&fakeStore{})
	if _, err := svc.Breadcrumbs(context.Background(), 99); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDeleteNavigationItemWithChildren(t *testing.T) {
	fs := &fakeStore{
		countChildrenFn: func(context.Context, int64) (int, error) { return 2, nil },
		deleteNavigationItemFn: func(context.Context, int64) error {
			t.Fatal("delete must not run when children exist")
			return nil
		},
	}
	svc := newTestService(fs)

	err := svc.DeleteNavigationItem(context.Background(), 5)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != http.StatusConflict || domainErr.Code != "HAS_CHILDREN" {
		t.Errorf("expected 409 HAS_CHILDREN, got %d %s", domainErr.Status, domainErr.Code)
	}
}

func TestDeleteNavigationItemLeaf(t *testing.T) {
	deleted := false
	fs := &fakeStore{
		deleteNavigationItemFn: func(_ context.Context, id int64) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(fs)

	if err := svc.DeleteNavigationItem(context.Background(), 5); err != nil {
		t.Fatalf("DeleteNavigationItem failed: %v", err)
	}
	if !deleted {
		t.Error("expected store delete to run")
	}
}

func TestDeleteNavigationItemPurgesSearchEntries(t *testing.T) {
	fs := &fakeStore{
		getDocumentByNavFn: func(_ context.Context, navID int64) (store.Document, error) {
			return store.Document{ID: 31, NavigationItemID: navID}, nil
		},
		getProcessByNavFn: func(_ context.Context, navID int64) (store.Process, error) {
			return store.Process{ID: 17, NavigationItemID: navID}, nil
		},
	}
	svc := newTestService(fs)
	idx := svc.search.(*fakeSearch)

	if err := svc.DeleteNavigationItem(context.Background(), 5); err != nil {
		t.Fatalf("DeleteNavigationItem failed: %v", err)
	}
	if len(idx.deletedNav) != 1 || idx.deletedNav[0] != 5 {
		t.Errorf("expected navigation 5 removed from search, got %v", idx.deletedNav)
	}
	if len(idx.deletedDocs) != 1 || idx.deletedDocs[0] != 31 {
		t.Errorf("expected document 31 removed from search, got %v", idx.deletedDocs)
	}
	if len(idx.deletedProcesses) != 1 || idx.deletedProcesses[0] != 17 {
		t.Errorf("expected process 17 removed from search, got %v", idx.deletedProcesses)
	}
}

func TestDeleteNavigationItemWithoutOwnedRows(t *testing.T) {
	// Folders own no document or process; only the item itself leaves
	// the index.
	svc := newTestService(&fakeStore{})
	idx := svc.search.(*fakeSearch)

	if err := svc.DeleteNavigationItem(context.Background(), 5); err != nil {
		t.Fatalf("DeleteNavigationItem failed: %v", err)
	}
	if len(idx.deletedNav) != 1 {
		t.Errorf("expected one navigation delete, got %v", idx.deletedNav)
	}
	if len(idx.deletedDocs) != 0 || len(idx.deletedProcesses) != 0 {
		t.Errorf("expected no document/process deletes, got %v %v", idx.deletedDocs, idx.deletedProcesses)
	}
}

func TestReorderPassesEntriesThrough(t *testing.T) {
	var got []store.ReorderEntry
	fs := &fakeStore{
		reorderNavigationItemsFn: func(_ context.Context, entries []store.ReorderEntry) (int, error) {
			got = entries
			return len(entries), nil
		},
	}
	svc := newTestService(fs)

	parent := int64(1)
	updated, err := svc.Reorder(context.Background(), []ReorderInput{
		{ID: 10, ParentID: &parent, SortOrder: 0},
		{ID: 11, ParentID: nil, SortOrder: 1},
	})
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("expected 2 updated, got %d", updated)
	}
	if len(got) != 2 || got[0].ID != 10 || got[1].ParentID != nil {
		t.Errorf("unexpected entries passed to store: %+v", got)
	}
}

func TestReorderRejectsEmptyBatch(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.Reorder(context.Background(), nil)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400 DomainError, got %v", err)
	}
}

func TestSaveDocumentExtractsWikiLinks(t *testing.T) {
	var gotTitles []string
	var gotText string
	fs := &fakeStore{
		saveDocumentContentFn: func(_ context.Context, id int64, content []byte, text string, titles []string, _ int64) (store.Document, error) {
			gotTitles = titles
			gotText = text
			return store.Document{ID: id, NavigationItemID: 11, Content: content, ContentText: text}, nil
		},
	}
	svc := newTestService(fs)

	content := json.RawMessage(`{"blocks":[{"type":"paragraph","data":{"text":"See [[Security Policy]] and [[security policy]]."}}]}`)
	doc, err := svc.SaveDocument(context.Background(), editorSession(), 3, SaveDocumentInput{Content: content})
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if doc.NavigationItemID != 11 {
		t.Errorf("unexpected navigation item id %d", doc.NavigationItemID)
	}
	if len(gotTitles) != 1 || gotTitles[0] != "Security Policy" {
		t.Errorf("expected deduplicated titles [Security Policy], got %v", gotTitles)
	}
	if gotText == "" {
		t.Error("expected plain text extraction")
	}
}

func TestCreateDocumentWithLinksRunsLinkSync(t *testing.T) {
	synced := false
	fs := &fakeStore{
		insertDocumentFn: func(_ context.Context, navID int64, content []byte, text string, _ int64) (store.Document, error) {
			return store.Document{ID: 42, NavigationItemID: navID, Content: content, ContentText: text}, nil
		},
		saveDocumentContentFn: func(_ context.Context, id int64, content []byte, text string, titles []string, _ int64) (store.Document, error) {
			synced = true
			if id != 42 {
				t.Errorf("expected link sync on document 42, got %d", id)
			}
			if len(titles) != 1 || titles[0] != "Onboarding" {
				t.Errorf("unexpected titles %v", titles)
			}
			return store.Document{ID: id, NavigationItemID: 12, Content: content, ContentText: text}, nil
		},
	}
	svc := newTestService(fs)

	content := json.RawMessage(`{"blocks":[{"type":"paragraph","data":{"text":"Start at [[Onboarding]]."}}]}`)
	if _, err := svc.CreateDocument(context.Background(), editorSession(), CreateDocumentInput{NavigationItemID: 12, Content: content}); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if !synced {
		t.Error("expected wiki-link sync to run for linked content")
	}
}

func TestBacklinksUsesNavigationItemID(t *testing.T) {
	fs := &fakeStore{
		getDocumentFn: func(_ context.Context, id int64) (store.Document, error) {
			return store.Document{ID: id, NavigationItemID: 12}, nil
		},
		listBacklinksFn: func(_ context.Context, navID int64) ([]store.LinkedItem, error) {
			if navID != 12 {
				t.Errorf("expected backlinks query for item 12, got %d", navID)
			}
			return []store.LinkedItem{{NavigationItemID: 11, Title: "Handbook", Type: "document"}}, nil
		},
	}
	svc := newTestService(fs)

	items, err := svc.Backlinks(context.Background(), 42)
	if err != nil {
		t.Fatalf("Backlinks failed: %v", err)
	}
	if len(items) != 1 || items[0].NavigationItemID != 11 {
		t.Errorf("unexpected backlinks %+v", items)
	}
}

func TestToggleFavorite(t *testing.T) {
	favorited := map[int64]bool{}
	fs := &fakeStore{
		getNavigationItemFn: func(_ context.Context, id int64) (store.NavigationItem, error) {
			return store.NavigationItem{ID: id}, nil
		},
		toggleFavoriteFn: func(_ context.Context, _, navID int64) (bool, error) {
			favorited[navID] = !favorited[navID]
			return favorited[navID], nil
		},
	}
	svc := newTestService(fs)

	on, err := svc.ToggleFavorite(context.Background(), editorSession(), 5)
	if err != nil || !on {
		t.Fatalf("expected first toggle to favorite, got %v %v", on, err)
	}
	off, err := svc.ToggleFavorite(context.Background(), editorSession(), 5)
	if err != nil || off {
		t.Fatalf("expected second toggle to unfavorite, got %v %v", off, err)
	}
}

func TestToggleFavoriteUnknownItem(t *testing.T) {
	svc := newTestService(&fakeStore{})
	if _, err := svc.ToggleFavorite(context.Background(), editorSession(), 404); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestCreateNavigationItemValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	tests := []struct {
		name  string
		input CreateNavigationInput
	}{
		{"missing title", CreateNavigationInput{Type: "folder"}},
		{"bad type", CreateNavigationInput{Title: "X", Type: "widget"}},
		{"bad status", CreateNavigationInput{Title: "X", Type: "folder", Status: "published"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.CreateNavigationItem(context.Background(), editorSession(), test.input)
			var domainErr *DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestCreateNavigationItemDefaultsStatus(t *testing.T) {
	fs := &fakeStore{
		insertNavigationItemFn: func(_ context.Context, item store.NavigationItem) (store.NavigationItem, error) {
			if item.Status != "draft" {
				t.Errorf("expected default status draft, got %q", item.Status)
			}
			item.ID = 1
			return item, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.CreateNavigationItem(context.Background(), editorSession(), CreateNavigationInput{Title: "Policies", Type: "folder"}); err != nil {
		t.Fatalf("CreateNavigationItem failed: %v", err)
	}
}

func TestNavigationListBuildsChildrenArrays(t *testing.T) {
	root := int64(1)
	fs := &fakeStore{
		listNavigationItemsFn: func(context.Context) ([]store.NavigationItem, error) {
			return []store.NavigationItem{
				{ID: 1, Title: "Root", Type: "folder"},
				{ID: 2, ParentID: &root, Title: "A", Type: "document", SortOrder: 0},
				{ID: 3, ParentID: &root, Title: "B", Type: "document", SortOrder: 1},
			}, nil
		},
	}
	svc := newTestService(fs)

	nodes, err := svc.NavigationList(context.Background())
	if err != nil {
		t.Fatalf("NavigationList failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if len(nodes[0].Children) != 2 || nodes[0].Children[0] != 2 || nodes[0].Children[1] != 3 {
		t.Errorf("unexpected root children %v", nodes[0].Children)
	}
	if len(nodes[1].Children) != 0 {
		t.Errorf("expected leaf to have empty children, got %v", nodes[1].Children)
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	hash, err := authpw.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user := store.User{ID: 7, Username: "edie", DisplayName: "Edie", Role: "editor", PasswordHash: hash}
	fs := &fakeStore{
		getUserByLoginFn: func(_ context.Context, login string) (store.User, error) {
			if login != "edie" {
				return store.User{}, sql.ErrNoRows
			}
			return user, nil
		},
		getUserByIDFn: func(_ context.Context, id int64) (store.User, error) {
			if id != 7 {
				return store.User{}, sql.ErrNoRows
			}
			return user, nil
		},
	}
	svc := newTestService(fs)
	sessions := svc.sessions.(*fakeSessions)

	login, err := svc.Login(context.Background(), "edie", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.Token == "" || login.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if login.User.Role != "editor" {
		t.Errorf("unexpected user payload %+v", login.User)
	}

	parsed, err := svc.SessionFromToken(context.Background(), login.Token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	if parsed.UserID != 7 || parsed.Role != "editor" {
		t.Errorf("unexpected session %+v", parsed)
	}

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected refresh token rotation")
	}
	if len(sessions.revoked) != 1 {
		t.Errorf("expected the spent token to be revoked, got %v", sessions.revoked)
	}

	// The spent token is gone.
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); err == nil {
		t.Error("expected reuse of a rotated refresh token to fail")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.Login(context.Background(), "nobody", "wrong")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401 DomainError, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
