package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"handbook/api/internal/auth"
	"handbook/api/internal/authpw"
	"handbook/api/internal/store"
)

func testToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), userID, "Tester", role, "jti-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return token
}

func doRequest(t *testing.T, server *HTTPServer, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}))

	rr := doRequest(t, server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["ok"] != true {
		t.Errorf("expected ok=true, got %v", response["ok"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	// No database handle configured means Ping reports healthy.
	server := NewHTTPServer(newTestService(&fakeStore{}))

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}))

	for _, path := range []string{"/api/navigation", "/api/search?q=policy", "/api/favorites/me"} {
		rr := doRequest(t, server, http.MethodGet, path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: expected 401, got %d", path, rr.Code)
		}
	}
}

func TestRejectsInvalidToken(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}))

	rr := doRequest(t, server, http.MethodGet, "/api/navigation", "not-a-jwt", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestNavigationListAuthorized(t *testing.T) {
	fs := &fakeStore{
		listNavigationItemsFn: func(context.Context) ([]store.NavigationItem, error) {
			return []store.NavigationItem{{ID: 1, Title: "Root", Type: "folder"}}, nil
		},
	}
	server := NewHTTPServer(newTestService(fs))

	rr := doRequest(t, server, http.MethodGet, "/api/navigation", testToken(t, 7, "viewer"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response struct {
		Items []NavigationNodePayload `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(response.Items) != 1 || response.Items[0].Title != "Root" {
		t.Errorf("unexpected items %+v", response.Items)
	}
}

func TestViewerCannotMutate(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}))
	token := testToken(t, 7, "viewer")

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/navigation", `{"title":"X","type":"folder"}`},
		{http.MethodPut, "/api/navigation/reorder", `{"items":[{"id":1,"sort_order":0}]}`},
		{http.MethodDelete, "/api/navigation/1", ""},
		{http.MethodPost, "/api/documents", `{"navigation_item_id":1}`},
		{http.MethodPut, "/api/processes/1", `{"bpmn_xml":"<xml/>"}`},
		{http.MethodPut, "/api/tags/1", `{"tags":["hr"]}`},
	}
	for _, test := range tests {
		rr := doRequest(t, server, test.method, test.path, token, test.body)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s %s as viewer: expected 403, got %d", test.method, test.path, rr.Code)
		}
	}
}

func TestCreateNavigationItem(t *testing.T) {
	fs := &fakeStore{
		insertNavigationItemFn: func(_ context.Context, item store.NavigationItem) (store.NavigationItem, error) {
			item.ID = 9
			return item, nil
		},
	}
	server := NewHTTPServer(newTestService(fs))

	rr := doRequest(t, server, http.MethodPost, "/api/navigation", testToken(t, 7, "editor"),
		`{"title":"Policies","type":"folder"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload NavigationItemPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.ID != 9 || payload.Status != "draft" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestDeleteNavigationItemConflict(t *testing.T) {
	fs := &fakeStore{
		countChildrenFn: func(context.Context, int64) (int, error) { return 3, nil },
	}
	server := NewHTTPServer(newTestService(fs))

	rr := doRequest(t, server, http.MethodDelete, "/api/navigation/5", testToken(t, 7, "admin"), "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["code"] != "HAS_CHILDREN" {
		t.Errorf("expected HAS_CHILDREN, got %v", response["code"])
	}
}

func TestNavigationItemNotFound(t *testing.T) {
	fs := &fakeStore{
		getNavigationItemFn: func(context.Context, int64) (store.NavigationItem, error) {
			return store.NavigationItem{}, sql.ErrNoRows
		},
	}
	server := NewHTTPServer(newTestService(fs))

	rr := doRequest(t, server, http.MethodGet, "/api/navigation/123", testToken(t, 7, "viewer"), "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestNavigationIDValidation(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}))

	rr := doRequest(t, server, http.MethodGet, "/api/navigation/abc", testToken(t, 7, "viewer"), "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
}

func TestReorderEndpoint(t *testing.T) {
	var got []store.ReorderEntry
	fs := &fakeStore{
		reorderNavigationItemsFn: func(_ context.Context, entries []store.ReorderEntry) (int, error) {
			got = entries
			return len(entries), nil
		},
	}
	server := NewHTTPServer(newTestService(fs))

	// The canonical wire shape is a top-level array.
	body := `[{"id":2,"parent_id":1,"sort_order":0},{"id":3,"parent_id":null,"sort_order":1}]`
	rr := doRequest(t, server, http.MethodPut, "/api/navigation/reorder", testToken(t, 7, "editor"), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response struct {
		Success bool `json:"success"`
		Updated int  `json:"updated"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !response.Success || response.Updated != 2 {
		t.Errorf("unexpected response %+v", response)
	}
	if len(got) != 2 || got[0].ParentID == nil || *got[0].ParentID != 1 || got[1].ParentID != nil {
		t.Errorf("unexpected entries %+v", got)
	}
}

func TestReorderEndpointWrappedForm(t *testing.T) {
	fs := &fakeStore{
		reorderNavigationItemsFn: func(_ context.Context, entries []store.ReorderEntry) (int, error) {
			return len(entries), nil
		},
	}
	server := NewHTTPServer(newTestService(fs))

	body := `{"items":[{"id":2,"parent_id":1,"sort_order":0}]}`
	rr := doRequest(t, server, http.MethodPut, "/api/navigation/reorder", testToken(t, 7, "editor"), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStatsEndpointKeys(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}))

	rr := doRequest(t, server, http.MethodGet, "/api/stats", testToken(t, 7, "viewer"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, key := range []string{"documents", "processes", "files"} {
		if _, ok := response[key]; !ok {
			t.Errorf("expected key %q in stats response, got %v", key, response)
		}
	}
}

func TestToggleFavoriteEndpoint(t *testing.T) {
	fs := &fakeStore{
		getNavigationItemFn: func(_ context.Context, id int64) (store.NavigationItem, error) {
			return store.NavigationItem{ID: id}, nil
		},
		toggleFavoriteFn: func(context.Context, int64, int64) (bool, error) { return true, nil },
	}
	server := NewHTTPServer(newTestService(fs))

	rr := doRequest(t, server, http.MethodPost, "/api/favorites/toggle", testToken(t, 7, "viewer"),
		`{"navigation_item_id":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["favorited"] != true {
		t.Errorf("expected favorited=true, got %v", response["favorited"])
	}
}

func TestLoginEndpoint(t *testing.T) {
	hash, err := authpw.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	fs := &fakeStore{
		getUserByLoginFn: func(_ context.Context, login string) (store.User, error) {
			if login != "edie" {
				return store.User{}, sql.ErrNoRows
			}
			return store.User{ID: 7, Username: "edie", DisplayName: "Edie", Role: "editor", PasswordHash: hash}, nil
		},
	}
	server := NewHTTPServer(newTestService(fs))

	rr := doRequest(t, server, http.MethodPost, "/api/auth/login", "", `{"login":"edie","password":"s3cret"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result LoginResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result.Token == "" || result.RefreshToken == "" || result.User.Username != "edie" {
		t.Errorf("unexpected login result %+v", result)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/auth/login", "", `{"login":"edie","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", rr.Code)
	}
}
