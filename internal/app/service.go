package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"handbook/api/internal/auth"
	"handbook/api/internal/authpw"
	"handbook/api/internal/blob"
	"handbook/api/internal/editorjs"
	"handbook/api/internal/export"
	"handbook/api/internal/history"
	"handbook/api/internal/links"
	"handbook/api/internal/search"
	"handbook/api/internal/session"
	"handbook/api/internal/store"
	"handbook/api/internal/util"
)

// breadcrumbDepthLimit caps the upward parent walk; hitting it
// truncates the chain instead of failing.
const breadcrumbDepthLimit = 50

// Session is the authenticated caller for the current request.
type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is everything the service needs from persistence.
// *store.PostgresStore satisfies it; tests substitute a fake.
type dataStore interface {
	GetUserByLogin(context.Context, string) (store.User, error)
	GetUserByID(context.Context, int64) (store.User, error)

	GetNavigationItem(context.Context, int64) (store.NavigationItem, error)
	ListNavigationItems(context.Context) ([]store.NavigationItem, error)
	ListChildren(context.Context, *int64) ([]store.NavigationItem, error)
	InsertNavigationItem(context.Context, store.NavigationItem) (store.NavigationItem, error)
	UpdateNavigationItem(context.Context, int64, store.NavigationItemPatch) (store.NavigationItem, error)
	CountChildren(context.Context, int64) (int, error)
	DeleteNavigationItem(context.Context, int64) error
	ReorderNavigationItems(context.Context, []store.ReorderEntry) (int, error)

	GetDocument(context.Context, int64) (store.Document, error)
	GetDocumentByNavigationItem(context.Context, int64) (store.Document, error)
	ListDocuments(context.Context, *int64) ([]store.Document, error)
	InsertDocument(context.Context, int64, []byte, string, int64) (store.Document, error)
	SaveDocumentContent(context.Context, int64, []byte, string, []string, int64) (store.Document, error)
	ListOutgoingLinks(context.Context, int64) ([]store.LinkedItem, error)
	ListBacklinks(context.Context, int64) ([]store.LinkedItem, error)

	GetProcess(context.Context, int64) (store.Process, error)
	GetProcessByNavigationItem(context.Context, int64) (store.Process, error)
	ListProcesses(context.Context, *int64) ([]store.Process, error)
	InsertProcess(context.Context, int64, string, int64) (store.Process, error)
	UpdateProcess(context.Context, int64, string, int64) (store.Process, error)

	GetFile(context.Context, int64) (store.File, error)
	ListFiles(context.Context, *int64) ([]store.File, error)
	InsertFile(context.Context, store.File) (store.File, error)
	DeleteFile(context.Context, int64) (store.File, error)

	ListTags(context.Context) ([]store.Tag, error)
	ListItemTags(context.Context, int64) ([]store.Tag, error)
	ReplaceItemTags(context.Context, int64, []string) ([]store.Tag, error)

	ToggleFavorite(context.Context, int64, int64) (bool, error)
	ListFavorites(context.Context, int64) ([]store.NavigationItem, error)
	RecordVisit(context.Context, int64, int64) error
	ListRecents(context.Context, int64, int) ([]store.RecentItem, error)

	UpsertReview(context.Context, int64, int64, string, string) (store.Review, error)
	InsertApproval(context.Context, int64, int64, string, string) (store.Approval, error)
	InsertAcknowledgement(context.Context, int64, int64, string) (store.Acknowledgement, error)
	ComplianceOverview(context.Context) ([]store.ComplianceRow, error)

	CountStats(context.Context) (store.Stats, error)
}

// searchIndexer is what the service needs from the search facade;
// *search.Service satisfies it.
type searchIndexer interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexNavigation(rec search.NavigationRecord)
	IndexDocument(rec search.DocumentRecord)
	IndexProcess(rec search.ProcessRecord)
	DeleteNavigation(id int64)
	DeleteDocument(id int64)
	DeleteProcess(id int64)
}

type Service struct {
	store      dataStore
	db         *sql.DB
	sessions   session.Store
	passwords  *authpw.Service
	search     searchIndexer
	history    *history.Service
	blobs      blob.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	production bool
}

type ServiceOptions struct {
	Store      dataStore
	DB         *sql.DB
	Sessions   session.Store
	Passwords  *authpw.Service
	Search     searchIndexer
	History    *history.Service
	Blobs      blob.Store
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Production bool
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		store:      opts.Store,
		db:         opts.DB,
		sessions:   opts.Sessions,
		passwords:  opts.Passwords,
		search:     opts.Search,
		history:    opts.History,
		blobs:      opts.Blobs,
		jwtSecret:  opts.JWTSecret,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		production: opts.Production,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *Service) Production() bool {
	return s.production
}

// ---- auth ----

type UserPayload struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type LoginResult struct {
	User         UserPayload `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
}

func userPayload(user store.User) UserPayload {
	return UserPayload{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
}

func (s *Service) Login(ctx context.Context, login, password string) (LoginResult, error) {
	err := validation.Errors{
		"login":    validation.Validate(login, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}.Filter()
	if err != nil {
		return LoginResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "login and password are required", err)
	}

	user, err := s.passwords.Authenticate(ctx, login, password)
	if err != nil {
		return LoginResult{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
	}

	token, refresh, err := s.issueTokens(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: userPayload(user), Token: token, RefreshToken: refresh}, nil
}

func (s *Service) issueTokens(ctx context.Context, user store.User) (token, refresh string, err error) {
	jti := uuid.NewString()
	token, err = auth.IssueToken(s.jwtSecret, user.ID, user.DisplayName, user.Role, jti, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}

	refresh = util.NewToken()
	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), user.ID, expiresAt); err != nil {
		return "", "", fmt.Errorf("save refresh session: %w", err)
	}
	return token, refresh, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if refreshToken == "" {
		return LoginResult{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token required", nil)
	}

	hash := auth.HashToken(refreshToken)
	data, err := s.sessions.Lookup(ctx, hash)
	if err != nil {
		return LoginResult{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	user, err := s.store.GetUserByID(ctx, data.UserID)
	if err != nil {
		return LoginResult{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	// Rotate: the presented token is spent either way.
	if err := s.sessions.Revoke(ctx, hash); err != nil {
		log.Warn().Err(err).Msg("auth: revoke rotated refresh token")
	}

	token, refresh, err := s.issueTokens(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: userPayload(user), Token: token, RefreshToken: refresh}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.jwtSecret, token)
	if err != nil {
		return Session{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return Session{
		Token:     token,
		UserID:    userID,
		UserName:  claims.Name,
		Role:      claims.Role,
		JTI:       claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, session Session) (UserPayload, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return UserPayload{}, err
	}
	return userPayload(user), nil
}

// ---- navigation ----

type NavigationItemPayload struct {
	ID        int64     `json:"id"`
	ParentID  *int64    `json:"parentId"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NavigationNodePayload is the flat listing form: every item plus the
// ids of its direct children in sibling order.
type NavigationNodePayload struct {
	NavigationItemPayload
	Children []int64 `json:"children"`
}

func navigationPayload(item store.NavigationItem) NavigationItemPayload {
	return NavigationItemPayload{
		ID:        item.ID,
		ParentID:  item.ParentID,
		Title:     item.Title,
		Type:      item.Type,
		Status:    item.Status,
		Icon:      item.Icon,
		SortOrder: item.SortOrder,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// NavigationList returns the whole forest as a flat list; clients
// rebuild the tree from parentId plus the children arrays.
func (s *Service) NavigationList(ctx context.Context) ([]NavigationNodePayload, error) {
	items, err := s.store.ListNavigationItems(ctx)
	if err != nil {
		return nil, err
	}

	childIDs := make(map[int64][]int64, len(items))
	for _, item := range items {
		if item.ParentID != nil {
			childIDs[*item.ParentID] = append(childIDs[*item.ParentID], item.ID)
		}
	}

	nodes := make([]NavigationNodePayload, 0, len(items))
	for _, item := range items {
		children := childIDs[item.ID]
		if children == nil {
			children = []int64{}
		}
		nodes = append(nodes, NavigationNodePayload{
			NavigationItemPayload: navigationPayload(item),
			Children:              children,
		})
	}
	return nodes, nil
}

func (s *Service) NavigationItem(ctx context.Context, id int64) (NavigationItemPayload, error) {
	item, err := s.store.GetNavigationItem(ctx, id)
	if err != nil {
		return NavigationItemPayload{}, err
	}
	return navigationPayload(item), nil
}

type CreateNavigationInput struct {
	ParentID  *int64 `json:"parent_id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

func (in CreateNavigationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Type, validation.Required, validation.In("folder", "document", "process")),
		validation.Field(&in.Status, validation.In("draft", "in_review", "approved", "deprecated")),
	)
}

func (s *Service) CreateNavigationItem(ctx context.Context, session Session, in CreateNavigationInput) (NavigationItemPayload, error) {
	if err := in.Validate(); err != nil {
		return NavigationItemPayload{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "invalid navigation item", err)
	}
	status := in.Status
	if status == "" {
		status = "draft"
	}

	item, err := s.store.InsertNavigationItem(ctx, store.NavigationItem{
		ParentID:  in.ParentID,
		Title:     in.Title,
		Type:      in.Type,
		Status:    status,
		Icon:      in.Icon,
		SortOrder: in.SortOrder,
		CreatedBy: &session.UserID,
	})
	if err != nil {
		return NavigationItemPayload{}, err
	}

	s.search.IndexNavigation(search.NavigationRecord{
		ID:    item.ID,
		Title: item.Title,
		Type:  item.Type,
		Icon:  item.Icon,
	})
	return navigationPayload(item), nil
}

type UpdateNavigationInput struct {
	ParentID  **int64 `json:"-"`
	Title     *string `json:"title"`
	Type      *string `json:"type"`
	Status    *string `json:"status"`
	Icon      *string `json:"icon"`
	SortOrder *int    `json:"sort_order"`
}

func (in UpdateNavigationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&in.Type, validation.In("folder", "document", "process")),
		validation.Field(&in.Status, validation.In("draft", "in_review", "approved", "deprecated")),
	)
}

func (s *Service) UpdateNavigationItem(ctx context.Context, session Session, id int64, in UpdateNavigationInput) (NavigationItemPayload, error) {
	if err := in.Validate(); err != nil {
		return NavigationItemPayload{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "invalid navigation item", err)
	}

	item, err := s.store.UpdateNavigationItem(ctx, id, store.NavigationItemPatch{
		ParentID:  in.ParentID,
		Title:     in.Title,
		Type:      in.Type,
		Status:    in.Status,
		Icon:      in.Icon,
		SortOrder: in.SortOrder,
		UpdatedBy: &session.UserID,
	})
	if err != nil {
		return NavigationItemPayload{}, err
	}

	s.search.IndexNavigation(search.NavigationRecord{
		ID:    item.ID,
		Title: item.Title,
		Type:  item.Type,
		Icon:  item.Icon,
	})
	return navigationPayload(item), nil
}

// DeleteNavigationItem rejects deletes of items that still have
// children; callers must move or delete the children first.
func (s *Service) DeleteNavigationItem(ctx context.Context, id int64) error {
	count, err := s.store.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domainError(http.StatusConflict, "HAS_CHILDREN", "Item still has children", map[string]any{"children": count})
	}

	// Cascading rows vanish with the item, but their search index
	// entries do not; resolve them before the row is gone.
	doc, docErr := s.store.GetDocumentByNavigationItem(ctx, id)
	proc, procErr := s.store.GetProcessByNavigationItem(ctx, id)

	if err := s.store.DeleteNavigationItem(ctx, id); err != nil {
		return err
	}
	s.search.DeleteNavigation(id)
	if docErr == nil {
		s.search.DeleteDocument(doc.ID)
	}
	if procErr == nil {
		s.search.DeleteProcess(proc.ID)
	}
	return nil
}

type ReorderInput struct {
	ID        int64  `json:"id"`
	ParentID  *int64 `json:"parent_id"`
	SortOrder int    `json:"sort_order"`
}

// Reorder applies the batch atomically. Entries naming missing items
// are skipped, not fatal; the count reflects rows actually moved.
func (s *Service) Reorder(ctx context.Context, entries []ReorderInput) (int, error) {
	if len(entries) == 0 {
		return 0, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "no reorder entries", nil)
	}
	batch := make([]store.ReorderEntry, 0, len(entries))
	for _, entry := range entries {
		batch = append(batch, store.ReorderEntry{
			ID:        entry.ID,
			ParentID:  entry.ParentID,
			SortOrder: entry.SortOrder,
		})
	}
	return s.store.ReorderNavigationItems(ctx, batch)
}

func (s *Service) Children(ctx context.Context, parentID *int64) ([]NavigationItemPayload, error) {
	items, err := s.store.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	payloads := make([]NavigationItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, navigationPayload(item))
	}
	return payloads, nil
}

// Breadcrumbs walks parent pointers upward and returns the chain
// root-first, ending at the requested item. The walk stops at the
// depth limit, so an accidental cycle truncates instead of looping.
func (s *Service) Breadcrumbs(ctx context.Context, id int64) ([]NavigationItemPayload, error) {
	chain := make([]NavigationItemPayload, 0, 8)
	current := &id
	for depth := 0; current != nil && depth < breadcrumbDepthLimit; depth++ {
		item, err := s.store.GetNavigationItem(ctx, *current)
		if err != nil {
			if depth == 0 {
				return nil, err
			}
			break
		}
		chain = append(chain, navigationPayload(item))
		current = item.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ---- documents ----

type DocumentPayload struct {
	ID               int64           `json:"id"`
	NavigationItemID int64           `json:"navigationItemId"`
	Title            string          `json:"title,omitempty"`
	Content          json.RawMessage `json:"content"`
	ContentText      string          `json:"contentText"`
	UpdatedBy        *int64          `json:"updatedBy"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func documentPayload(doc store.Document, title string) DocumentPayload {
	content := doc.Content
	if content == nil {
		content = json.RawMessage(`{}`)
	}
	return DocumentPayload{
		ID:               doc.ID,
		NavigationItemID: doc.NavigationItemID,
		Title:            title,
		Content:          content,
		ContentText:      doc.ContentText,
		UpdatedBy:        doc.UpdatedBy,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func (s *Service) GetDocumentPayload(ctx context.Context, id int64) (DocumentPayload, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return DocumentPayload{}, err
	}
	title := ""
	if item, err := s.store.GetNavigationItem(ctx, doc.NavigationItemID); err == nil {
		title = item.Title
	}
	return documentPayload(doc, title), nil
}

func (s *Service) ListDocumentPayloads(ctx context.Context, navigationItemID *int64) ([]DocumentPayload, error) {
	docs, err := s.store.ListDocuments(ctx, navigationItemID)
	if err != nil {
		return nil, err
	}
	payloads := make([]DocumentPayload, 0, len(docs))
	for _, doc := range docs {
		payloads = append(payloads, documentPayload(doc, ""))
	}
	return payloads, nil
}

type CreateDocumentInput struct {
	NavigationItemID int64           `json:"navigation_item_id"`
	Content          json.RawMessage `json:"content"`
}

func (in CreateDocumentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.NavigationItemID, validation.Required),
	)
}

func (s *Service) CreateDocument(ctx context.Context, session Session, in CreateDocumentInput) (DocumentPayload, error) {
	if err := in.Validate(); err != nil {
		return DocumentPayload{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "invalid document", err)
	}
	content := in.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}

	text := editorjs.ExtractPlainText(content)
	doc, err := s.store.InsertDocument(ctx, in.NavigationItemID, content, text, session.UserID)
	if err != nil {
		return DocumentPayload{}, err
	}
	if titles := links.ExtractTitles(text); len(titles) > 0 {
		if doc, err = s.store.SaveDocumentContent(ctx, doc.ID, content, text, titles, session.UserID); err != nil {
			return DocumentPayload{}, err
		}
	}

	s.afterDocumentSave(ctx, doc, session)
	return documentPayload(doc, ""), nil
}

type SaveDocumentInput struct {
	Content json.RawMessage `json:"content"`
}

// SaveDocument persists the new content and reconciles wiki-link edges
// in one transaction, then refreshes the search index and records a
// history snapshot.
func (s *Service) SaveDocument(ctx context.Context, session Session, id int64, in SaveDocumentInput) (DocumentPayload, error) {
	content := in.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}

	text := editorjs.ExtractPlainText(content)
	titles := links.ExtractTitles(text)
	doc, err := s.store.SaveDocumentContent(ctx, id, content, text, titles, session.UserID)
	if err != nil {
		return DocumentPayload{}, err
	}

	s.afterDocumentSave(ctx, doc, session)
	return documentPayload(doc, ""), nil
}

// afterDocumentSave does the best-effort side effects of a save:
// search indexing and a history commit. Neither failure is surfaced.
func (s *Service) afterDocumentSave(ctx context.Context, doc store.Document, session Session) {
	title := ""
	if item, err := s.store.GetNavigationItem(ctx, doc.NavigationItemID); err == nil {
		title = item.Title
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:               doc.ID,
		NavigationItemID: doc.NavigationItemID,
		Title:            title,
		Text:             doc.ContentText,
	})
	if s.history != nil {
		if _, err := s.history.Commit(doc.ID, doc.Content, session.UserName, "Save document"); err != nil {
			log.Warn().Err(err).Int64("document_id", doc.ID).Msg("history: commit failed")
		}
	}
}

type LinkedItemPayload struct {
	NavigationItemID int64  `json:"navigationItemId"`
	Title            string `json:"title"`
	Type             string `json:"type"`
	Icon             string `json:"icon,omitempty"`
}

func linkedPayloads(items []store.LinkedItem) []LinkedItemPayload {
	payloads := make([]LinkedItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, LinkedItemPayload{
			NavigationItemID: item.NavigationItemID,
			Title:            item.Title,
			Type:             item.Type,
			Icon:             item.Icon,
		})
	}
	return payloads
}

// Backlinks lists the items whose documents reference this document.
func (s *Service) Backlinks(ctx context.Context, documentID int64) ([]LinkedItemPayload, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListBacklinks(ctx, doc.NavigationItemID)
	if err != nil {
		return nil, err
	}
	return linkedPayloads(items), nil
}

// OutgoingLinks lists the items this document references.
func (s *Service) OutgoingLinks(ctx context.Context, documentID int64) ([]LinkedItemPayload, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListOutgoingLinks(ctx, doc.NavigationItemID)
	if err != nil {
		return nil, err
	}
	return linkedPayloads(items), nil
}

func (s *Service) DocumentHistory(ctx context.Context, documentID int64, limit int) ([]history.CommitInfo, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.CommitInfo{}, nil
	}
	return s.history.History(documentID, limit)
}

func (s *Service) DocumentVersion(ctx context.Context, documentID int64, hash string) (json.RawMessage, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	body, err := s.history.ContentByHash(documentID, hash)
	if errors.Is(err, history.ErrNotFound) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (s *Service) ExportDocument(ctx context.Context, documentID int64, format string) (*export.Result, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	title := "Document"
	if item, err := s.store.GetNavigationItem(ctx, doc.NavigationItemID); err == nil {
		title = item.Title
	}
	author := ""
	if doc.UpdatedBy != nil {
		if user, err := s.store.GetUserByID(ctx, *doc.UpdatedBy); err == nil {
			author = user.DisplayName
		}
	}

	result, err := export.Export(export.Request{
		Title:     title,
		Content:   doc.Content,
		Author:    author,
		UpdatedAt: doc.UpdatedAt,
		Format:    format,
	})
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "unsupported export format", nil)
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
	}
	return result, err
}

// ---- processes ----

type ProcessPayload struct {
	ID               int64     `json:"id"`
	NavigationItemID int64     `json:"navigationItemId"`
	BpmnXML          string    `json:"bpmnXml"`
	Version          int       `json:"version"`
	UpdatedBy        *int64    `json:"updatedBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func processPayload(proc store.Process) ProcessPayload {
	return ProcessPayload{
		ID:               proc.ID,
		NavigationItemID: proc.NavigationItemID,
		BpmnXML:          proc.BpmnXML,
		Version:          proc.Version,
		UpdatedBy:        proc.UpdatedBy,
		CreatedAt:        proc.CreatedAt,
		UpdatedAt:        proc.UpdatedAt,
	}
}

func (s *Service) GetProcessPayload(ctx context.Context, id int64) (ProcessPayload, error) {
	proc, err := s.store.GetProcess(ctx, id)
	if err != nil {
		return ProcessPayload{}, err
	}
	return processPayload(proc), nil
}

func (s *Service) ListProcessPayloads(ctx context.Context, navigationItemID *int64) ([]ProcessPayload, error) {
	procs, err := s.store.ListProcesses(ctx, navigationItemID)
	if err != nil {
		return nil, err
	}
	payloads := make([]ProcessPayload, 0, len(procs))
	for _, proc := range procs {
		payloads = append(payloads, processPayload(proc))
	}
	return payloads, nil
}

type CreateProcessInput struct {
	NavigationItemID int64  `json:"navigation_item_id"`
	BpmnXML          string `json:"bpmn_xml"`
}

func (in CreateProcessInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.NavigationItemID, validation.Required),
	)
}

func (s *Service) CreateProcess(ctx context.Context, session Session, in CreateProcessInput) (ProcessPayload, error) {
	if err := in.Validate(); err != nil {
		return ProcessPayload{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "invalid process", err)
	}
	proc, err := s.store.InsertProcess(ctx, in.NavigationItemID, in.BpmnXML, session.UserID)
	if err != nil {
		return ProcessPayload{}, err
	}
	s.indexProcess(ctx, proc)
	return processPayload(proc), nil
}

type SaveProcessInput struct {
	BpmnXML string `json:"bpmn_xml"`
}

// SaveProcess replaces the diagram; every save bumps the version.
func (s *Service) SaveProcess(ctx context.Context, session Session, id int64, in SaveProcessInput) (ProcessPayload, error) {
	proc, err := s.store.UpdateProcess(ctx, id, in.BpmnXML, session.UserID)
	if err != nil {
		return ProcessPayload{}, err
	}
	s.indexProcess(ctx, proc)
	return processPayload(proc), nil
}

func (s *Service) indexProcess(ctx context.Context, proc store.Process) {
	title := ""
	if item, err := s.store.GetNavigationItem(ctx, proc.NavigationItemID); err == nil {
		title = item.Title
	}
	s.search.IndexProcess(search.ProcessRecord{
		ID:               proc.ID,
		NavigationItemID: proc.NavigationItemID,
		Title:            title,
		Version:          proc.Version,
	})
}

// ---- files ----

type FilePayload struct {
	ID               int64     `json:"id"`
	NavigationItemID *int64    `json:"navigationItemId"`
	OriginalName     string    `json:"originalName"`
	MimeType         string    `json:"mimeType"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"createdAt"`
}

func filePayload(f store.File) FilePayload {
	return FilePayload{
		ID:               f.ID,
		NavigationItemID: f.NavigationItemID,
		OriginalName:     f.OriginalName,
		MimeType:         f.MimeType,
		Size:             f.Size,
		CreatedAt:        f.CreatedAt,
	}
}

// UploadFile streams the body into the blob store under a generated
// name, then records the metadata row. Stored objects are never
// overwritten.
func (s *Service) UploadFile(ctx context.Context, session Session, navigationItemID *int64, originalName, mimeType string, size int64, body io.Reader) (FilePayload, error) {
	if originalName == "" {
		return FilePayload{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "file name is required", nil)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	storedName := uuid.NewString() + filepath.Ext(originalName)
	if err := s.blobs.Save(ctx, storedName, body, size, mimeType); err != nil {
		return FilePayload{}, fmt.Errorf("store upload: %w", err)
	}

	f, err := s.store.InsertFile(ctx, store.File{
		NavigationItemID: navigationItemID,
		StoredName:       storedName,
		OriginalName:     originalName,
		MimeType:         mimeType,
		Size:             size,
		CreatedBy:        &session.UserID,
	})
	if err != nil {
		if removeErr := s.blobs.Remove(ctx, storedName); removeErr != nil {
			log.Warn().Err(removeErr).Str("object", storedName).Msg("files: orphan cleanup failed")
		}
		return FilePayload{}, err
	}
	return filePayload(f), nil
}

func (s *Service) ListFilePayloads(ctx context.Context, navigationItemID *int64) ([]FilePayload, error) {
	files, err := s.store.ListFiles(ctx, navigationItemID)
	if err != nil {
		return nil, err
	}
	payloads := make([]FilePayload, 0, len(files))
	for _, f := range files {
		payloads = append(payloads, filePayload(f))
	}
	return payloads, nil
}

// OpenFile returns the metadata and a reader over the stored bytes.
func (s *Service) OpenFile(ctx context.Context, id int64) (store.File, io.ReadCloser, error) {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return store.File{}, nil, err
	}
	reader, err := s.blobs.Open(ctx, f.StoredName)
	if err != nil {
		return store.File{}, nil, fmt.Errorf("open stored object: %w", err)
	}
	return f, reader, nil
}

// DeleteFile removes the row first; the stored object is removed
// best-effort afterwards.
func (s *Service) DeleteFile(ctx context.Context, id int64) error {
	f, err := s.store.DeleteFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, f.StoredName); err != nil {
		log.Warn().Err(err).Str("object", f.StoredName).Msg("files: object removal failed")
	}
	return nil
}

// ---- search ----

func (s *Service) Search(ctx context.Context, q string, limit, offset int) search.Response {
	return s.search.Search(ctx, search.Query{Text: q, Limit: limit, Offset: offset})
}

// ---- tags ----

type TagPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func tagPayloads(tags []store.Tag) []TagPayload {
	payloads := make([]TagPayload, 0, len(tags))
	for _, tag := range tags {
		payloads = append(payloads, TagPayload{ID: tag.ID, Name: tag.Name})
	}
	return payloads
}

func (s *Service) Tags(ctx context.Context) ([]TagPayload, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return tagPayloads(tags), nil
}

func (s *Service) ItemTags(ctx context.Context, navigationItemID int64) ([]TagPayload, error) {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return nil, err
	}
	tags, err := s.store.ListItemTags(ctx, navigationItemID)
	if err != nil {
		return nil, err
	}
	return tagPayloads(tags), nil
}

// SetItemTags replaces the item's tag set. Unknown tag names are
// created on the fly.
func (s *Service) SetItemTags(ctx context.Context, navigationItemID int64, names []string) ([]TagPayload, error) {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return nil, err
	}
	tags, err := s.store.ReplaceItemTags(ctx, navigationItemID, names)
	if err != nil {
		return nil, err
	}
	return tagPayloads(tags), nil
}

// ---- favorites / recents ----

func (s *Service) Favorites(ctx context.Context, session Session) ([]NavigationItemPayload, error) {
	items, err := s.store.ListFavorites(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	payloads := make([]NavigationItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, navigationPayload(item))
	}
	return payloads, nil
}

func (s *Service) ToggleFavorite(ctx context.Context, session Session, navigationItemID int64) (bool, error) {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return false, err
	}
	return s.store.ToggleFavorite(ctx, session.UserID, navigationItemID)
}

type RecentPayload struct {
	NavigationItemID int64     `json:"navigationItemId"`
	Title            string    `json:"title"`
	Type             string    `json:"type"`
	Icon             string    `json:"icon,omitempty"`
	Visits           int       `json:"visits"`
	LastVisitedAt    time.Time `json:"lastVisitedAt"`
}

func (s *Service) Recents(ctx context.Context, session Session, limit int) ([]RecentPayload, error) {
	if limit <= 0 {
		limit = 20
	}
	items, err := s.store.ListRecents(ctx, session.UserID, limit)
	if err != nil {
		return nil, err
	}
	payloads := make([]RecentPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, RecentPayload{
			NavigationItemID: item.NavigationItemID,
			Title:            item.Title,
			Type:             item.Type,
			Icon:             item.Icon,
			Visits:           item.Visits,
			LastVisitedAt:    item.LastVisitedAt,
		})
	}
	return payloads, nil
}

func (s *Service) RecordVisit(ctx context.Context, session Session, navigationItemID int64) error {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return err
	}
	return s.store.RecordVisit(ctx, session.UserID, navigationItemID)
}

// ---- compliance ----

type ReviewPayload struct {
	NavigationItemID int64     `json:"navigationItemId"`
	ReviewerName     string    `json:"reviewerName"`
	Note             string    `json:"note,omitempty"`
	ReviewedAt       time.Time `json:"reviewedAt"`
}

func (s *Service) MarkReviewed(ctx context.Context, session Session, navigationItemID int64, note string) (ReviewPayload, error) {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return ReviewPayload{}, err
	}
	review, err := s.store.UpsertReview(ctx, navigationItemID, session.UserID, session.UserName, note)
	if err != nil {
		return ReviewPayload{}, err
	}
	return ReviewPayload{
		NavigationItemID: review.NavigationItemID,
		ReviewerName:     review.ReviewerName,
		Note:             review.Note,
		ReviewedAt:       review.ReviewedAt,
	}, nil
}

type ApprovalPayload struct {
	ID               int64     `json:"id"`
	NavigationItemID int64     `json:"navigationItemId"`
	ApproverName     string    `json:"approverName"`
	Note             string    `json:"note,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (s *Service) AddApproval(ctx context.Context, session Session, navigationItemID int64, note string) (ApprovalPayload, error) {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return ApprovalPayload{}, err
	}
	approval, err := s.store.InsertApproval(ctx, navigationItemID, session.UserID, session.UserName, note)
	if err != nil {
		return ApprovalPayload{}, err
	}
	return ApprovalPayload{
		ID:               approval.ID,
		NavigationItemID: approval.NavigationItemID,
		ApproverName:     approval.ApproverName,
		Note:             approval.Note,
		CreatedAt:        approval.CreatedAt,
	}, nil
}

type AcknowledgementPayload struct {
	ID               int64     `json:"id"`
	NavigationItemID int64     `json:"navigationItemId"`
	UserName         string    `json:"userName"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (s *Service) AddAcknowledgement(ctx context.Context, session Session, navigationItemID int64) (AcknowledgementPayload, error) {
	if _, err := s.store.GetNavigationItem(ctx, navigationItemID); err != nil {
		return AcknowledgementPayload{}, err
	}
	ack, err := s.store.InsertAcknowledgement(ctx, navigationItemID, session.UserID, session.UserName)
	if err != nil {
		return AcknowledgementPayload{}, err
	}
	return AcknowledgementPayload{
		ID:               ack.ID,
		NavigationItemID: ack.NavigationItemID,
		UserName:         ack.UserName,
		CreatedAt:        ack.CreatedAt,
	}, nil
}

type ComplianceRowPayload struct {
	NavigationItemID int64      `json:"navigationItemId"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	LastReviewedAt   *time.Time `json:"lastReviewedAt"`
	Approvals        int        `json:"approvals"`
	Acknowledgements int        `json:"acknowledgements"`
}

type ComplianceOverviewPayload struct {
	Items  []ComplianceRowPayload `json:"items"`
	Totals map[string]int         `json:"totals"`
}

func (s *Service) ComplianceOverview(ctx context.Context) (ComplianceOverviewPayload, error) {
	rows, err := s.store.ComplianceOverview(ctx)
	if err != nil {
		return ComplianceOverviewPayload{}, err
	}

	items := make([]ComplianceRowPayload, 0, len(rows))
	totals := map[string]int{"items": len(rows), "reviewed": 0, "approvals": 0, "acknowledgements": 0}
	for _, row := range rows {
		if row.LastReviewedAt != nil {
			totals["reviewed"]++
		}
		totals["approvals"] += row.Approvals
		totals["acknowledgements"] += row.Acknowledgements
		items = append(items, ComplianceRowPayload{
			NavigationItemID: row.NavigationItemID,
			Title:            row.Title,
			Status:           row.Status,
			LastReviewedAt:   row.LastReviewedAt,
			Approvals:        row.Approvals,
			Acknowledgements: row.Acknowledgements,
		})
	}
	return ComplianceOverviewPayload{Items: items, Totals: totals}, nil
}

// ---- stats ----

type StatsPayload struct {
	Documents int `json:"documents"`
	Processes int `json:"processes"`
	Files     int `json:"files"`
}

func (s *Service) Stats(ctx context.Context) (StatsPayload, error) {
	stats, err := s.store.CountStats(ctx)
	if err != nil {
		return StatsPayload{}, err
	}
	return StatsPayload{
		Documents: stats.Documents,
		Processes: stats.Processes,
		Files:     stats.Files,
	}, nil
}
