package search

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog/log"
)

const (
	idxNavigation = "handbook_navigation"
	idxDocuments  = "handbook_documents"
	idxProcesses  = "handbook_processes"
)

// Meili is the primary search backend. A background loop tracks
// reachability; indexes are (re)configured on every recovery.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili connects and configures the indexes. The instance is
// returned even when the initial connection fails; the health loop
// picks it up later.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("search: meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		searchable []string
	}{
		{uid: idxNavigation, searchable: []string{"title"}},
		{uid: idxDocuments, searchable: []string{"title", "text"}},
		{uid: idxProcesses, searchable: []string{"title"}},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			log.Warn().Err(err).Str("index", idx.uid).Msg("search: create index (may already exist)")
		}
		if _, err := m.client.Index(idx.uid).UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Warn().Err(err).Str("index", idx.uid).Msg("search: update searchable attrs")
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Info().Msg("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search fans one query out to all three indexes and regroups the hits.
func (m *Meili) Search(q Query) (Response, error) {
	if !m.healthy.Load() {
		return Response{}, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	uids := []string{idxNavigation, idxDocuments, idxProcesses}
	queries := make([]*meili.SearchRequest, 0, len(uids))
	for _, uid := range uids {
		queries = append(queries, &meili.SearchRequest{
			IndexUID:         uid,
			Query:            q.Text,
			Limit:            limit,
			Offset:           int64(q.Offset),
			AttributesToCrop: []string{"text"},
			CropLength:       30,
		})
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return Response{}, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	out := emptyResponse(q.Text)
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			h := Hit{
				ID:               decodeInt64(hit, "id"),
				NavigationItemID: decodeInt64(hit, "navigationItemId"),
				Title:            decodeString(hit, "title"),
				Icon:             decodeString(hit, "icon"),
			}
			switch sr.IndexUID {
			case idxNavigation:
				out.Navigation = append(out.Navigation, h)
			case idxDocuments:
				h.Snippet = firstNonBlank(decodeCropped(hit, "text"), decodeString(hit, "text"))
				out.Documents = append(out.Documents, h)
			case idxProcesses:
				out.Processes = append(out.Processes, h)
			}
		}
	}
	return out, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeInt64(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

func decodeCropped(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return formatted[key]
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func (m *Meili) IndexNavigation(rec NavigationRecord) error {
	_, err := m.client.Index(idxNavigation).AddDocuments([]NavigationRecord{rec}, nil)
	return err
}

func (m *Meili) IndexDocument(rec DocumentRecord) error {
	_, err := m.client.Index(idxDocuments).AddDocuments([]DocumentRecord{rec}, nil)
	return err
}

func (m *Meili) IndexProcess(rec ProcessRecord) error {
	_, err := m.client.Index(idxProcesses).AddDocuments([]ProcessRecord{rec}, nil)
	return err
}

func (m *Meili) DeleteNavigation(id int64) error {
	_, err := m.client.Index(idxNavigation).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}

func (m *Meili) DeleteDocument(id int64) error {
	_, err := m.client.Index(idxDocuments).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}

func (m *Meili) DeleteProcess(id int64) error {
	_, err := m.client.Index(idxProcesses).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}

func (m *Meili) IndexNavigationBatch(records []NavigationRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxNavigation).AddDocuments(records, nil)
	return err
}

func (m *Meili) IndexDocumentBatch(records []DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxDocuments).AddDocuments(records, nil)
	return err
}

func (m *Meili) IndexProcessBatch(records []ProcessRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxProcesses).AddDocuments(records, nil)
	return err
}
