package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Service tries Meilisearch first and falls back to Postgres matching.
type Service struct {
	meili  *Meili
	pglike *PgLike
}

// NewService creates the facade; meili may be nil when not configured.
func NewService(meili *Meili, pglike *PgLike) *Service {
	return &Service{meili: meili, pglike: pglike}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if len(strings.TrimSpace(q.Text)) < MinQueryLen {
		return emptyResponse(q.Text)
	}

	if s.meili != nil && s.meili.Healthy() {
		resp, err := s.meili.Search(q)
		if err == nil {
			return resp
		}
		log.Warn().Err(err).Msg("search: meilisearch error, falling back to postgres")
	}

	resp, err := s.pglike.Search(ctx, q)
	if err != nil {
		log.Error().Err(err).Msg("search: postgres fallback error")
		return emptyResponse(q.Text)
	}
	return resp
}

// IndexNavigation pushes one navigation record (fire-and-forget).
func (s *Service) IndexNavigation(rec NavigationRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexNavigation(rec); err != nil {
			log.Warn().Err(err).Int64("id", rec.ID).Msg("search: index navigation")
		}
	}()
}

// IndexDocument pushes one document record (fire-and-forget).
func (s *Service) IndexDocument(rec DocumentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDocument(rec); err != nil {
			log.Warn().Err(err).Int64("id", rec.ID).Msg("search: index document")
		}
	}()
}

// IndexProcess pushes one process record (fire-and-forget).
func (s *Service) IndexProcess(rec ProcessRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProcess(rec); err != nil {
			log.Warn().Err(err).Int64("id", rec.ID).Msg("search: index process")
		}
	}()
}

// DeleteNavigation removes a navigation record (fire-and-forget).
func (s *Service) DeleteNavigation(id int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteNavigation(id); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("search: delete navigation")
		}
	}()
}

// DeleteDocument removes a document record (fire-and-forget).
func (s *Service) DeleteDocument(id int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDocument(id); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("search: delete document")
		}
	}()
}

// DeleteProcess removes a process record (fire-and-forget).
func (s *Service) DeleteProcess(id int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteProcess(id); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("search: delete process")
		}
	}()
}

// ReindexAllFromPG pushes every searchable row into Meilisearch.
// Called at startup when Meilisearch is reachable.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pglike == nil {
		return
	}
	navigation, documents, processes, err := s.pglike.LoadAllRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("search: reindex load failed")
		return
	}
	if err := s.meili.IndexNavigationBatch(navigation); err != nil {
		log.Warn().Err(err).Msg("search: reindex navigation")
	}
	if err := s.meili.IndexDocumentBatch(documents); err != nil {
		log.Warn().Err(err).Msg("search: reindex documents")
	}
	if err := s.meili.IndexProcessBatch(processes); err != nil {
		log.Warn().Err(err).Msg("search: reindex processes")
	}
}
