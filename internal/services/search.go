package services

import (
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/utils"
)

// SearchIndexer pushes uploads and derived insights into the meilisearch
// "resources" index. A nil client disables indexing; indexing failures are
// logged and swallowed, search is never on the critical path.
type SearchIndexer struct {
	client *meilisearch.Client
	log    *zap.Logger
}

func NewSearchIndexer(client *meilisearch.Client, log *zap.Logger) *SearchIndexer {
	return &SearchIndexer{client: client, log: log}
}

func (s *SearchIndexer) IndexUpload(upload *entity.DataUpload) {
	if s == nil || s.client == nil {
		return
	}
	doc := utils.UploadToDocument(upload)
	if _, err := s.client.Index("resources").AddDocuments([]map[string]interface{}{doc}); err != nil {
		s.log.Warn("failed to index upload",
			zap.String("upload_id", upload.ID.String()),
			zap.Error(err))
	}
}

func (s *SearchIndexer) IndexInsights(results []entity.AnalyticsResult) {
	if s == nil || s.client == nil || len(results) == 0 {
		return
	}
	docs := make([]map[string]interface{}, 0, len(results))
	for i := range results {
		docs = append(docs, utils.InsightToDocument(&results[i]))
	}
	if _, err := s.client.Index("resources").AddDocuments(docs); err != nil {
		s.log.Warn("failed to index insights", zap.Int("count", len(docs)), zap.Error(err))
	}
}
