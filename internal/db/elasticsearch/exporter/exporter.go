package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/db/elasticsearch/client"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"go.uber.org/zap"
	"time"
)

const BulkBatchSize = 500
const exportTimeOut = 30 * time.Second

// SessionReader is the part of a session the exporter snapshots.
type SessionReader interface {
	Id() string
	View(fn func(tree *service.SpanTree))
}

type Exporter struct {
	client    client.SpanTreeClient
	reader    SessionReader
	indexName string
	now       func() time.Time
	logger    *zap.Logger
}

func NewExporter(
	client client.SpanTreeClient,
	reader SessionReader,
	indexName string,
	logger *zap.Logger,
) *Exporter {
	return &Exporter{
		client:    client,
		reader:    reader,
		indexName: indexName,
		now:       time.Now,
		logger:    logger,
	}
}

// Export snapshots every span of the session and indexes it. The snapshot is taken under the
// session's read lock; indexing happens after the lock is released.
func (e *Exporter) Export(ctx context.Context) (int, error) {
	var documents []SpanDocument
	exportedAt := e.now().UTC()
	e.reader.View(func(tree *service.SpanTree) {
		ids := tree.SpanIds()
		documents = make([]SpanDocument, 0, len(ids))
		for _, id := range ids {
			node, ok := tree.Node(id)
			if !ok {
				continue
			}
			documents = append(documents, toSpanDocument(tree, node, e.reader.Id(), exportedAt))
		}
	})

	for start := 0; start < len(documents); start += BulkBatchSize {
		end := start + BulkBatchSize
		if end > len(documents) {
			end = len(documents)
		}
		metaMap, dataMap, err := client.ToMetaAndDataMap(documents[start:end])
		if err != nil {
			return start, fmt.Errorf("error converting span documents to meta and data map: %w", err)
		}
		if err := e.client.BulkIndex(ctx, metaMap, dataMap, e.indexName); err != nil {
			return start, fmt.Errorf("error bulk indexing span documents to Elasticsearch: %w", err)
		}
	}
	return len(documents), nil
}

// IndexedCount reports how many documents of this session the index holds.
func (e *Exporter) IndexedCount(ctx context.Context) (int64, error) {
	query, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"session_id": e.reader.Id()},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("error marshalling session count query: %w", err)
	}
	count, err := e.client.Count(ctx, string(query), []string{e.indexName})
	if err != nil {
		return 0, fmt.Errorf("error counting indexed span documents: %w", err)
	}
	return count, nil
}

// Run exports on every tick until ctx is done. Failed exports are logged and retried on the
// next tick.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exportCtx, cancel := context.WithTimeout(ctx, exportTimeOut)
			count, err := e.Export(exportCtx)
			if err != nil {
				cancel()
				e.logger.Error("Failed to export span tree to Elasticsearch", zap.Error(err))
				continue
			}
			// the index may not have refreshed yet, so the total can trail span_count
			indexed, err := e.IndexedCount(exportCtx)
			cancel()
			if err != nil {
				e.logger.Warn("Failed to count indexed span documents", zap.Error(err))
				indexed = -1
			}
			e.logger.Debug("Exported span tree to Elasticsearch",
				zap.Int("span_count", count),
				zap.Int64("indexed_total", indexed),
			)
		}
	}
}
