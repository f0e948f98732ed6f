// Package neo4j serves content and entity lookups from the chunk graph:
// (:Chunk {id, doc_id, chunk_index, content})-[:MENTIONS]->(:Entity {name}).
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
	"github.com/kirillkom/hybrid-retrieval-router/internal/infrastructure/resilience"
)

const defaultTextLimit = 1000

const (
	cypherContains = `
MATCH (c:Chunk)
WHERE c.content CONTAINS $needle
  AND ($doc_ids IS NULL OR c.doc_id IN $doc_ids)
RETURN c.id AS chunk_id, c.doc_id AS doc_id, c.chunk_index AS chunk_index, c.content AS content
ORDER BY c.doc_id, c.chunk_index
LIMIT $limit`

	cypherContainsFold = `
MATCH (c:Chunk)
WHERE toLower(c.content) CONTAINS toLower($needle)
  AND ($doc_ids IS NULL OR c.doc_id IN $doc_ids)
RETURN c.id AS chunk_id, c.doc_id AS doc_id, c.chunk_index AS chunk_index, c.content AS content
ORDER BY c.doc_id, c.chunk_index
LIMIT $limit`

	cypherConceptDensity = `
MATCH (c:Chunk)
WITH c.doc_id AS doc_id, count(c) AS total,
     sum(CASE WHEN toLower(c.content) CONTAINS toLower($needle) THEN 1 ELSE 0 END) AS hits
WHERE hits > 0
RETURN doc_id, hits, total
ORDER BY toFloat(hits) / total DESC, doc_id
LIMIT $limit`

	cypherEntities = `
MATCH (c:Chunk)-[:MENTIONS]->(e:Entity)
WHERE toLower(e.name) IN $names
WITH c, collect(DISTINCT e.name) AS entities
RETURN c.id AS chunk_id, c.doc_id AS doc_id, c.chunk_index AS chunk_index, c.content AS content,
       entities, size(entities) AS match_count
ORDER BY match_count DESC, c.doc_id, c.chunk_index
LIMIT $limit`
)

// QueryFunc runs a read query and returns its records.
type QueryFunc func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

type Store struct {
	query    QueryFunc
	executor *resilience.Executor
}

// Open connects to the graph and verifies connectivity.
func Open(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return driver, nil
}

func New(driver neo4j.DriverWithContext, database string, executor *resilience.Executor) *Store {
	return NewWithQuery(func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
		if database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(database))
		}
		res, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}, executor)
}

func NewWithQuery(query QueryFunc, executor *resilience.Executor) *Store {
	return &Store{query: query, executor: executor}
}

func (s *Store) FindChunksContaining(ctx context.Context, needle string, match domain.TextMatch) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(needle) == "" {
		return []domain.RetrievedChunk{}, nil
	}
	limit := match.Limit
	if limit <= 0 {
		limit = defaultTextLimit
	}
	cypher := cypherContains
	if match.CaseInsensitive {
		cypher = cypherContainsFold
	}

	params := map[string]any{
		"needle":  needle,
		"limit":   int64(limit),
		"doc_ids": nil,
	}
	if len(match.DocumentIDs) > 0 {
		params["doc_ids"] = match.DocumentIDs
	}

	records, err := s.run(ctx, "neo4j.find_chunks_containing", cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(records))
	for _, rec := range records {
		out = append(out, chunkFromRecord(rec))
	}
	return out, nil
}

// RankDocumentsByConcept counts concept chunks per document inside the
// graph, so no candidate cap skews the ranking.
func (s *Store) RankDocumentsByConcept(ctx context.Context, concept string, limit int) ([]domain.ConceptDensity, error) {
	if strings.TrimSpace(concept) == "" {
		return []domain.ConceptDensity{}, nil
	}
	if limit <= 0 {
		limit = defaultTextLimit
	}

	records, err := s.run(ctx, "neo4j.rank_documents_by_concept", cypherConceptDensity, map[string]any{
		"needle": concept,
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConceptDensity, 0, len(records))
	for _, rec := range records {
		docID := recordString(rec, "doc_id")
		if docID == "" {
			continue
		}
		out = append(out, domain.ConceptDensity{
			DocumentID: docID,
			Hits:       recordInt(rec, "hits"),
			Total:      recordInt(rec, "total"),
		})
	}
	return out, nil
}

func (s *Store) FindChunksByEntities(ctx context.Context, keywords []string, limit int) ([]domain.GraphHit, error) {
	names := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			names = append(names, kw)
		}
	}
	if len(names) == 0 || limit <= 0 {
		return []domain.GraphHit{}, nil
	}

	records, err := s.run(ctx, "neo4j.find_chunks_by_entities", cypherEntities, map[string]any{
		"names": names,
		"limit": int64(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.GraphHit, 0, len(records))
	for _, rec := range records {
		chunk := chunkFromRecord(rec)
		chunk.Entities = recordStrings(rec, "entities")
		chunk.Source = domain.SourceGraph
		out = append(out, domain.GraphHit{Chunk: chunk, MatchCount: recordInt(rec, "match_count")})
	}
	return out, nil
}

func (s *Store) run(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	records, err := resilience.Call(ctx, s.executor, op, func(ctx context.Context) ([]*neo4j.Record, error) {
		return s.query(ctx, cypher, params)
	}, classifyNeo4jError)
	if err != nil {
		if classifyNeo4jError(err).Retryable && !domain.IsKind(err, domain.ErrTemporary) {
			return nil, domain.WrapError(domain.ErrTemporary, op, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case neo4j.IsRetryable(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func chunkFromRecord(rec *neo4j.Record) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		ChunkID:    recordString(rec, "chunk_id"),
		DocumentID: recordString(rec, "doc_id"),
		ChunkIndex: recordInt(rec, "chunk_index"),
		Content:    recordString(rec, "content"),
	}
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func recordStrings(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
