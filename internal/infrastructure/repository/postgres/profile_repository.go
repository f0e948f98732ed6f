package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/hybrid-retrieval-router/internal/core/domain"
)

// ProfileRepository reads visual profiles written at ingestion and stores
// the routing decision taken for each document.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProfileRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_visual_profiles (
	document_id TEXT PRIMARY KEY,
	is_pure_image BOOLEAN NOT NULL DEFAULT FALSE,
	has_charts BOOLEAN NOT NULL DEFAULT FALSE,
	has_diagrams BOOLEAN NOT NULL DEFAULT FALSE,
	requires_ocr BOOLEAN NOT NULL DEFAULT FALSE,
	image_area_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
	visual_complexity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	requires_vision_llm BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_routes (
	document_id TEXT PRIMARY KEY,
	selected_model TEXT NOT NULL,
	strategy TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reasoning TEXT NOT NULL,
	visual_context JSONB,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_routes_model ON document_routes(selected_model);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetProfile(ctx context.Context, documentID string) (domain.DocumentVisualProfile, bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, is_pure_image, has_charts, has_diagrams, requires_ocr,
	image_area_ratio, visual_complexity_score, requires_vision_llm
FROM document_visual_profiles
WHERE document_id = $1
`, documentID)

	var p domain.DocumentVisualProfile
	err := row.Scan(
		&p.DocumentID, &p.IsPureImage, &p.HasCharts, &p.HasDiagrams, &p.RequiresOCR,
		&p.ImageAreaRatio, &p.VisualComplexityScore, &p.RequiresVisionLLM,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DocumentVisualProfile{}, false, nil
		}
		return domain.DocumentVisualProfile{}, false, fmt.Errorf("scan visual profile: %w", err)
	}
	return p, true, nil
}

func (r *ProfileRepository) SaveDocumentRoute(ctx context.Context, documentID string, decision domain.RoutingDecision) error {
	var visualJSON []byte
	if decision.VisualContext != nil {
		raw, err := json.Marshal(decision.VisualContext)
		if err != nil {
			return fmt.Errorf("marshal visual context: %w", err)
		}
		visualJSON = raw
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_routes (
	document_id, selected_model, strategy, confidence, reasoning, visual_context, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (document_id) DO UPDATE SET
	selected_model = EXCLUDED.selected_model,
	strategy = EXCLUDED.strategy,
	confidence = EXCLUDED.confidence,
	reasoning = EXCLUDED.reasoning,
	visual_context = EXCLUDED.visual_context,
	updated_at = EXCLUDED.updated_at
`,
		documentID, string(decision.SelectedModel), string(decision.Strategy), decision.Confidence,
		decision.Reasoning, visualJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert document route: %w", err)
	}
	return nil
}
