package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const memoryColumns = `id, content, category, creator_id, creator_role, source_type, project, team, systems, reference_ids, embedding, last_verified_at, created_at`

// MemoryStore is the engine-side projection of the shared memory store.
type MemoryStore struct {
	db *pgxpool.Pool
}

func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

func scanMemory(row pgx.Row, extra ...any) (*domain.MemoryRecord, error) {
	m := &domain.MemoryRecord{}
	var embedding *pgvector.Vector
	dest := []any{
		&m.ID, &m.Content, &m.Category, &m.CreatorID, &m.CreatorRole, &m.SourceType,
		&m.Project, &m.Team, &m.Systems, &m.References, &embedding, &m.LastVerifiedAt, &m.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if embedding != nil {
		m.Embedding = embedding.Slice()
	}
	return m, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, m *domain.MemoryRecord) error {
	var embedding *pgvector.Vector
	if len(m.Embedding) > 0 {
		v := pgvector.NewVector(m.Embedding)
		embedding = &v
	}
	systems := m.Systems
	if systems == nil {
		systems = []string{}
	}
	refs := m.References
	if refs == nil {
		refs = []uuid.UUID{}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO memories (`+memoryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		    content = EXCLUDED.content,
		    category = EXCLUDED.category,
		    creator_role = EXCLUDED.creator_role,
		    source_type = EXCLUDED.source_type,
		    project = EXCLUDED.project,
		    team = EXCLUDED.team,
		    systems = EXCLUDED.systems,
		    reference_ids = EXCLUDED.reference_ids,
		    embedding = COALESCE(EXCLUDED.embedding, memories.embedding),
		    last_verified_at = EXCLUDED.last_verified_at`,
		m.ID, m.Content, m.Category, m.CreatorID, m.CreatorRole, m.SourceType,
		m.Project, m.Team, systems, refs, embedding, m.LastVerifiedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m, err := scanMemory(s.db.QueryRow(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MemoryStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.MemoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.list(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ANY($1) ORDER BY created_at ASC`, ids,
	)
}

func (s *MemoryStore) ListRecent(ctx context.Context, category string, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 25
	}
	return s.list(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE category = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		category, limit,
	)
}

func (s *MemoryStore) ListByCategory(ctx context.Context, category string, after domain.PageCursor, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.list(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE category = $1
		   AND (created_at, id) > ($2, $3)
		 ORDER BY created_at ASC, id ASC
		 LIMIT $4`,
		category, after.CreatedAt, after.ID, limit,
	)
}

func (s *MemoryStore) list(ctx context.Context, query string, args ...any) ([]domain.MemoryRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

// FindSimilar returns same-category records whose cosine similarity to
// embedding is at least threshold, most similar first.
func (s *MemoryStore) FindSimilar(ctx context.Context, embedding []float32, category string, threshold float32, limit int) ([]domain.MemoryWithSimilarity, error) {
	if limit <= 0 {
		limit = 25
	}
	return s.similar(ctx,
		`SELECT `+memoryColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM memories
		 WHERE category = $2
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(embedding), category, threshold, limit,
	)
}

func (s *MemoryStore) Search(ctx context.Context, embedding []float32, category string, limit int) ([]domain.MemoryWithSimilarity, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []any{pgvector.NewVector(embedding)}
	conditions := []string{"embedding IS NOT NULL"}
	if category != "" {
		args = append(args, category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT %s, 1 - (embedding <=> $1) AS similarity
		 FROM memories
		 WHERE %s
		 ORDER BY embedding <=> $1
		 LIMIT $%d`,
		memoryColumns,
		strings.Join(conditions, " AND "),
		len(args),
	)
	return s.similar(ctx, query, args...)
}

func (s *MemoryStore) similar(ctx context.Context, query string, args ...any) ([]domain.MemoryWithSimilarity, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []domain.MemoryWithSimilarity
	for rows.Next() {
		var sim float64
		m, err := scanMemory(rows, &sim)
		if err != nil {
			return nil, fmt.Errorf("scan similarity row: %w", err)
		}
		results = append(results, domain.MemoryWithSimilarity{MemoryRecord: *m, Similarity: float32(sim)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity rows: %w", err)
	}
	return results, nil
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT category FROM memories ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *MemoryStore) Annotate(ctx context.Context, a *domain.MemoryAnnotation) error {
	var level *string
	if a.Level != "" {
		l := string(a.Level)
		level = &l
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE memories
		 SET status = $2, level = COALESCE($3, level), final_score = COALESCE($4, final_score), annotated_at = $5
		 WHERE id = $1`,
		a.MemoryID, a.Status, level, a.FinalScore, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
