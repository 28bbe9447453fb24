package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/papergraph/paperd/pkg/graphstore"
)

func (c *Client) PaperExists(ctx context.Context, tenantID, paperID string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM papers WHERE tenant_id = $1 AND paper_id = $2)`,
		tenantID, paperID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: paper exists: %w", err)
	}
	return exists, nil
}

func (c *Client) UpsertPaper(ctx context.Context, paper graphstore.Paper) error {
	metadata, err := marshalJSON(paper.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal paper metadata: %w", err)
	}
	embedding, err := marshalJSON(paper.Embedding)
	if err != nil {
		return fmt.Errorf("postgres: marshal paper embedding: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO papers (tenant_id, paper_id, title, year, abstract, metadata, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (tenant_id, paper_id) DO UPDATE SET
			title = EXCLUDED.title,
			year = EXCLUDED.year,
			abstract = EXCLUDED.abstract,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`, paper.TenantID, paper.ID, paper.Title, paper.Year, paper.Abstract, metadata, embedding)
	if err != nil {
		return fmt.Errorf("postgres: upsert paper: %w", err)
	}
	return nil
}

func (c *Client) InsertPaperSections(ctx context.Context, sections []graphstore.Section) error {
	if len(sections) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range sections {
		batch.Queue(`
			INSERT INTO sections (id, tenant_id, paper_id, section_type, content, word_count, part_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tenant_id, paper_id, part_index) DO UPDATE SET
				content = EXCLUDED.content, word_count = EXCLUDED.word_count, section_type = EXCLUDED.section_type
		`, s.ID, s.TenantID, s.PaperID, s.SectionType, s.Content, s.WordCount, s.PartIndex)
	}
	results := c.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range sections {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert paper sections: %w", err)
		}
	}
	return nil
}

func (c *Client) UpsertPaperEmbedding(ctx context.Context, tenantID, paperID string, embedding []float64) error {
	raw, err := marshalJSON(embedding)
	if err != nil {
		return fmt.Errorf("postgres: marshal embedding: %w", err)
	}
	tag, err := c.pool.Exec(ctx,
		`UPDATE papers SET embedding = $1, updated_at = now() WHERE tenant_id = $2 AND paper_id = $3`,
		raw, tenantID, paperID,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert paper embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: paper %s not found", paperID)
	}
	return nil
}

func (c *Client) GetTotalPaperCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM papers WHERE tenant_id = $1`, tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count papers: %w", err)
	}
	return count, nil
}

func (c *Client) GetPapersByIDs(ctx context.Context, tenantID string, paperIDs []string) ([]graphstore.Paper, error) {
	if len(paperIDs) == 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT paper_id, tenant_id, title, year, abstract, metadata, embedding, created_at, updated_at
		FROM papers WHERE tenant_id = $1 AND paper_id = ANY($2)
	`, tenantID, paperIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: get papers by ids: %w", err)
	}
	defer rows.Close()

	var out []graphstore.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPaper(row pgx.Row) (graphstore.Paper, error) {
	var p graphstore.Paper
	var metadata, embedding []byte
	if err := row.Scan(&p.ID, &p.TenantID, &p.Title, &p.Year, &p.Abstract, &metadata, &embedding, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, fmt.Errorf("postgres: scan paper: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return p, fmt.Errorf("postgres: unmarshal paper metadata: %w", err)
		}
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &p.Embedding); err != nil {
			return p, fmt.Errorf("postgres: unmarshal paper embedding: %w", err)
		}
	}
	return p, nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
