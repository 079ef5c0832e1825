package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"templateforge/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTemplateNotFound is returned when a template id has no row.
var ErrTemplateNotFound = errors.New("template not found")

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// ResolveSource finds the Source for a website URL, creating it on
// first sight. websiteUrl is unique, so concurrent creates collapse
// through the ON CONFLICT clause.
func (s *PostgresStore) ResolveSource(ctx context.Context, companyName, websiteURL, industry string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO sources (id, company_name, website_url, industry)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (website_url) DO UPDATE SET company_name = EXCLUDED.company_name
		 RETURNING id`,
		uuid.NewString(), companyName, websiteURL, industry,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("resolving source for %s: %w", websiteURL, err)
	}
	return id, nil
}

// SaveScrapedContent stores the raw scrape keyed to its source.
func (s *PostgresStore) SaveScrapedContent(ctx context.Context, sourceID string, site *domain.ScrapedSite) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO scraped_content (id, source_id, url, html_content, css_content, title, description, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		uuid.NewString(), sourceID, site.URL, site.HTMLContent, site.CSSContent,
		site.Metadata.Title, site.Metadata.Description,
	)
	if err != nil {
		return fmt.Errorf("saving scraped content for %s: %w", site.URL, err)
	}
	return nil
}

// UpsertTemplate inserts or updates a template row keyed by id, all
// within one transaction with its content payload.
func (s *PostgresStore) UpsertTemplate(ctx context.Context, t *domain.Template) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO templates (id, name, brand, industry, category, source_id,
		    is_design_quality, design_category, design_score, design_award_source,
		    is_approved, is_active, location_country, location_state, location_city,
		    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, brand = EXCLUDED.brand, industry = EXCLUDED.industry,
		   category = EXCLUDED.category, source_id = EXCLUDED.source_id,
		   is_design_quality = EXCLUDED.is_design_quality, design_category = EXCLUDED.design_category,
		   design_score = EXCLUDED.design_score, design_award_source = EXCLUDED.design_award_source,
		   is_approved = EXCLUDED.is_approved, is_active = EXCLUDED.is_active,
		   location_country = EXCLUDED.location_country, location_state = EXCLUDED.location_state,
		   location_city = EXCLUDED.location_city, updated_at = NOW()`,
		t.ID, t.Name, t.Brand, t.Industry, t.Category, t.SourceID,
		t.IsDesignQuality, t.DesignCategory, t.DesignScore, t.DesignAwardSource,
		t.IsApproved, t.IsActive, t.LocationCountry, t.LocationState, t.LocationCity,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting template %s: %w", t.ID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO template_content (template_id, html, metadata)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (template_id) DO UPDATE SET html = EXCLUDED.html, metadata = EXCLUDED.metadata`,
		t.ID, t.ContentData.HTML, t.ContentData.Metadata,
	)
	if err != nil {
		return fmt.Errorf("upserting template content %s: %w", t.ID, err)
	}

	return tx.Commit(ctx)
}

const templateColumns = `t.id, t.name, t.brand, t.industry, t.category, COALESCE(t.source_id::text, ''),
	t.is_design_quality, COALESCE(t.design_category, ''), COALESCE(t.design_score, 0), COALESCE(t.design_award_source, ''),
	t.is_approved, t.is_active, COALESCE(t.location_country, ''), COALESCE(t.location_state, ''), COALESCE(t.location_city, ''),
	t.created_at, t.updated_at, COALESCE(c.html, ''), COALESCE(c.metadata, '{}'::jsonb)`

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var t domain.Template
	t.ContentData.Metadata = map[string]any{}
	err := row.Scan(&t.ID, &t.Name, &t.Brand, &t.Industry, &t.Category, &t.SourceID,
		&t.IsDesignQuality, &t.DesignCategory, &t.DesignScore, &t.DesignAwardSource,
		&t.IsApproved, &t.IsActive, &t.LocationCountry, &t.LocationState, &t.LocationCity,
		&t.CreatedAt, &t.UpdatedAt, &t.ContentData.HTML, &t.ContentData.Metadata)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+templateColumns+`
		 FROM templates t LEFT JOIN template_content c ON c.template_id = t.id
		 WHERE t.id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]*domain.Template, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+templateColumns+`
		 FROM templates t LEFT JOIN template_content c ON c.template_id = t.id
		 ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SetApproval flips the visibility pair together. Approval and
// activation always move as one.
func (s *PostgresStore) SetApproval(ctx context.Context, id string, approved bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE templates SET is_approved = $2, is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// MarkDesignQuality tags a template into the design-quality program.
func (s *PostgresStore) MarkDesignQuality(ctx context.Context, id, category, awardSource string, score float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE templates SET is_design_quality = TRUE, design_category = $2,
		   design_award_source = $3, design_score = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, category, awardSource, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// UpdateTemplate refreshes a template's mutable fields from an admin edit.
func (s *PostgresStore) UpdateTemplate(ctx context.Context, t *domain.Template) error {
	t.UpdatedAt = time.Now()
	return s.UpsertTemplate(ctx, t)
}
