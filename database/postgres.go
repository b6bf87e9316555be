package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"

	"github.com/autogram-is/spidergram-sub001/models"
	"github.com/autogram-is/spidergram-sub001/sitetree"
	"github.com/autogram-is/spidergram-sub001/urls"
)

type PostgresDB struct {
	DB *sql.DB
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{DB: db}
	if err := pgDB.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pgDB, nil
}

func (p *PostgresDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS unique_urls (
            key TEXT PRIMARY KEY,
            raw TEXT NOT NULL,
            normalized TEXT,
            parsable BOOLEAN NOT NULL,
            depth INTEGER DEFAULT 0,
            referer TEXT,
            inferred BOOLEAN NOT NULL DEFAULT FALSE,
            discovered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS pages (
            url_key TEXT PRIMARY KEY REFERENCES unique_urls(key),
            url TEXT NOT NULL,
            title TEXT,
            content TEXT,
            status_code INTEGER,
            content_type TEXT,
            size BIGINT,
            load_time_ms BIGINT,
            depth INTEGER,
            parent_url TEXT,
            crawled_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            hash TEXT,
            importance_score FLOAT DEFAULT 0,
            content_quality FLOAT DEFAULT 0,
            link_density FLOAT DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS links (
            source_key TEXT NOT NULL,
            target_key TEXT NOT NULL,
            url TEXT NOT NULL,
            anchor TEXT,
            rel TEXT,
            PRIMARY KEY (source_key, target_key)
        )`,
		`CREATE TABLE IF NOT EXISTS hierarchy_edges (
            key TEXT PRIMARY KEY,
            parent_key TEXT NOT NULL,
            child_key TEXT NOT NULL,
            context TEXT NOT NULL,
            inferred BOOLEAN DEFAULT FALSE,
            built_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS crawl_queue (
            url_key TEXT PRIMARY KEY,
            url TEXT NOT NULL,
            priority INTEGER DEFAULT 0,
            depth INTEGER,
            parent_url TEXT,
            scheduled_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            attempts INTEGER DEFAULT 0,
            last_attempt TIMESTAMP,
            status TEXT DEFAULT 'pending'
        )`,
		`ALTER TABLE unique_urls ADD COLUMN IF NOT EXISTS inferred BOOLEAN NOT NULL DEFAULT FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_pages_hash ON pages(hash)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_context ON hierarchy_edges(context)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_child ON hierarchy_edges(child_key)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_queue_priority ON crawl_queue(priority DESC, scheduled_at)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_queue_status ON crawl_queue(status)`,
	}

	for _, query := range queries {
		if _, err := p.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

const upsertIdentity = `
        INSERT INTO unique_urls (key, raw, normalized, parsable, depth, referer)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (key) DO UPDATE SET
            raw = EXCLUDED.raw,
            depth = EXCLUDED.depth,
            referer = EXCLUDED.referer,
            inferred = FALSE
        WHERE unique_urls.inferred`

const insertInferred = `
        INSERT INTO unique_urls (key, raw, normalized, parsable, depth, referer, inferred)
        VALUES ($1, $2, $3, $4, $5, $6, TRUE)
        ON CONFLICT (key) DO NOTHING`

// SaveIdentity stores a URL identity. Existing keys are left untouched, the
// same first-write-wins rule the in-memory pool follows, unless the stored
// row was only inferred by a hierarchy build.
func (p *PostgresDB) SaveIdentity(ctx context.Context, id urls.Identity) error {
	_, err := p.DB.ExecContext(ctx, upsertIdentity, identityArgs(id)...)
	if err != nil {
		return fmt.Errorf("save identity %s: %w", id.Key, err)
	}
	return nil
}

func (p *PostgresDB) SaveIdentities(ctx context.Context, ids []urls.Identity) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertIdentity)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, identityArgs(id)...); err != nil {
			return fmt.Errorf("save identity %s: %w", id.Key, err)
		}
	}

	return tx.Commit()
}

func identityArgs(id urls.Identity) []any {
	return []any{id.Key, id.Raw, nullString(id.Href()), id.Parsable, id.Depth, nullString(id.Referer)}
}

// LoadIdentities reads every observed identity in discovery order, skipping
// nodes a hierarchy build synthesized. Stored keys are kept as-is so edges
// built from them line up with earlier crawls.
func (p *PostgresDB) LoadIdentities(ctx context.Context) ([]urls.Identity, error) {
	rows, err := p.DB.QueryContext(ctx, `
        SELECT key, raw, normalized, parsable, depth, referer
        FROM unique_urls
        WHERE NOT inferred
        ORDER BY discovered_at ASC, key ASC`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	var ids []urls.Identity
	for rows.Next() {
		var id urls.Identity
		var normalized, referer sql.NullString
		if err := rows.Scan(&id.Key, &id.Raw, &normalized, &id.Parsable, &id.Depth, &referer); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		id.Referer = referer.String
		if id.Parsable && normalized.Valid {
			u, err := url.Parse(normalized.String)
			if err != nil {
				return nil, fmt.Errorf("identity %s has bad normalized url: %w", id.Key, err)
			}
			id.Normalized = u
		} else {
			id.Parsable = false
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (p *PostgresDB) SavePage(ctx context.Context, page *models.Page) error {
	query := `
        INSERT INTO pages (url_key, url, title, content, status_code, content_type, size, load_time_ms, depth, parent_url, hash, importance_score, content_quality, link_density)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (url_key) DO UPDATE SET
            title = EXCLUDED.title,
            content = EXCLUDED.content,
            status_code = EXCLUDED.status_code,
            content_type = EXCLUDED.content_type,
            size = EXCLUDED.size,
            load_time_ms = EXCLUDED.load_time_ms,
            crawled_at = CURRENT_TIMESTAMP,
            hash = EXCLUDED.hash,
            importance_score = EXCLUDED.importance_score,
            content_quality = EXCLUDED.content_quality,
            link_density = EXCLUDED.link_density`

	_, err := p.DB.ExecContext(ctx, query,
		page.URLKey, page.URL, page.Title, page.Content, page.StatusCode, page.ContentType,
		page.Size, page.LoadTime, page.Depth, page.ParentURL, page.Hash,
		page.Importance, page.ContentQuality, page.LinkDensity,
	)
	if err != nil {
		return fmt.Errorf("save page %s: %w", page.URL, err)
	}
	return nil
}

func (p *PostgresDB) SaveLinks(ctx context.Context, links []models.Link) error {
	if len(links) == 0 {
		return nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO links (source_key, target_key, url, anchor, rel)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (source_key, target_key) DO UPDATE SET
            anchor = EXCLUDED.anchor,
            rel = EXCLUDED.rel`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx, link.SourceKey, link.TargetKey, link.URL, link.Anchor, link.Rel); err != nil {
			return fmt.Errorf("save link %s: %w", link.URL, err)
		}
	}

	return tx.Commit()
}

// ReplaceEdges swaps the stored edges of one context for a fresh build.
func (p *PostgresDB) ReplaceEdges(ctx context.Context, edgeContext string, edges []models.Edge) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceEdges(ctx, tx, edgeContext, edges); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveHierarchy stores a build in one transaction: the identities of its
// inferred nodes, so every edge endpoint has a unique_urls row, then the
// edges themselves.
func (p *PostgresDB) SaveHierarchy(ctx context.Context, result sitetree.Result) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertInferred)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range result.Tree.Nodes() {
		if !n.Inferred {
			continue
		}
		if _, err := stmt.ExecContext(ctx, identityArgs(n.Data)...); err != nil {
			return fmt.Errorf("save inferred node %s: %w", n.ID, err)
		}
	}

	if err := replaceEdges(ctx, tx, sitetree.Context, result.Edges()); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceEdges(ctx context.Context, tx *sql.Tx, edgeContext string, edges []models.Edge) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM hierarchy_edges WHERE context = $1`, edgeContext); err != nil {
		return fmt.Errorf("clear %s edges: %w", edgeContext, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO hierarchy_edges (key, parent_key, child_key, context, inferred)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (key) DO UPDATE SET
            inferred = EXCLUDED.inferred,
            built_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, edge := range edges {
		if _, err := stmt.ExecContext(ctx, edge.Key, edge.Parent, edge.Child, edge.Context, edge.Inferred); err != nil {
			return fmt.Errorf("save edge %s: %w", edge.Key, err)
		}
	}
	return nil
}

func (p *PostgresDB) AddToQueue(ctx context.Context, items []models.URLPriority) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO crawl_queue (url_key, url, priority, depth, parent_url)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (url_key) DO UPDATE SET
            priority = GREATEST(crawl_queue.priority, EXCLUDED.priority)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, urlPriority := range items {
		_, err := stmt.ExecContext(ctx, urlPriority.Key, urlPriority.URL, urlPriority.Priority, urlPriority.Depth, urlPriority.Parent)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgresDB) GetNextURLs(ctx context.Context, limit int) ([]models.URLPriority, error) {
	query := `
        SELECT url_key, url, priority, depth, parent_url
        FROM crawl_queue
        WHERE status = 'pending'
        ORDER BY priority DESC, scheduled_at ASC
        LIMIT $1
    `

	rows, err := p.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var next []models.URLPriority
	for rows.Next() {
		var item models.URLPriority
		var parent sql.NullString
		if err := rows.Scan(&item.Key, &item.URL, &item.Priority, &item.Depth, &parent); err != nil {
			return nil, err
		}
		item.Parent = parent.String
		next = append(next, item)
	}

	return next, rows.Err()
}

func (p *PostgresDB) MarkURLProcessed(ctx context.Context, key string) error {
	_, err := p.DB.ExecContext(ctx, "UPDATE crawl_queue SET status = 'completed', last_attempt = CURRENT_TIMESTAMP, attempts = attempts + 1 WHERE url_key = $1", key)
	return err
}

func (p *PostgresDB) Close() error {
	return p.DB.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
