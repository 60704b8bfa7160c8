package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgLike implements Searcher with plain ILIKE substring matching as a
// fallback when Meilisearch is not configured or unhealthy.
type PgLike struct {
	db *sql.DB
}

// NewPgLike creates a Postgres substring searcher.
func NewPgLike(db *sql.DB) *PgLike {
	return &PgLike{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgLike) Healthy() bool {
	return true
}

// Search matches the query text as a case-insensitive substring of post
// titles, post bodies, and comment bodies.
func (p *PgLike) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var subQueries []string
	args := []any{q.Text}
	argN := 2

	if q.FilterType == "" || q.FilterType == ResultPost {
		postWhere := `(p.title ILIKE '%' || $1 || '%' OR p.content ILIKE '%' || $1 || '%')`
		if q.FilterCategory != "" {
			postWhere += fmt.Sprintf(" AND p.category = $%d", argN)
			args = append(args, q.FilterCategory)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'post'::text AS type, p.id, p.title,
				LEFT(p.content, 160) AS snippet,
				p.id AS post_id, p.category, p.created_at
			FROM posts p
			WHERE %s`, postWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultComment {
		subQueries = append(subQueries, `
			SELECT 'comment'::text AS type, c.id, ''::text AS title,
				LEFT(c.content, 160) AS snippet,
				c.post_id, ''::text AS category, c.created_at
			FROM comments c
			WHERE c.content ILIKE '%' || $1 || '%'`)
	}

	query := fmt.Sprintf(`
		SELECT type, id, title, snippet, post_id, category, COUNT(*) OVER () AS total
		FROM (%s) hits
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, strings.Join(subQueries, " UNION ALL "), limit, offset)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pglike search: %w", err)
	}
	defer rows.Close()

	var results []Result
	total := 0
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Snippet, &r.PostID, &r.Category, &total); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords reads every post and comment for reindexing into
// Meilisearch after it recovers or on first boot.
func (p *PgLike) LoadAllRecords() ([]PostRecord, []CommentRecord, error) {
	postRows, err := p.db.Query(`SELECT id, title, content, category FROM posts`)
	if err != nil {
		return nil, nil, fmt.Errorf("load posts for reindex: %w", err)
	}
	defer postRows.Close()

	var posts []PostRecord
	for postRows.Next() {
		var rec PostRecord
		if err := postRows.Scan(&rec.ID, &rec.Title, &rec.Content, &rec.Category); err != nil {
			return nil, nil, fmt.Errorf("scan post record: %w", err)
		}
		posts = append(posts, rec)
	}
	if err := postRows.Err(); err != nil {
		return nil, nil, err
	}

	commentRows, err := p.db.Query(`SELECT id, content, post_id FROM comments`)
	if err != nil {
		return nil, nil, fmt.Errorf("load comments for reindex: %w", err)
	}
	defer commentRows.Close()

	var comments []CommentRecord
	for commentRows.Next() {
		var rec CommentRecord
		if err := commentRows.Scan(&rec.ID, &rec.Content, &rec.PostID); err != nil {
			return nil, nil, fmt.Errorf("scan comment record: %w", err)
		}
		comments = append(comments, rec)
	}
	return posts, comments, commentRows.Err()
}
