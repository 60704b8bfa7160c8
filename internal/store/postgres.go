package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Username, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE username=$1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// --- posts ---

func (s *PostgresStore) InsertPost(ctx context.Context, post Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, content, category, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, post.ID, post.Title, post.Content, post.Category, post.AuthorID, post.AuthorName)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, postID string) (Post, error) {
	var post Post
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, category, author_id, author_name, views, created_at, updated_at
		FROM posts WHERE id=$1
	`, postID).Scan(&post.ID, &post.Title, &post.Content, &post.Category,
		&post.AuthorID, &post.AuthorName, &post.Views, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return Post{}, err
	}
	return post, nil
}

// ListPosts returns posts newest first, each annotated with its comment
// count. category and search are optional; search is a case-insensitive
// substring match over title and content.
func (s *PostgresStore) ListPosts(ctx context.Context, category, search string) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.content, p.category, p.author_id, p.author_name,
			p.views, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
		FROM posts p
		WHERE ($1 = '' OR p.category = $1)
			AND ($2 = '' OR p.title ILIKE '%' || $2 || '%' OR p.content ILIKE '%' || $2 || '%')
		ORDER BY p.created_at DESC
	`, category, search)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	items := make([]Post, 0)
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.Category,
			&post.AuthorID, &post.AuthorName, &post.Views, &post.CreatedAt,
			&post.UpdatedAt, &post.CommentCount); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, post)
	}
	return items, rows.Err()
}

// ListReportedPosts returns posts that currently hold at least one report,
// most recently reported first.
func (s *PostgresStore) ListReportedPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.content, p.category, p.author_id, p.author_name,
			p.views, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
		FROM posts p
		JOIN (
			SELECT post_id, MAX(reported_at) AS last_reported_at
			FROM post_reports
			GROUP BY post_id
		) pr ON pr.post_id = p.id
		ORDER BY pr.last_reported_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list reported posts: %w", err)
	}
	defer rows.Close()

	items := make([]Post, 0)
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.Category,
			&post.AuthorID, &post.AuthorName, &post.Views, &post.CreatedAt,
			&post.UpdatedAt, &post.CommentCount); err != nil {
			return nil, fmt.Errorf("scan reported post: %w", err)
		}
		items = append(items, post)
	}
	return items, rows.Err()
}

// IncrementPostViews bumps the view counter in place and reports whether
// the post exists. The single UPDATE keeps concurrent detail reads from
// ever double-counting one request.
func (s *PostgresStore) IncrementPostViews(ctx context.Context, postID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id=$1`, postID)
	if err != nil {
		return false, fmt.Errorf("increment views: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment views rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) UpdatePost(ctx context.Context, postID, title, content, category string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE posts SET title=$2, content=$3, category=$4, updated_at=NOW()
		WHERE id=$1
	`, postID, title, content, category)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, postID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// --- like and report sets ---

// TogglePostLike flips the actor's membership in the post's like set. The
// delete-then-insert pair touches only this user's row, so concurrent
// toggles by other principals cannot be lost.
func (s *PostgresStore) TogglePostLike(ctx context.Context, postID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM post_likes WHERE post_id=$1 AND user_id=$2
	`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete post like: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post like rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID); err != nil {
		return fmt.Errorf("insert post like: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPostLikes(ctx context.Context, postID string) ([]string, error) {
	return s.listLikes(ctx, `SELECT user_id FROM post_likes WHERE post_id=$1 ORDER BY user_id`, postID)
}

// TogglePostReport flips the actor's membership in the post's report set
// and reports whether a report was filed (as opposed to withdrawn). A filed
// report also lands in the append-only event log for the daily stats.
func (s *PostgresStore) TogglePostReport(ctx context.Context, postID, userID string, reportedAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM post_reports WHERE post_id=$1 AND user_id=$2
	`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("delete post report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post report rows: %w", err)
	}
	if affected > 0 {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO post_reports (post_id, user_id, reported_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID, reportedAt); err != nil {
		return false, fmt.Errorf("insert post report: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO post_report_events (post_id, user_id, reported_at)
		VALUES ($1, $2, $3)
	`, postID, userID, reportedAt); err != nil {
		return false, fmt.Errorf("insert post report event: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) ListPostReports(ctx context.Context, postID string) ([]ReportEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, reported_at FROM post_reports
		WHERE post_id=$1
		ORDER BY reported_at
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post reports: %w", err)
	}
	defer rows.Close()

	entries := make([]ReportEntry, 0)
	for rows.Next() {
		var entry ReportEntry
		if err := rows.Scan(&entry.UserID, &entry.ReportedAt); err != nil {
			return nil, fmt.Errorf("scan post report: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClearPostReports empties the post's report set unconditionally. The event
// log is left intact.
func (s *PostgresStore) ClearPostReports(ctx context.Context, postID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM post_reports WHERE post_id=$1`, postID); err != nil {
		return fmt.Errorf("clear post reports: %w", err)
	}
	return nil
}

func (s *PostgresStore) ToggleCommentLike(ctx context.Context, commentID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM comment_likes WHERE comment_id=$1 AND user_id=$2
	`, commentID, userID)
	if err != nil {
		return fmt.Errorf("delete comment like: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment like rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO comment_likes (comment_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (comment_id, user_id) DO NOTHING
	`, commentID, userID); err != nil {
		return fmt.Errorf("insert comment like: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCommentLikes(ctx context.Context, commentID string) ([]string, error) {
	return s.listLikes(ctx, `SELECT user_id FROM comment_likes WHERE comment_id=$1 ORDER BY user_id`, commentID)
}

func (s *PostgresStore) listLikes(ctx context.Context, query, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	userIDs := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

// --- comments ---

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, parent_comment_id, content, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, comment.ID, comment.PostID, comment.ParentCommentID, comment.Content,
		comment.AuthorID, comment.AuthorName)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, parent_comment_id, content, author_id, author_name, created_at
		FROM comments WHERE id=$1
	`, commentID).Scan(&comment.ID, &comment.PostID, &comment.ParentCommentID,
		&comment.Content, &comment.AuthorID, &comment.AuthorName, &comment.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

// ListPostComments returns a post's comments ordered by creation time
// ascending, the order the thread assembler expects.
func (s *PostgresStore) ListPostComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, parent_comment_id, content, author_id, author_name, created_at
		FROM comments
		WHERE post_id=$1
		ORDER BY created_at, id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.ParentCommentID,
			&comment.Content, &comment.AuthorID, &comment.AuthorName, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateComment(ctx context.Context, commentID, content string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE comments SET content=$2 WHERE id=$1`, commentID, content)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// DeleteCommentsByPost is the second half of the post delete cascade.
func (s *PostgresStore) DeleteCommentsByPost(ctx context.Context, postID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE post_id=$1`, postID); err != nil {
		return fmt.Errorf("delete comments by post: %w", err)
	}
	return nil
}

// --- moderation stats ---

func (s *PostgresStore) CountPostsSince(ctx context.Context, category string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts WHERE category=$1 AND created_at >= $2
	`, category, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts since: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountCommentsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments WHERE created_at >= $1
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments since: %w", err)
	}
	return count, nil
}

// CountReportsSince counts filed report events inside the window, not
// posts and not current membership. Withdrawn and resolved reports still
// count; each filing is its own event.
func (s *PostgresStore) CountReportsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post_report_events WHERE reported_at >= $1
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reports since: %w", err)
	}
	return count, nil
}

// IsNotFound reports whether err is the store's row-absent sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
