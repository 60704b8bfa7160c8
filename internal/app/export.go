package app

import (
	"context"
	"time"

	"breakroom/api/internal/export"
	"breakroom/api/internal/store"
)

// digestStore adapts the board store to the narrow view the PDF digest
// builder reads.
type digestStore struct {
	s *Service
}

// ExportStore exposes the moderation queue and counters to the digest
// builder.
func (s *Service) ExportStore() export.DataStore {
	return digestStore{s: s}
}

func (d digestStore) ListReportedPosts(ctx context.Context) ([]export.ReportedPost, error) {
	posts, err := d.s.store.ListReportedPosts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]export.ReportedPost, 0, len(posts))
	for _, post := range posts {
		reports, err := d.s.store.ListPostReports(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, export.ReportedPost{
			ID:         post.ID,
			Title:      post.Title,
			Content:    post.Content,
			Category:   post.Category,
			AuthorName: post.AuthorName,
			CreatedAt:  post.CreatedAt,
			Reports:    reportLines(reports),
		})
	}
	return out, nil
}

func (d digestStore) DigestStats(ctx context.Context, since time.Time) (export.Stats, error) {
	tips, err := d.s.store.CountPostsSince(ctx, store.CategoryTips, since)
	if err != nil {
		return export.Stats{}, err
	}
	suggestions, err := d.s.store.CountPostsSince(ctx, store.CategorySuggestions, since)
	if err != nil {
		return export.Stats{}, err
	}
	comments, err := d.s.store.CountCommentsSince(ctx, since)
	if err != nil {
		return export.Stats{}, err
	}
	reports, err := d.s.store.CountReportsSince(ctx, since)
	if err != nil {
		return export.Stats{}, err
	}
	return export.Stats{
		TipsToday:        tips,
		SuggestionsToday: suggestions,
		CommentsToday:    comments,
		ReportsToday:     reports,
	}, nil
}

func reportLines(reports []store.ReportEntry) []export.ReportLine {
	lines := make([]export.ReportLine, 0, len(reports))
	for _, report := range reports {
		lines = append(lines, export.ReportLine{
			UserID:     report.UserID,
			ReportedAt: report.ReportedAt,
		})
	}
	return lines
}
