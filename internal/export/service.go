package export

import (
	"context"
	"fmt"
	"time"
)

// DataStore is the slice of the board store the digest needs.
type DataStore interface {
	ListReportedPosts(ctx context.Context) ([]ReportedPost, error)
	DigestStats(ctx context.Context, since time.Time) (Stats, error)
}

// Service builds the moderation digest.
type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Digest renders the current moderation queue and the 24-hour counters to
// a PDF for the owners.
func (s *Service) Digest(ctx context.Context) (*Result, error) {
	now := time.Now()

	stats, err := s.store.DigestStats(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("digest stats: %w", err)
	}

	posts, err := s.store.ListReportedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reported posts: %w", err)
	}

	html, err := RenderDigestHTML(TemplateData{
		GeneratedAt: now,
		Stats:       stats,
		Posts:       posts,
	})
	if err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}

	return renderPDF(html, "moderation-digest-"+now.Format("2006-01-02"))
}
