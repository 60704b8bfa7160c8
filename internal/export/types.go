// Package export renders the owners' moderation digest as a PDF.
package export

import (
	"errors"
	"time"
)

// ReportedPost is one entry in the digest: a post that currently holds
// reports, with the individual report filings.
type ReportedPost struct {
	ID         string
	Title      string
	Content    string
	Category   string
	AuthorName string
	CreatedAt  time.Time
	Reports    []ReportLine
}

// ReportLine is a single standing report against a post.
type ReportLine struct {
	UserID     string
	ReportedAt time.Time
}

// Stats mirrors the board's 24-hour moderation counters.
type Stats struct {
	TipsToday        int
	SuggestionsToday int
	CommentsToday    int
	ReportsToday     int
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates the headless browser is unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
