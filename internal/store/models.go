package store

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Post is a board entry. Likes and Reports are loaded alongside the row;
// both are sets keyed by user id, so a principal appears at most once.
type Post struct {
	ID         string
	Title      string
	Content    string
	Category   string
	AuthorID   string
	AuthorName string
	Views      int
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Likes        []string
	Reports      []ReportEntry
	CommentCount int
}

// ReportEntry records one user's standing report against a post. The
// timestamp is what the moderation stats window filters on.
type ReportEntry struct {
	UserID     string
	ReportedAt time.Time
}

// Comment belongs to a post. ParentCommentID is nil for root comments and
// must reference a root comment of the same post otherwise; the thread
// model is exactly one level deep.
type Comment struct {
	ID              string
	PostID          string
	ParentCommentID *string
	Content         string
	AuthorID        string
	AuthorName      string
	CreatedAt       time.Time

	Likes []string
}

const (
	CategoryTips        = "tips"
	CategorySuggestions = "suggestions"
)

func ValidCategory(category string) bool {
	return category == CategoryTips || category == CategorySuggestions
}
