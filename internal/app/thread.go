package app

import "breakroom/api/internal/store"

// ThreadedComment is a root comment annotated with its direct replies.
type ThreadedComment struct {
	store.Comment
	Replies []store.Comment
}

// AssembleThread turns a post's comments, ordered by creation time
// ascending, into root comments each carrying its ordered replies.
//
// It is deliberately forgiving: a reply whose parent does not exist (for
// example after a half-finished delete cascade) or whose parent is itself
// a reply is dropped rather than surfaced, so referential drift in the
// store can never break a post view. It never mutates its input and
// builds a fresh tree on every call.
func AssembleThread(comments []store.Comment) []ThreadedComment {
	roots := make([]ThreadedComment, 0, len(comments))
	rootIndex := make(map[string]int, len(comments))

	for _, comment := range comments {
		if comment.ParentCommentID != nil {
			continue
		}
		rootIndex[comment.ID] = len(roots)
		roots = append(roots, ThreadedComment{Comment: comment, Replies: []store.Comment{}})
	}

	for _, comment := range comments {
		if comment.ParentCommentID == nil {
			continue
		}
		idx, ok := rootIndex[*comment.ParentCommentID]
		if !ok {
			// Orphaned, or a reply to a reply. Either way it has no
			// place in a depth-1 thread.
			continue
		}
		roots[idx].Replies = append(roots[idx].Replies, comment)
	}

	return roots
}
