package app

import (
	"context"
	"log"
	"strings"
	"time"

	"breakroom/api/internal/auth"
	"breakroom/api/internal/config"
	"breakroom/api/internal/email"
	"breakroom/api/internal/rbac"
	"breakroom/api/internal/search"
	"breakroom/api/internal/session"
	"breakroom/api/internal/store"
	"breakroom/api/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// Session is an authenticated principal plus its token pair.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// Principal is the opaque actor attached to board operations. Board logic
// never sees usernames, only the id and role.
type Principal struct {
	ID   string
	Role rbac.Role
}

func (s Session) Principal() Principal {
	return Principal{ID: s.UserID, Role: rbac.Normalize(s.Role)}
}

type CreatePostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// UpdatePostInput fields left empty keep the stored value.
type UpdatePostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

type CreateCommentInput struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId"`
}

// Stats is the 24-hour moderation window snapshot.
type Stats struct {
	TipsToday        int `json:"tipsToday"`
	SuggestionsToday int `json:"suggestionsToday"`
	CommentsToday    int `json:"commentsToday"`
	ReportsToday     int `json:"reportsToday"`
}

// PostDetail is a post with its assembled comment thread.
type PostDetail struct {
	Post     store.Post
	Comments []ThreadedComment
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByUsername(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CountUsers(context.Context) (int, error)

	InsertPost(context.Context, store.Post) error
	GetPost(context.Context, string) (store.Post, error)
	ListPosts(context.Context, string, string) ([]store.Post, error)
	ListReportedPosts(context.Context) ([]store.Post, error)
	IncrementPostViews(context.Context, string) (bool, error)
	UpdatePost(context.Context, string, string, string, string) error
	DeletePost(context.Context, string) error

	TogglePostLike(context.Context, string, string) error
	ListPostLikes(context.Context, string) ([]string, error)
	TogglePostReport(context.Context, string, string, time.Time) (bool, error)
	ListPostReports(context.Context, string) ([]store.ReportEntry, error)
	ClearPostReports(context.Context, string) error
	ToggleCommentLike(context.Context, string, string) error
	ListCommentLikes(context.Context, string) ([]string, error)

	InsertComment(context.Context, store.Comment) error
	GetComment(context.Context, string) (store.Comment, error)
	ListPostComments(context.Context, string) ([]store.Comment, error)
	UpdateComment(context.Context, string, string) error
	DeleteComment(context.Context, string) error
	DeleteCommentsByPost(context.Context, string) error

	CountPostsSince(context.Context, string, time.Time) (int, error)
	CountCommentsSince(context.Context, time.Time) (int, error)
	CountReportsSince(context.Context, time.Time) (int, error)

	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexPost(post search.PostRecord)
	IndexComment(comment search.CommentRecord)
	DeletePost(id string)
	DeleteComment(id string)
	ReindexAllFromPG()
}

type notifier interface {
	IsConfigured() bool
	NotifyReported(notice email.ReportNotice) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	search   searcher
	mailer   notifier
	now      func() time.Time
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, searchService *search.Service, mailer *email.Service) *Service {
	svc := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		search:   searchService,
		now:      time.Now,
	}
	if mailer != nil {
		svc.mailer = mailer
	}
	return svc
}

// Bootstrap seeds the owner account on an empty database and fills the
// search index from Postgres.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		if s.cfg.OwnerPassword == "" {
			log.Printf("bootstrap: no owner password configured, skipping owner seed")
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.OwnerPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if err := s.store.CreateUser(ctx, store.User{
				ID:           util.NewID("usr"),
				Username:     s.cfg.OwnerUsername,
				PasswordHash: string(hash),
				Role:         string(rbac.RoleOwner),
			}); err != nil {
				return err
			}
			log.Printf("bootstrap: seeded owner account %q", s.cfg.OwnerUsername)
		}
	}

	s.search.ReindexAllFromPG()
	return nil
}

// --- sessions ---

func (s *Service) CreateSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued with the user's current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return s.CreateSession(ctx, user)
}

// SessionFromToken validates an access token. The role is re-read from the
// user record so a promotion or demotion applies without re-login.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- posts ---

// ListPosts returns posts newest first with like/report sets and comment
// counts attached. category may be empty or "all" for no filter; search is
// a case-insensitive substring predicate over title and content.
func (s *Service) ListPosts(ctx context.Context, category, searchText string) ([]store.Post, error) {
	if category == "all" {
		category = ""
	}
	if category != "" && !store.ValidCategory(category) {
		return nil, errValidation("unknown category", map[string]any{"category": category})
	}

	posts, err := s.store.ListPosts(ctx, category, searchText)
	if err != nil {
		return nil, errStore(err)
	}
	for i := range posts {
		if err := s.attachPostSets(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// GetPostDetail returns a post with its assembled comment thread. Each
// read counts as one view; the increment is a single targeted update so
// one request never bumps the counter twice.
func (s *Service) GetPostDetail(ctx context.Context, postID string) (PostDetail, error) {
	exists, err := s.store.IncrementPostViews(ctx, postID)
	if err != nil {
		return PostDetail{}, errStore(err)
	}
	if !exists {
		return PostDetail{}, errNotFound("post")
	}

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return PostDetail{}, err
	}

	comments, err := s.store.ListPostComments(ctx, postID)
	if err != nil {
		return PostDetail{}, errStore(err)
	}
	for i := range comments {
		likes, err := s.store.ListCommentLikes(ctx, comments[i].ID)
		if err != nil {
			return PostDetail{}, errStore(err)
		}
		comments[i].Likes = likes
	}
	post.CommentCount = len(comments)

	return PostDetail{Post: post, Comments: AssembleThread(comments)}, nil
}

func (s *Service) CreatePost(ctx context.Context, actor Principal, input CreatePostInput) (store.Post, error) {
	if actor.ID == "" {
		return store.Post{}, errUnauthenticated()
	}
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return store.Post{}, errValidation("title and content are required", nil)
	}
	if !store.ValidCategory(input.Category) {
		return store.Post{}, errValidation("unknown category", map[string]any{"category": input.Category})
	}

	post := store.Post{
		ID:         util.NewID("post"),
		Title:      title,
		Content:    content,
		Category:   input.Category,
		AuthorID:   actor.ID,
		AuthorName: util.AnonName(s.now().UnixNano()),
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return store.Post{}, errStore(err)
	}

	s.search.IndexPost(search.PostRecord{
		ID:       post.ID,
		Title:    post.Title,
		Content:  post.Content,
		Category: post.Category,
	})

	return s.loadPost(ctx, post.ID)
}

func (s *Service) UpdatePost(ctx context.Context, actor Principal, postID string, input UpdatePostInput) (store.Post, error) {
	if actor.ID == "" {
		return store.Post{}, errUnauthenticated()
	}
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return store.Post{}, err
	}
	if !rbac.CanEdit(actor.ID, post.AuthorID) {
		return store.Post{}, errForbidden()
	}

	title := firstNonBlank(strings.TrimSpace(input.Title), post.Title)
	content := firstNonBlank(strings.TrimSpace(input.Content), post.Content)
	category := firstNonBlank(input.Category, post.Category)
	if !store.ValidCategory(category) {
		return store.Post{}, errValidation("unknown category", map[string]any{"category": category})
	}

	if err := s.store.UpdatePost(ctx, postID, title, content, category); err != nil {
		return store.Post{}, errStore(err)
	}

	s.search.IndexPost(search.PostRecord{
		ID:       postID,
		Title:    title,
		Content:  content,
		Category: category,
	})

	return s.loadPost(ctx, postID)
}

// DeletePost removes a post and then its comments. The cascade is two
// sequential statements; if the second fails the remaining comments are
// orphans, which every reader tolerates.
func (s *Service) DeletePost(ctx context.Context, actor Principal, postID string) error {
	if actor.ID == "" {
		return errUnauthenticated()
	}
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if !rbac.CanDelete(actor.Role, actor.ID, post.AuthorID) {
		return errForbidden()
	}

	comments, err := s.store.ListPostComments(ctx, postID)
	if err != nil {
		return errStore(err)
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return errStore(err)
	}
	if err := s.store.DeleteCommentsByPost(ctx, postID); err != nil {
		return errStore(err)
	}

	s.search.DeletePost(postID)
	for _, comment := range comments {
		s.search.DeleteComment(comment.ID)
	}
	return nil
}

// --- likes and reports ---

func (s *Service) TogglePostLike(ctx context.Context, actor Principal, postID string) ([]string, error) {
	if actor.ID == "" {
		return nil, errUnauthenticated()
	}
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.store.TogglePostLike(ctx, postID, actor.ID); err != nil {
		return nil, errStore(err)
	}
	likes, err := s.store.ListPostLikes(ctx, postID)
	if err != nil {
		return nil, errStore(err)
	}
	return likes, nil
}

// TogglePostReport flips the actor's report on a post. Authors may report
// their own posts; the policy question is left to moderators rather than
// blocked here. When a post enters the reported state the moderators'
// alias is notified.
func (s *Service) TogglePostReport(ctx context.Context, actor Principal, postID string) ([]store.ReportEntry, error) {
	if actor.ID == "" {
		return nil, errUnauthenticated()
	}
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	filed, err := s.store.TogglePostReport(ctx, postID, actor.ID, s.now())
	if err != nil {
		return nil, errStore(err)
	}
	reports, err := s.store.ListPostReports(ctx, postID)
	if err != nil {
		return nil, errStore(err)
	}

	if filed && len(reports) == 1 && s.mailer != nil && s.mailer.IsConfigured() {
		notice := email.ReportNotice{
			PostID:      post.ID,
			PostTitle:   post.Title,
			Category:    post.Category,
			ReportCount: len(reports),
			ReportedAt:  reports[0].ReportedAt,
		}
		go func() {
			if err := s.mailer.NotifyReported(notice); err != nil {
				log.Printf("email: report notice for %s: %v", notice.PostID, err)
			}
		}()
	}

	return reports, nil
}

// ResolveReports clears a post's report set unconditionally. Owner only,
// and irreversible: there is no way to restore a cleared set.
func (s *Service) ResolveReports(ctx context.Context, actor Principal, postID string) error {
	if actor.ID == "" {
		return errUnauthenticated()
	}
	if _, err := s.getPost(ctx, postID); err != nil {
		return err
	}
	if !rbac.CanResolve(actor.Role) {
		return errForbidden()
	}
	if err := s.store.ClearPostReports(ctx, postID); err != nil {
		return errStore(err)
	}
	return nil
}

func (s *Service) ToggleCommentLike(ctx context.Context, actor Principal, commentID string) ([]string, error) {
	if actor.ID == "" {
		return nil, errUnauthenticated()
	}
	if _, err := s.getComment(ctx, commentID); err != nil {
		return nil, err
	}
	if err := s.store.ToggleCommentLike(ctx, commentID, actor.ID); err != nil {
		return nil, errStore(err)
	}
	likes, err := s.store.ListCommentLikes(ctx, commentID)
	if err != nil {
		return nil, errStore(err)
	}
	return likes, nil
}

// --- comments ---

// CreateComment adds a comment to a post. Replies are one level deep by
// construction: a parent must exist, belong to the same post, and itself
// be a root comment.
func (s *Service) CreateComment(ctx context.Context, actor Principal, postID string, input CreateCommentInput) (store.Comment, error) {
	if actor.ID == "" {
		return store.Comment{}, errUnauthenticated()
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return store.Comment{}, errValidation("content is required", nil)
	}
	if _, err := s.getPost(ctx, postID); err != nil {
		return store.Comment{}, err
	}

	var parentID *string
	if input.ParentCommentID != "" {
		parent, err := s.getComment(ctx, input.ParentCommentID)
		if err != nil {
			return store.Comment{}, err
		}
		if parent.PostID != postID {
			return store.Comment{}, errValidation("parent comment belongs to a different post", nil)
		}
		if parent.ParentCommentID != nil {
			return store.Comment{}, errValidation("replies cannot be nested", nil)
		}
		parentID = &parent.ID
	}

	comment := store.Comment{
		ID:              util.NewID("cmt"),
		PostID:          postID,
		ParentCommentID: parentID,
		Content:         content,
		AuthorID:        actor.ID,
		AuthorName:      util.AnonName(s.now().UnixNano()),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return store.Comment{}, errStore(err)
	}

	s.search.IndexComment(search.CommentRecord{
		ID:      comment.ID,
		Content: comment.Content,
		PostID:  comment.PostID,
	})

	return s.getComment(ctx, comment.ID)
}

func (s *Service) UpdateComment(ctx context.Context, actor Principal, commentID, content string) (store.Comment, error) {
	if actor.ID == "" {
		return store.Comment{}, errUnauthenticated()
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Comment{}, errValidation("content is required", nil)
	}
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return store.Comment{}, err
	}
	if !rbac.CanEdit(actor.ID, comment.AuthorID) {
		return store.Comment{}, errForbidden()
	}

	if err := s.store.UpdateComment(ctx, commentID, content); err != nil {
		return store.Comment{}, errStore(err)
	}

	s.search.IndexComment(search.CommentRecord{
		ID:      commentID,
		Content: content,
		PostID:  comment.PostID,
	})

	return s.getComment(ctx, commentID)
}

// DeleteComment removes one comment. Replies of a deleted root comment are
// left behind as orphans and disappear from rendered threads.
func (s *Service) DeleteComment(ctx context.Context, actor Principal, commentID string) error {
	if actor.ID == "" {
		return errUnauthenticated()
	}
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !rbac.CanDelete(actor.Role, actor.ID, comment.AuthorID) {
		return errForbidden()
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return errStore(err)
	}
	s.search.DeleteComment(commentID)
	return nil
}

// --- moderation ---

// GetStats recomputes the 24-hour window counters on every call. The
// window is a fixed lookback from now, not aligned to calendar days, and
// reportsToday counts filed report events rather than current membership.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	since := s.now().Add(-24 * time.Hour)

	tips, err := s.store.CountPostsSince(ctx, store.CategoryTips, since)
	if err != nil {
		return Stats{}, errStore(err)
	}
	suggestions, err := s.store.CountPostsSince(ctx, store.CategorySuggestions, since)
	if err != nil {
		return Stats{}, errStore(err)
	}
	comments, err := s.store.CountCommentsSince(ctx, since)
	if err != nil {
		return Stats{}, errStore(err)
	}
	reports, err := s.store.CountReportsSince(ctx, since)
	if err != nil {
		return Stats{}, errStore(err)
	}

	return Stats{
		TipsToday:        tips,
		SuggestionsToday: suggestions,
		CommentsToday:    comments,
		ReportsToday:     reports,
	}, nil
}

// ListReported returns the moderation queue: posts holding at least one
// report, most recently reported first. Owner only.
func (s *Service) ListReported(ctx context.Context, actor Principal) ([]store.Post, error) {
	if actor.ID == "" {
		return nil, errUnauthenticated()
	}
	if !rbac.CanResolve(actor.Role) {
		return nil, errForbidden()
	}
	posts, err := s.store.ListReportedPosts(ctx)
	if err != nil {
		return nil, errStore(err)
	}
	for i := range posts {
		if err := s.attachPostSets(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// SearchBoard runs a text search over posts and comments.
func (s *Service) SearchBoard(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

// --- helpers ---

func (s *Service) getPost(ctx context.Context, postID string) (store.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Post{}, errNotFound("post")
		}
		return store.Post{}, errStore(err)
	}
	return post, nil
}

func (s *Service) getComment(ctx context.Context, commentID string) (store.Comment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Comment{}, errNotFound("comment")
		}
		return store.Comment{}, errStore(err)
	}
	likes, err := s.store.ListCommentLikes(ctx, commentID)
	if err != nil {
		return store.Comment{}, errStore(err)
	}
	comment.Likes = likes
	return comment, nil
}

func (s *Service) loadPost(ctx context.Context, postID string) (store.Post, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return store.Post{}, err
	}
	if err := s.attachPostSets(ctx, &post); err != nil {
		return store.Post{}, err
	}
	return post, nil
}

func (s *Service) attachPostSets(ctx context.Context, post *store.Post) error {
	likes, err := s.store.ListPostLikes(ctx, post.ID)
	if err != nil {
		return errStore(err)
	}
	reports, err := s.store.ListPostReports(ctx, post.ID)
	if err != nil {
		return errStore(err)
	}
	post.Likes = likes
	post.Reports = reports
	return nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
