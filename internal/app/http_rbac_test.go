package app

import (
	"net/http"
	"testing"
	"time"

	"breakroom/api/internal/store"
)

func TestOwnerOnlyRoutesDenyMembers(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "resolve reports", method: http.MethodPost, path: "/api/posts/post-1/report/resolve"},
		{name: "reported queue", method: http.MethodGet, path: "/api/community/reported"},
		{name: "digest export", method: http.MethodGet, path: "/api/community/reported/export"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFakeStore()
			seedPost(fs, "post-1", "usr_author", store.CategoryTips, time.Now())
			server, svc := newTestServer(fs)
			token := tokenFor(t, fs, svc, "usr_member", "member")

			rr, payload := doJSON(t, server, tc.method, tc.path, token, "{}")
			if rr.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403 body=%s", rr.Code, rr.Body.String())
			}
			if payload["code"] != "FORBIDDEN" {
				t.Fatalf("code = %v, want FORBIDDEN", payload["code"])
			}
		})
	}
}

func TestOwnerPassesModerationRoutes(t *testing.T) {
	fs := newFakeStore()
	seedPost(fs, "post-1", "usr_author", store.CategoryTips, time.Now())
	fs.postReports["post-1"] = map[string]time.Time{"usr_a": time.Now()}
	server, svc := newTestServer(fs)
	token := tokenFor(t, fs, svc, "usr_owner", "owner")

	rr, payload := doJSON(t, server, http.MethodGet, "/api/community/reported", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reported queue status = %d body=%s", rr.Code, rr.Body.String())
	}
	posts, _ := payload["posts"].([]any)
	if len(posts) != 1 {
		t.Fatalf("expected 1 reported post, got %v", payload["posts"])
	}

	rr, _ = doJSON(t, server, http.MethodPost, "/api/posts/post-1/report/resolve", token, "{}")
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve status = %d body=%s", rr.Code, rr.Body.String())
	}
	if len(fs.postReports["post-1"]) != 0 {
		t.Fatalf("reports not cleared: %v", fs.postReports["post-1"])
	}

	// Export needs a configured exporter; without one the owner gets a
	// clean unavailable, not a forbidden.
	rr, payload = doJSON(t, server, http.MethodGet, "/api/community/reported/export", token, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("export status = %d, want 503", rr.Code)
	}
	if payload["code"] != "EXPORT_UNAVAILABLE" {
		t.Fatalf("export code = %v", payload["code"])
	}
}

func TestEditAndDeleteMatrixOverHTTP(t *testing.T) {
	tests := []struct {
		name       string
		actor      string
		role       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "author edits own post", actor: "usr_author", role: "member", method: http.MethodPatch, path: "/api/posts/post-1", body: `{"title":"edited"}`, wantStatus: http.StatusOK},
		{name: "other member cannot edit", actor: "usr_other", role: "member", method: http.MethodPatch, path: "/api/posts/post-1", body: `{"title":"edited"}`, wantStatus: http.StatusForbidden},
		{name: "owner cannot edit others", actor: "usr_owner", role: "owner", method: http.MethodPatch, path: "/api/posts/post-1", body: `{"title":"edited"}`, wantStatus: http.StatusForbidden},
		{name: "other member cannot delete", actor: "usr_other", role: "member", method: http.MethodDelete, path: "/api/posts/post-1", body: "", wantStatus: http.StatusForbidden},
		{name: "owner deletes others", actor: "usr_owner", role: "owner", method: http.MethodDelete, path: "/api/posts/post-1", body: "", wantStatus: http.StatusOK},
		{name: "author deletes own post", actor: "usr_author", role: "member", method: http.MethodDelete, path: "/api/posts/post-1", body: "", wantStatus: http.StatusOK},
		{name: "author edits own comment", actor: "usr_author", role: "member", method: http.MethodPatch, path: "/api/comments/cmt-1", body: `{"content":"edited"}`, wantStatus: http.StatusOK},
		{name: "owner cannot edit comment", actor: "usr_owner", role: "owner", method: http.MethodPatch, path: "/api/comments/cmt-1", body: `{"content":"edited"}`, wantStatus: http.StatusForbidden},
		{name: "owner deletes comment", actor: "usr_owner", role: "owner", method: http.MethodDelete, path: "/api/comments/cmt-1", body: "", wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFakeStore()
			seedPost(fs, "post-1", "usr_author", store.CategoryTips, time.Now())
			seedComment(fs, "cmt-1", "post-1", nil, "usr_author", time.Now())
			server, svc := newTestServer(fs)
			token := tokenFor(t, fs, svc, tc.actor, tc.role)

			rr, _ := doJSON(t, server, tc.method, tc.path, token, tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tc.wantStatus, rr.Body.String())
			}
		})
	}
}
