package rbac

import "testing"

func TestCanEdit(t *testing.T) {
	cases := []struct {
		name     string
		actorID  string
		authorID string
		allow    bool
	}{
		{name: "author edits own", actorID: "u1", authorID: "u1", allow: true},
		{name: "other member denied", actorID: "u2", authorID: "u1", allow: false},
		{name: "empty actor denied", actorID: "", authorID: "", allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanEdit(tc.actorID, tc.authorID); got != tc.allow {
				t.Fatalf("CanEdit(%q, %q) = %v, want %v", tc.actorID, tc.authorID, got, tc.allow)
			}
		})
	}
}

func TestCanDelete(t *testing.T) {
	cases := []struct {
		name     string
		role     Role
		actorID  string
		authorID string
		allow    bool
	}{
		{name: "author deletes own", role: RoleMember, actorID: "u1", authorID: "u1", allow: true},
		{name: "member cannot delete others", role: RoleMember, actorID: "u2", authorID: "u1", allow: false},
		{name: "owner deletes anything", role: RoleOwner, actorID: "u2", authorID: "u1", allow: true},
		{name: "owner deletes own", role: RoleOwner, actorID: "u1", authorID: "u1", allow: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanDelete(tc.role, tc.actorID, tc.authorID); got != tc.allow {
				t.Fatalf("CanDelete(%q, %q, %q) = %v, want %v", tc.role, tc.actorID, tc.authorID, got, tc.allow)
			}
		})
	}
}

func TestCanResolve(t *testing.T) {
	if CanResolve(RoleMember) {
		t.Fatal("member must not resolve reports")
	}
	if !CanResolve(RoleOwner) {
		t.Fatal("owner must resolve reports")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("owner") != RoleOwner {
		t.Fatal("owner should survive normalization")
	}
	if Normalize("admin") != RoleMember {
		t.Fatal("unknown roles default to member")
	}
}
