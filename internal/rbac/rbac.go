// Package rbac holds the board's authorization rules as pure predicates.
package rbac

type Role string

const (
	RoleMember Role = "member"
	RoleOwner  Role = "owner"
)

// CanEdit allows editing only by the author. Owners get no override here;
// moderation never rewrites someone else's words.
func CanEdit(actorID, authorID string) bool {
	return actorID != "" && actorID == authorID
}

// CanDelete allows deletion by the author or by an owner.
func CanDelete(role Role, actorID, authorID string) bool {
	if role == RoleOwner {
		return true
	}
	return actorID != "" && actorID == authorID
}

// CanResolve allows clearing a post's reports. Owner only; authorship is
// irrelevant for moderation triage.
func CanResolve(role Role) bool {
	return role == RoleOwner
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleOwner:
		return Role(role)
	default:
		return RoleMember
	}
}
