// Package rbac provides pure role predicates layered on top of an already
// validated session. No side effects beyond what Validate already performed.
package rbac

import (
	"session-authority/internal/account/domain"
	"session-authority/internal/authority"
)

// RequireRole ensures the validated session's account has the given role.
// Returns authority.ErrForbidden otherwise.
func RequireRole(cur *authority.CurrentSession, role domain.Role) error {
	if cur == nil || cur.Account == nil {
		return authority.ErrForbidden
	}
	if cur.Account.Role != role {
		return authority.ErrForbidden
	}
	return nil
}

// RequireOrgAdmin ensures the caller is an organization-scoped admin:
// the account belongs to an organization and has the admin role.
func RequireOrgAdmin(cur *authority.CurrentSession) error {
	if cur == nil || cur.Account == nil {
		return authority.ErrForbidden
	}
	if !cur.Account.IsCorporate() {
		return authority.ErrForbidden
	}
	if cur.Account.Role != domain.RoleAdmin {
		return authority.ErrForbidden
	}
	return nil
}
