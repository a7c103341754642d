// Package permission decides whether an actor may perform a request.
//
// Decisions are made in two phases. CheckRequest runs before any resource is
// loaded and sees only the actor and the HTTP method. CheckObject runs after
// the target is loaded and additionally sees the owner of that target. Object
// checks are only meaningful for requests that address an existing object;
// creation is governed by CheckRequest alone.
package permission

import (
	"net/http"

	"yamdb/internal/entity"
)

// Actor describes the capabilities of whoever is making a request.
type Actor struct {
	ID            uint
	Authenticated bool
	Role          string
	IsSuperuser   bool
}

// Anonymous is the actor for requests without credentials.
var Anonymous = Actor{}

// IsAdmin reports admin-equivalent authority.
func (a Actor) IsAdmin() bool {
	return a.Authenticated && (a.Role == entity.UserRoleAdmin || a.IsSuperuser)
}

// IsModerator reports moderator authority. Admins are moderators too.
func (a Actor) IsModerator() bool {
	return a.Authenticated && (a.Role == entity.UserRoleModerator || a.IsAdmin())
}

// IsSafeMethod reports whether method never mutates state.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Policy names one of the access strategies an endpoint can select.
type Policy int

const (
	// AdminOnly allows authenticated admin-equivalent actors only.
	AdminOnly Policy = iota + 1
	// AdminOrReadOnly allows anyone to read and admins to write.
	AdminOrReadOnly
	// ReadOnlyOrAuthorOrAdmin allows anyone to read, any authenticated actor
	// to create, and the author or a moderator/admin to change an object.
	ReadOnlyOrAuthorOrAdmin
)

const (
	MessageAdminOnly       = "access is allowed to administrators only"
	MessageAdminOrReadOnly = "only administrators may modify this resource"
	MessageAuthorOrAdmin   = "you cannot perform this operation"
)

func (p Policy) String() string {
	switch p {
	case AdminOnly:
		return "admin_only"
	case AdminOrReadOnly:
		return "admin_or_read_only"
	case ReadOnlyOrAuthorOrAdmin:
		return "read_only_or_author_or_admin"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a check. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// CheckRequest performs the request-level check.
func (p Policy) CheckRequest(actor Actor, method string) Decision {
	switch p {
	case AdminOnly:
		if actor.IsAdmin() {
			return allow()
		}
		return deny(MessageAdminOnly)
	case AdminOrReadOnly:
		if IsSafeMethod(method) || actor.IsAdmin() {
			return allow()
		}
		return deny(MessageAdminOrReadOnly)
	case ReadOnlyOrAuthorOrAdmin:
		if IsSafeMethod(method) || actor.Authenticated {
			return allow()
		}
		return deny(MessageAuthorOrAdmin)
	default:
		return deny(MessageAdminOnly)
	}
}

// CheckObject performs the object-level check against an object owned by
// ownerID. Policies without an object-level rule defer to CheckRequest.
func (p Policy) CheckObject(actor Actor, method string, ownerID uint) Decision {
	if p != ReadOnlyOrAuthorOrAdmin {
		return p.CheckRequest(actor, method)
	}
	if IsSafeMethod(method) {
		return allow()
	}
	if !actor.Authenticated {
		return deny(MessageAuthorOrAdmin)
	}
	if actor.IsModerator() || (actor.ID != 0 && actor.ID == ownerID) {
		return allow()
	}
	return deny(MessageAuthorOrAdmin)
}

// CanChangeOwnRole reports whether actor may alter the role field on their
// own profile. Everyone else has the field silently pinned.
func CanChangeOwnRole(actor Actor) bool {
	return actor.IsAdmin()
}
