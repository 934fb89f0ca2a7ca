package auth

import (
	"context"
	"strings"

	"github.com/spec-kit/user-service/internal/domain"
)

// Decision is the outcome of an access-control check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Request is the slice of the incoming request a policy reads.
type Request struct {
	Path  string
	Token string
}

// Policy decides whether a request may proceed. On Allow it also returns the identity.
type Policy interface {
	Name() string
	Authorize(ctx context.Context, req Request) (*domain.User, Decision)
}

type adminOnly struct {
	authn *Authenticator
}

// AdminOnly admits authenticated staff users only.
func AdminOnly(authn *Authenticator) Policy {
	return adminOnly{authn: authn}
}

func (adminOnly) Name() string { return "admin_only" }

func (p adminOnly) Authorize(ctx context.Context, req Request) (*domain.User, Decision) {
	user := p.authn.Authenticate(ctx, req.Token)
	if !user.IsAdmin() {
		return nil, Deny
	}
	return user, Allow
}

type ownerOrAdmin struct {
	authn *Authenticator
}

// OwnerOrAdmin admits staff users, and otherwise only the user named by the
// last path segment, matched against the user's id or username.
func OwnerOrAdmin(authn *Authenticator) Policy {
	return ownerOrAdmin{authn: authn}
}

func (ownerOrAdmin) Name() string { return "owner_or_admin" }

func (p ownerOrAdmin) Authorize(ctx context.Context, req Request) (*domain.User, Decision) {
	user := p.authn.Authenticate(ctx, req.Token)
	if user == nil {
		return nil, Deny
	}
	if user.IsAdmin() {
		return user, Allow
	}

	target := TargetFromPath(req.Path)
	if target == "" {
		return nil, Deny
	}
	if user.ID == target || user.Username == target {
		return user, Allow
	}
	return nil, Deny
}

// TargetFromPath returns the final "/"-separated segment of path.
// A trailing slash yields an empty target.
func TargetFromPath(path string) string {
	idx := strings.LastIndexByte(path, '/')
	return path[idx+1:]
}
