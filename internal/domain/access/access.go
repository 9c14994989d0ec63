package access

import (
	"strings"

	"github.com/kailas-cloud/drillscout/internal/domain/drill"
)

// Requester carries the entitlement of the caller as resolved by the gateway.
type Requester struct {
	Role                  string
	HasActiveSubscription bool
}

// Policy decides whether premium video links may be shown.
type Policy struct {
	gated map[string]struct{}
}

// NewPolicy creates a policy where the given roles need a subscription for premium videos.
// Roles match case-insensitively.
func NewPolicy(gatedRoles []string) Policy {
	gated := make(map[string]struct{}, len(gatedRoles))
	for _, r := range gatedRoles {
		if r = normalizeRole(r); r != "" {
			gated[r] = struct{}{}
		}
	}
	return Policy{gated: gated}
}

func normalizeRole(r string) string { return strings.ToLower(strings.TrimSpace(r)) }

// CanWatch reports whether r may see the video link of d.
func (p Policy) CanWatch(r Requester, d *drill.Drill) bool {
	if d.IsFree() || r.HasActiveSubscription {
		return true
	}
	_, gated := p.gated[normalizeRole(r.Role)]
	return !gated
}

// Redact clears the video link when r may not watch d. The drill itself is always returned.
func (p Policy) Redact(r Requester, d drill.Drill) drill.Drill {
	if p.CanWatch(r, &d) {
		return d
	}
	return d.WithoutVideoLink()
}
