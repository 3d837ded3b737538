package policy

import (
	"time"

	"paygate/pkg/domain"
)

// Snapshot holds the restriction fields materialized from a collection's
// access policy at purchase time. At most one field is non-nil.
type Snapshot struct {
	AccessExpires  *time.Time
	ViewsRemaining *int
}

// Materialize computes the restriction snapshot for a purchase against the
// given collection. Time-based policies expire AccessLimit days from now;
// view-based policies start with AccessLimit views. Permanent policies, and
// limited policies with a zero or negative limit, yield no restriction
// fields at all. The zero-limit case means unrestricted access and is kept
// as-is; callers that care should log it.
func Materialize(c domain.Collection, now time.Time) Snapshot {
	var snap Snapshot
	switch c.AccessType {
	case domain.AccessTimeBased:
		if c.AccessLimit > 0 {
			expires := now.AddDate(0, 0, c.AccessLimit)
			snap.AccessExpires = &expires
		}
	case domain.AccessViewBased:
		if c.AccessLimit > 0 {
			views := c.AccessLimit
			snap.ViewsRemaining = &views
		}
	}
	return snap
}

// HasAccess decides entitlement from the purchase snapshot alone; it never
// re-reads the collection. Only completed purchases grant access, and the
// restriction field (if any) must not be exhausted.
func HasAccess(p domain.Purchase, now time.Time) bool {
	if p.Status != domain.PurchaseCompleted {
		return false
	}
	if p.AccessExpires != nil && now.After(*p.AccessExpires) {
		return false
	}
	if p.ViewsRemaining != nil && *p.ViewsRemaining <= 0 {
		return false
	}
	return true
}

// Unrestricted reports whether a limited access type carries no usable
// limit, i.e. the materialized snapshot would have no restriction fields.
func Unrestricted(c domain.Collection) bool {
	switch c.AccessType {
	case domain.AccessTimeBased, domain.AccessViewBased:
		return c.AccessLimit <= 0
	default:
		return false
	}
}
