package app

import (
	"context"
	"log/slog"
	"strings"

	"paygate/internal/policy"
	"paygate/pkg/domain"
)

// CreatePurchase records a buyer paying for a collection. The collection's
// access policy is materialized into the purchase once, here; later policy
// changes on the collection never touch existing purchases.
func (a *App) CreatePurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	if err := a.ready(); err != nil {
		return domain.Purchase{}, err
	}
	p.UserID = strings.TrimSpace(p.UserID)
	p.CollectionID = strings.TrimSpace(p.CollectionID)
	if p.UserID == "" || p.CollectionID == "" {
		return domain.Purchase{}, validation("userId and collectionId are required")
	}
	collection, found, err := a.store.GetCollection(p.CollectionID)
	if err != nil {
		return domain.Purchase{}, wrap("lookup collection", err)
	}
	if !found {
		return domain.Purchase{}, notFound("collection")
	}
	if p.Status == "" {
		p.Status = domain.PurchasePending
	} else if !domain.ValidPurchaseStatus(p.Status) {
		return domain.Purchase{}, validation("unknown status %q", p.Status)
	}

	now := a.now()
	snap := policy.Materialize(collection, now)
	if policy.Unrestricted(collection) {
		slog.Warn("purchase materialized without restriction fields",
			"collection_id", collection.ID, "access_type", collection.AccessType)
	}
	p.AccessExpires = snap.AccessExpires
	p.ViewsRemaining = snap.ViewsRemaining
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := a.store.SavePurchase(p); err != nil {
		return domain.Purchase{}, wrap("save purchase", err)
	}
	a.publishPurchaseEvent(ctx, p)
	return p, nil
}

// ListPurchasesForUser returns a buyer's completed purchases, newest first,
// each joined with its collection for display. A purchase whose collection
// has since been deleted keeps a nil collection.
func (a *App) ListPurchasesForUser(userID string) ([]domain.PurchaseWithCollection, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	purchases, err := a.store.ListCompletedPurchasesByUser(userID)
	if err != nil {
		return nil, wrap("list purchases", err)
	}
	out := make([]domain.PurchaseWithCollection, 0, len(purchases))
	for _, p := range purchases {
		joined := domain.PurchaseWithCollection{Purchase: p}
		if c, found, err := a.store.GetCollection(p.CollectionID); err != nil {
			return nil, wrap("join collection", err)
		} else if found {
			joined.Collection = &c
		}
		out = append(out, joined)
	}
	return out, nil
}

// CheckAccess reports whether the user currently has access to the
// collection. Absence of a completed purchase is a plain false, not an error.
func (a *App) CheckAccess(userID, collectionID string) (bool, error) {
	if err := a.ready(); err != nil {
		return false, err
	}
	if userID == "" || collectionID == "" {
		return false, validation("userId and collectionId are required")
	}
	p, found, err := a.store.FindCompletedPurchase(userID, collectionID)
	if err != nil {
		return false, wrap("lookup purchase", err)
	}
	if !found {
		return false, nil
	}
	return policy.HasAccess(p, a.now()), nil
}

// DecrementViews burns one view from the user's completed purchase. Nil
// means no completed purchase exists or the purchase has no view counter
// (non-view-based policy) — a no-op, not an error. The counter never goes
// below zero.
func (a *App) DecrementViews(userID, collectionID string) (*int, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if userID == "" || collectionID == "" {
		return nil, validation("userId and collectionId are required")
	}
	p, found, err := a.store.FindCompletedPurchase(userID, collectionID)
	if err != nil {
		return nil, wrap("lookup purchase", err)
	}
	if !found || p.ViewsRemaining == nil {
		return nil, nil
	}
	remaining, err := a.store.DecrementViews(p.ID)
	if err != nil {
		return nil, wrap("decrement views", err)
	}
	return &remaining, nil
}

// SetPurchaseStatus overwrites a purchase's status. The status value must be
// one of the four known statuses, but transitions are unconstrained: any
// status may follow any other.
func (a *App) SetPurchaseStatus(ctx context.Context, id string, status domain.PurchaseStatus) (domain.Purchase, error) {
	if err := a.ready(); err != nil {
		return domain.Purchase{}, err
	}
	if !domain.ValidPurchaseStatus(status) {
		return domain.Purchase{}, validation("unknown status %q", status)
	}
	p, found, err := a.store.SetPurchaseStatus(id, status)
	if err != nil {
		return domain.Purchase{}, wrap("set purchase status", err)
	}
	if !found {
		return domain.Purchase{}, notFound("purchase")
	}
	a.publishPurchaseEvent(ctx, p)
	return p, nil
}
