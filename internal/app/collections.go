package app

import (
	"context"
	"log/slog"
	"strings"

	"paygate/internal/policy"
	"paygate/pkg/domain"
)

const defaultPublishedLimit = 10

// CollectionPatch carries updatable collection fields; nil means "leave as is".
type CollectionPatch struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Price       *float64           `json:"price"`
	CoverImage  *string            `json:"coverImage"`
	AccessType  *domain.AccessType `json:"accessType"`
	AccessLimit *int               `json:"accessLimit"`
	IsPublished *bool              `json:"isPublished"`
}

// CreateCollection stores a new collection owned by its creator.
func (a *App) CreateCollection(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	if err := a.ready(); err != nil {
		return domain.Collection{}, err
	}
	c.UserID = strings.TrimSpace(c.UserID)
	if c.UserID == "" {
		return domain.Collection{}, validation("userId is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return domain.Collection{}, validation("title is required")
	}
	if !domain.ValidAccessType(c.AccessType) {
		return domain.Collection{}, validation("unknown accessType %q", c.AccessType)
	}
	if policy.Unrestricted(c) {
		// A limited access type without a positive limit materializes into
		// unrestricted purchases. Kept, but worth seeing in the logs.
		slog.Warn("collection has limited access type without a usable limit",
			"access_type", c.AccessType, "access_limit", c.AccessLimit)
	}
	now := a.now()
	c.ID = newID()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := a.store.SaveCollection(c); err != nil {
		return domain.Collection{}, wrap("save collection", err)
	}
	a.invalidatePublished(ctx)
	return c, nil
}

// GetCollection returns one collection by id.
func (a *App) GetCollection(id string) (domain.Collection, error) {
	if err := a.ready(); err != nil {
		return domain.Collection{}, err
	}
	c, found, err := a.store.GetCollection(id)
	if err != nil {
		return domain.Collection{}, wrap("lookup collection", err)
	}
	if !found {
		return domain.Collection{}, notFound("collection")
	}
	return c, nil
}

// ListCollectionsForUser returns a creator's collections, newest first.
func (a *App) ListCollectionsForUser(userID string) ([]domain.Collection, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	list, err := a.store.ListCollectionsByOwner(userID)
	if err != nil {
		return nil, wrap("list collections", err)
	}
	return list, nil
}

// ListPublishedCollections returns up to limit published collections, newest
// first, served from the cache when possible.
func (a *App) ListPublishedCollections(ctx context.Context, limit int) ([]domain.Collection, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPublishedLimit
	}
	if cached, ok := a.cache.Get(ctx, limit); ok {
		return cached, nil
	}
	list, err := a.store.ListPublishedCollections(limit)
	if err != nil {
		return nil, wrap("list published collections", err)
	}
	if err := a.cache.Set(ctx, limit, list); err != nil {
		slog.Warn("published cache set failed", "err", err)
	}
	return list, nil
}

// UpdateCollection applies a partial update and returns the stored record.
// Purchases made before the update keep their original policy snapshot.
func (a *App) UpdateCollection(ctx context.Context, id string, patch CollectionPatch) (domain.Collection, error) {
	if err := a.ready(); err != nil {
		return domain.Collection{}, err
	}
	c, found, err := a.store.GetCollection(id)
	if err != nil {
		return domain.Collection{}, wrap("lookup collection", err)
	}
	if !found {
		return domain.Collection{}, notFound("collection")
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Price != nil {
		c.Price = *patch.Price
	}
	if patch.CoverImage != nil {
		c.CoverImage = *patch.CoverImage
	}
	if patch.AccessType != nil {
		if !domain.ValidAccessType(*patch.AccessType) {
			return domain.Collection{}, validation("unknown accessType %q", *patch.AccessType)
		}
		c.AccessType = *patch.AccessType
	}
	if patch.AccessLimit != nil {
		c.AccessLimit = *patch.AccessLimit
	}
	if patch.IsPublished != nil {
		c.IsPublished = *patch.IsPublished
	}
	c.UpdatedAt = a.now()
	if err := a.store.SaveCollection(c); err != nil {
		return domain.Collection{}, wrap("save collection", err)
	}
	a.invalidatePublished(ctx)
	return c, nil
}

// DeleteCollection removes a collection and all of its contents. The store
// performs both deletes atomically, so readers never see orphaned contents.
// Stored objects for the removed contents are deleted best-effort.
func (a *App) DeleteCollection(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	contents, err := a.store.ListContentsByCollection(id)
	if err != nil {
		return wrap("list contents", err)
	}
	found, err := a.store.DeleteCollectionCascade(id)
	if err != nil {
		return wrap("delete collection", err)
	}
	if !found {
		return notFound("collection")
	}
	for _, content := range contents {
		a.deleteObject(ctx, content)
	}
	a.invalidatePublished(ctx)
	return nil
}
