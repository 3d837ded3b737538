package app

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"paygate/pkg/domain"
)

// ContentPatch carries updatable content fields; nil means "leave as is".
type ContentPatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	FileType    *domain.FileType `json:"fileType"`
	Order       *int             `json:"order"`
}

// CreateContent stores a new content item. When no explicit order is given
// (negative order), the item is appended one past the collection's current
// maximum, or at 0 for an empty collection.
func (a *App) CreateContent(c domain.Content, explicitOrder bool) (domain.Content, error) {
	if err := a.ready(); err != nil {
		return domain.Content{}, err
	}
	c.CollectionID = strings.TrimSpace(c.CollectionID)
	if c.CollectionID == "" {
		return domain.Content{}, validation("collectionId is required")
	}
	if _, found, err := a.store.GetCollection(c.CollectionID); err != nil {
		return domain.Content{}, wrap("lookup collection", err)
	} else if !found {
		return domain.Content{}, notFound("collection")
	}
	if c.FileType == "" {
		c.FileType = domain.FileOther
	}
	if !explicitOrder {
		max, any, err := a.store.MaxContentOrder(c.CollectionID)
		if err != nil {
			return domain.Content{}, wrap("max content order", err)
		}
		if any {
			c.Order = max + 1
		} else {
			c.Order = 0
		}
	}
	now := a.now()
	c.ID = newID()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := a.store.SaveContent(c); err != nil {
		return domain.Content{}, wrap("save content", err)
	}
	return c, nil
}

// GetContent returns one content item by id.
func (a *App) GetContent(id string) (domain.Content, error) {
	if err := a.ready(); err != nil {
		return domain.Content{}, err
	}
	c, found, err := a.store.GetContent(id)
	if err != nil {
		return domain.Content{}, wrap("lookup content", err)
	}
	if !found {
		return domain.Content{}, notFound("content")
	}
	return c, nil
}

// ListContentsForCollection returns a collection's contents in display order.
func (a *App) ListContentsForCollection(collectionID string) ([]domain.Content, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	list, err := a.store.ListContentsByCollection(collectionID)
	if err != nil {
		return nil, wrap("list contents", err)
	}
	return list, nil
}

// UpdateContent applies a partial update and returns the stored record.
func (a *App) UpdateContent(id string, patch ContentPatch) (domain.Content, error) {
	if err := a.ready(); err != nil {
		return domain.Content{}, err
	}
	c, found, err := a.store.GetContent(id)
	if err != nil {
		return domain.Content{}, wrap("lookup content", err)
	}
	if !found {
		return domain.Content{}, notFound("content")
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.FileType != nil {
		c.FileType = *patch.FileType
	}
	if patch.Order != nil {
		c.Order = *patch.Order
	}
	c.UpdatedAt = a.now()
	if err := a.store.SaveContent(c); err != nil {
		return domain.Content{}, wrap("save content", err)
	}
	return c, nil
}

// DeleteContent removes one content item and best-effort deletes its stored
// object.
func (a *App) DeleteContent(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	c, found, err := a.store.GetContent(id)
	if err != nil {
		return wrap("lookup content", err)
	}
	if !found {
		return notFound("content")
	}
	deleted, err := a.store.DeleteContent(id)
	if err != nil {
		return wrap("delete content", err)
	}
	if !deleted {
		return notFound("content")
	}
	a.deleteObject(ctx, c)
	return nil
}

// ReorderContents assigns order = index for the given id sequence. Each
// update is an independent write fanned out concurrently; a failure mid-way
// leaves a partial ordering, which is accepted as best-effort.
func (a *App) ReorderContents(ctx context.Context, collectionID string, ids []string) error {
	if err := a.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(collectionID) == "" {
		return validation("collectionId is required")
	}
	if len(ids) == 0 {
		return validation("contentOrder is required")
	}
	g, _ := errgroup.WithContext(ctx)
	for index, id := range ids {
		index, id := index, id
		g.Go(func() error {
			_, err := a.store.SetContentOrder(id, index)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return wrap("reorder contents", err)
	}
	return nil
}

// ContentDownloadURL issues a short-lived presigned URL for a content file.
// The collection owner can always download; anyone else needs a completed
// purchase that still grants access.
func (a *App) ContentDownloadURL(ctx context.Context, contentID, userID string) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	if a.objects == nil {
		return "", ErrObjectStoreUnavailable
	}
	if strings.TrimSpace(userID) == "" {
		return "", validation("userId is required")
	}
	c, found, err := a.store.GetContent(contentID)
	if err != nil {
		return "", wrap("lookup content", err)
	}
	if !found {
		return "", notFound("content")
	}
	collection, found, err := a.store.GetCollection(c.CollectionID)
	if err != nil {
		return "", wrap("lookup collection", err)
	}
	if !found {
		return "", notFound("collection")
	}
	if collection.UserID != userID {
		allowed, err := a.CheckAccess(userID, c.CollectionID)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", notFound("entitled purchase")
		}
	}
	if c.StorageKey == "" {
		return "", notFound("content file")
	}
	url, err := a.objects.PresignGet(ctx, c.StorageKey, a.downloadTTL)
	if err != nil {
		return "", wrap("presign content", err)
	}
	return url, nil
}

// deleteObject removes a content file from the blob store. Best-effort:
// failures are logged and swallowed.
func (a *App) deleteObject(ctx context.Context, c domain.Content) {
	if a.objects == nil || c.StorageKey == "" {
		return
	}
	if err := a.objects.Delete(ctx, c.StorageKey); err != nil {
		slog.Warn("content object delete failed", "content_id", c.ID, "key", c.StorageKey, "err", err)
	}
}
