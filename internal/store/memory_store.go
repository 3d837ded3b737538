package store

import (
	"sort"
	"sync"
	"time"

	"paygate/pkg/domain"
)

// MemoryStore keeps all records in-process. It implements the same contract
// as GormStore and backs the app and server tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	collections map[string]domain.Collection
	contents    map[string]domain.Content
	purchases   map[string]domain.Purchase
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		collections: make(map[string]domain.Collection),
		contents:    make(map[string]domain.Content),
		purchases:   make(map[string]domain.Purchase),
	}
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping() error { return nil }

// SaveUser stores or replaces a user keyed by provider uid.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UID] = u
	return nil
}

// GetUser returns a user by provider uid.
func (m *MemoryStore) GetUser(uid string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[uid]
	return u, ok, nil
}

// DeleteUser removes a user record.
func (m *MemoryStore) DeleteUser(uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[uid]; !ok {
		return false, nil
	}
	delete(m.users, uid)
	return true, nil
}

// SaveCollection stores or replaces a collection.
func (m *MemoryStore) SaveCollection(c domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[c.ID] = c
	return nil
}

// GetCollection retrieves a collection by id.
func (m *MemoryStore) GetCollection(id string) (domain.Collection, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	return c, ok, nil
}

// ListCollectionsByOwner returns a creator's collections, newest first.
func (m *MemoryStore) ListCollectionsByOwner(userID string) ([]domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Collection, 0)
	for _, c := range m.collections {
		if c.UserID == userID {
			res = append(res, c)
		}
	}
	sortCollectionsNewestFirst(res)
	return res, nil
}

// ListPublishedCollections returns up to limit published collections, newest first.
func (m *MemoryStore) ListPublishedCollections(limit int) ([]domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Collection, 0)
	for _, c := range m.collections {
		if c.IsPublished {
			res = append(res, c)
		}
	}
	sortCollectionsNewestFirst(res)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// DeleteCollectionCascade removes the collection and its contents under one lock.
func (m *MemoryStore) DeleteCollectionCascade(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cid, c := range m.contents {
		if c.CollectionID == id {
			delete(m.contents, cid)
		}
	}
	if _, ok := m.collections[id]; !ok {
		return false, nil
	}
	delete(m.collections, id)
	return true, nil
}

// SaveContent stores or replaces a content item.
func (m *MemoryStore) SaveContent(c domain.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents[c.ID] = c
	return nil
}

// GetContent retrieves a content item by id.
func (m *MemoryStore) GetContent(id string) (domain.Content, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contents[id]
	return c, ok, nil
}

// ListContentsByCollection returns a collection's contents in display order.
func (m *MemoryStore) ListContentsByCollection(collectionID string) ([]domain.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Content, 0)
	for _, c := range m.contents {
		if c.CollectionID == collectionID {
			res = append(res, c)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	return res, nil
}

// MaxContentOrder returns the highest display order within a collection.
func (m *MemoryStore) MaxContentOrder(collectionID string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max, found := 0, false
	for _, c := range m.contents {
		if c.CollectionID != collectionID {
			continue
		}
		if !found || c.Order > max {
			max = c.Order
		}
		found = true
	}
	return max, found, nil
}

// SetContentOrder assigns a new display order to one content item.
func (m *MemoryStore) SetContentOrder(id string, order int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contents[id]
	if !ok {
		return false, nil
	}
	c.Order = order
	c.UpdatedAt = time.Now().UTC()
	m.contents[id] = c
	return true, nil
}

// DeleteContent removes one content item.
func (m *MemoryStore) DeleteContent(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contents[id]; !ok {
		return false, nil
	}
	delete(m.contents, id)
	return true, nil
}

// SavePurchase stores or replaces a purchase record.
func (m *MemoryStore) SavePurchase(p domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[p.ID] = copyPurchase(p)
	return nil
}

// GetPurchase retrieves a purchase by id.
func (m *MemoryStore) GetPurchase(id string) (domain.Purchase, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return domain.Purchase{}, false, nil
	}
	return copyPurchase(p), true, nil
}

// ListCompletedPurchasesByUser returns a buyer's completed purchases, newest first.
func (m *MemoryStore) ListCompletedPurchasesByUser(userID string) ([]domain.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Purchase, 0)
	for _, p := range m.purchases {
		if p.UserID == userID && p.Status == domain.PurchaseCompleted {
			res = append(res, copyPurchase(p))
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// FindCompletedPurchase returns the completed purchase for user+collection, if any.
func (m *MemoryStore) FindCompletedPurchase(userID, collectionID string) (domain.Purchase, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.purchases {
		if p.UserID == userID && p.CollectionID == collectionID && p.Status == domain.PurchaseCompleted {
			return copyPurchase(p), true, nil
		}
	}
	return domain.Purchase{}, false, nil
}

// SetPurchaseStatus overwrites the status unconditionally.
func (m *MemoryStore) SetPurchaseStatus(id string, status domain.PurchaseStatus) (domain.Purchase, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return domain.Purchase{}, false, nil
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	m.purchases[id] = p
	return copyPurchase(p), true, nil
}

// DecrementViews decrements with floor 0 under the store lock.
func (m *MemoryStore) DecrementViews(id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok || p.ViewsRemaining == nil {
		return 0, nil
	}
	if *p.ViewsRemaining <= 0 {
		return 0, nil
	}
	views := *p.ViewsRemaining - 1
	p.ViewsRemaining = &views
	p.UpdatedAt = time.Now().UTC()
	m.purchases[id] = p
	return views, nil
}

func sortCollectionsNewestFirst(cs []domain.Collection) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].CreatedAt.After(cs[j].CreatedAt) })
}

// copyPurchase detaches pointer fields so callers never alias stored state.
func copyPurchase(p domain.Purchase) domain.Purchase {
	out := p
	if p.AccessExpires != nil {
		expires := *p.AccessExpires
		out.AccessExpires = &expires
	}
	if p.ViewsRemaining != nil {
		views := *p.ViewsRemaining
		out.ViewsRemaining = &views
	}
	if p.PaymentMeta != nil {
		meta := make(map[string]string, len(p.PaymentMeta))
		for k, v := range p.PaymentMeta {
			meta[k] = v
		}
		out.PaymentMeta = meta
	}
	return out
}
