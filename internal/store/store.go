package store

import "paygate/pkg/domain"

// Store defines persistence operations for users, collections, contents,
// and purchases. Save operations are upserts keyed by the entity id; lookups
// report absence through the bool return instead of an error.
type Store interface {
	// users
	SaveUser(u domain.User) error
	GetUser(uid string) (domain.User, bool, error)
	DeleteUser(uid string) (bool, error)

	// collections
	SaveCollection(c domain.Collection) error
	GetCollection(id string) (domain.Collection, bool, error)
	ListCollectionsByOwner(userID string) ([]domain.Collection, error)
	ListPublishedCollections(limit int) ([]domain.Collection, error)
	// DeleteCollectionCascade removes the collection and every content row
	// referencing it as one atomic operation.
	DeleteCollectionCascade(id string) (bool, error)

	// contents
	SaveContent(c domain.Content) error
	GetContent(id string) (domain.Content, bool, error)
	ListContentsByCollection(collectionID string) ([]domain.Content, error)
	MaxContentOrder(collectionID string) (int, bool, error)
	SetContentOrder(id string, order int) (bool, error)
	DeleteContent(id string) (bool, error)

	// purchases
	SavePurchase(p domain.Purchase) error
	GetPurchase(id string) (domain.Purchase, bool, error)
	ListCompletedPurchasesByUser(userID string) ([]domain.Purchase, error)
	FindCompletedPurchase(userID, collectionID string) (domain.Purchase, bool, error)
	SetPurchaseStatus(id string, status domain.PurchaseStatus) (domain.Purchase, bool, error)
	// DecrementViews performs an atomic decrement-with-floor: the stored
	// counter only moves when it is still above zero, so concurrent calls
	// can neither under- nor over-count. It returns the remaining views
	// after the call.
	DecrementViews(id string) (int, error)

	// Ping reports backing-store reachability for health checks.
	Ping() error
}
