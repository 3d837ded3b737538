package domain

import "time"

type AccessType string

const (
	AccessTimeBased AccessType = "time-based"
	AccessViewBased AccessType = "view-based"
	AccessPermanent AccessType = "permanent"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

type FileType string

const (
	FileImage FileType = "image"
	FileVideo FileType = "video"
	FilePDF   FileType = "pdf"
	FileAudio FileType = "audio"
	FileOther FileType = "other"
)

// User mirrors the identity subject issued by the external auth provider.
// UID is the provider subject id and is unique across users.
type User struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Collection is a priced bundle of ordered content items with an access policy.
// AccessLimit is days for time-based and a view count for view-based; it is
// ignored for permanent collections.
type Collection struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	CoverImage  string     `json:"coverImage,omitempty"`
	AccessType  AccessType `json:"accessType"`
	AccessLimit int        `json:"accessLimit,omitempty"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Content is a single media item inside a collection. Order defines the
// display sequence within its collection.
type Content struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collectionId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	FileType     FileType  `json:"fileType"`
	StorageKey   string    `json:"-"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Purchase records a buyer paying for a collection. AccessExpires and
// ViewsRemaining are a snapshot of the collection's access policy taken at
// purchase time; at most one of them is set and neither is ever recomputed,
// even if the collection's policy changes later.
type Purchase struct {
	ID             string            `json:"id"`
	UserID         string            `json:"userId"`
	CollectionID   string            `json:"collectionId"`
	Amount         float64           `json:"amount"`
	PaymentMethod  string            `json:"paymentMethod,omitempty"`
	PaymentID      string            `json:"paymentId,omitempty"`
	PaymentMeta    map[string]string `json:"paymentMeta,omitempty"`
	Status         PurchaseStatus    `json:"status"`
	AccessExpires  *time.Time        `json:"accessExpires,omitempty"`
	ViewsRemaining *int              `json:"viewsRemaining,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// PurchaseWithCollection joins a purchase with its collection for display.
type PurchaseWithCollection struct {
	Purchase
	Collection *Collection `json:"collection"`
}

// ValidPurchaseStatus reports whether s is one of the four known statuses.
// Transitions between statuses are deliberately unconstrained.
func ValidPurchaseStatus(s PurchaseStatus) bool {
	switch s {
	case PurchasePending, PurchaseCompleted, PurchaseFailed, PurchaseRefunded:
		return true
	default:
		return false
	}
}

// ValidAccessType reports whether t is a known access policy type.
func ValidAccessType(t AccessType) bool {
	switch t {
	case AccessTimeBased, AccessViewBased, AccessPermanent:
		return true
	default:
		return false
	}
}
