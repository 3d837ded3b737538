package store

import (
	"time"

	"gorm.io/datatypes"

	"paygate/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	UID         string `gorm:"primaryKey"`
	Email       string `gorm:"not null"`
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type CollectionModel struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	Price       float64
	CoverImage  string
	AccessType  string `gorm:"not null"`
	AccessLimit int
	IsPublished bool      `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type ContentModel struct {
	ID           string `gorm:"primaryKey"`
	CollectionID string `gorm:"not null;index"`
	UserID       string `gorm:"not null"`
	Title        string
	Description  string
	FileType     string `gorm:"not null"`
	StorageKey   string
	DisplayOrder int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type PurchaseModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"not null;index"`
	CollectionID   string `gorm:"not null;index"`
	Amount         float64
	PaymentMethod  string
	PaymentID      string
	PaymentMeta    datatypes.JSONMap `gorm:"type:jsonb"`
	Status         string            `gorm:"not null;index"`
	AccessExpires  *time.Time
	ViewsRemaining *int
	CreatedAt      time.Time `gorm:"not null;index"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		UID:         u.UID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		UID:         m.UID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		PhotoURL:    m.PhotoURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func collectionToModel(c domain.Collection) CollectionModel {
	return CollectionModel{
		ID:          c.ID,
		UserID:      c.UserID,
		Title:       c.Title,
		Description: c.Description,
		Price:       c.Price,
		CoverImage:  c.CoverImage,
		AccessType:  string(c.AccessType),
		AccessLimit: c.AccessLimit,
		IsPublished: c.IsPublished,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func collectionFromModel(m CollectionModel) domain.Collection {
	return domain.Collection{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
		CoverImage:  m.CoverImage,
		AccessType:  domain.AccessType(m.AccessType),
		AccessLimit: m.AccessLimit,
		IsPublished: m.IsPublished,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func contentToModel(c domain.Content) ContentModel {
	return ContentModel{
		ID:           c.ID,
		CollectionID: c.CollectionID,
		UserID:       c.UserID,
		Title:        c.Title,
		Description:  c.Description,
		FileType:     string(c.FileType),
		StorageKey:   c.StorageKey,
		DisplayOrder: c.Order,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func contentFromModel(m ContentModel) domain.Content {
	return domain.Content{
		ID:           m.ID,
		CollectionID: m.CollectionID,
		UserID:       m.UserID,
		Title:        m.Title,
		Description:  m.Description,
		FileType:     domain.FileType(m.FileType),
		StorageKey:   m.StorageKey,
		Order:        m.DisplayOrder,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func purchaseToModel(p domain.Purchase) PurchaseModel {
	var meta datatypes.JSONMap
	if len(p.PaymentMeta) > 0 {
		meta = make(datatypes.JSONMap, len(p.PaymentMeta))
		for k, v := range p.PaymentMeta {
			meta[k] = v
		}
	}
	return PurchaseModel{
		ID:             p.ID,
		UserID:         p.UserID,
		CollectionID:   p.CollectionID,
		Amount:         p.Amount,
		PaymentMethod:  p.PaymentMethod,
		PaymentID:      p.PaymentID,
		PaymentMeta:    meta,
		Status:         string(p.Status),
		AccessExpires:  p.AccessExpires,
		ViewsRemaining: p.ViewsRemaining,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func purchaseFromModel(m PurchaseModel) domain.Purchase {
	var meta map[string]string
	if len(m.PaymentMeta) > 0 {
		meta = make(map[string]string, len(m.PaymentMeta))
		for k, v := range m.PaymentMeta {
			if s, ok := v.(string); ok {
				meta[k] = s
			}
		}
	}
	return domain.Purchase{
		ID:             m.ID,
		UserID:         m.UserID,
		CollectionID:   m.CollectionID,
		Amount:         m.Amount,
		PaymentMethod:  m.PaymentMethod,
		PaymentID:      m.PaymentID,
		PaymentMeta:    meta,
		Status:         domain.PurchaseStatus(m.Status),
		AccessExpires:  m.AccessExpires,
		ViewsRemaining: m.ViewsRemaining,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
