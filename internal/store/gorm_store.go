package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paygate/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &CollectionModel{}, &ContentModel{}, &PurchaseModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Ping checks connectivity through the underlying sql.DB.
func (s *GormStore) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SaveUser creates or updates a user keyed by provider uid.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "photo_url", "updated_at"}),
	}).Create(&model).Error
}

// GetUser returns a user by provider uid.
func (s *GormStore) GetUser(uid string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// DeleteUser removes a user record.
func (s *GormStore) DeleteUser(uid string) (bool, error) {
	res := s.db.Delete(&UserModel{}, "uid = ?", uid)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveCollection stores or updates a collection.
func (s *GormStore) SaveCollection(c domain.Collection) error {
	model := collectionToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "price", "cover_image",
			"access_type", "access_limit", "is_published", "updated_at",
		}),
	}).Create(&model).Error
}

// GetCollection retrieves a collection by id.
func (s *GormStore) GetCollection(id string) (domain.Collection, bool, error) {
	var model CollectionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Collection{}, false, nil
		}
		return domain.Collection{}, false, err
	}
	return collectionFromModel(model), true, nil
}

// ListCollectionsByOwner returns a creator's collections, newest first.
func (s *GormStore) ListCollectionsByOwner(userID string) ([]domain.Collection, error) {
	return s.listCollections(0, "user_id = ?", userID)
}

// ListPublishedCollections returns up to limit published collections, newest first.
func (s *GormStore) ListPublishedCollections(limit int) ([]domain.Collection, error) {
	return s.listCollections(limit, "is_published = ?", true)
}

func (s *GormStore) listCollections(limit int, conds ...any) ([]domain.Collection, error) {
	var models []CollectionModel
	tx := s.db.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Collection, 0, len(models))
	for _, m := range models {
		res = append(res, collectionFromModel(m))
	}
	return res, nil
}

// DeleteCollectionCascade removes the collection and its contents in one
// transaction so no reader can observe orphaned content rows.
func (s *GormStore) DeleteCollectionCascade(id string) (bool, error) {
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ContentModel{}, "collection_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&CollectionModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// SaveContent stores or updates a content item.
func (s *GormStore) SaveContent(c domain.Content) error {
	model := contentToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "file_type", "storage_key", "display_order", "updated_at",
		}),
	}).Create(&model).Error
}

// GetContent retrieves a content item by id.
func (s *GormStore) GetContent(id string) (domain.Content, bool, error) {
	var model ContentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Content{}, false, nil
		}
		return domain.Content{}, false, err
	}
	return contentFromModel(model), true, nil
}

// ListContentsByCollection returns a collection's contents in display order.
func (s *GormStore) ListContentsByCollection(collectionID string) ([]domain.Content, error) {
	var models []ContentModel
	err := s.db.Where("collection_id = ?", collectionID).
		Order("display_order ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Content, 0, len(models))
	for _, m := range models {
		res = append(res, contentFromModel(m))
	}
	return res, nil
}

// MaxContentOrder returns the highest display order within a collection.
// The bool is false when the collection has no contents.
func (s *GormStore) MaxContentOrder(collectionID string) (int, bool, error) {
	var model ContentModel
	err := s.db.Where("collection_id = ?", collectionID).
		Order("display_order DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return model.DisplayOrder, true, nil
}

// SetContentOrder assigns a new display order to one content item.
func (s *GormStore) SetContentOrder(id string, order int) (bool, error) {
	res := s.db.Model(&ContentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"display_order": order,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteContent removes one content item.
func (s *GormStore) DeleteContent(id string) (bool, error) {
	res := s.db.Delete(&ContentModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SavePurchase stores or updates a purchase record.
func (s *GormStore) SavePurchase(p domain.Purchase) error {
	model := purchaseToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "views_remaining", "updated_at",
		}),
	}).Create(&model).Error
}

// GetPurchase retrieves a purchase by id.
func (s *GormStore) GetPurchase(id string) (domain.Purchase, bool, error) {
	var model PurchaseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Purchase{}, false, nil
		}
		return domain.Purchase{}, false, err
	}
	return purchaseFromModel(model), true, nil
}

// ListCompletedPurchasesByUser returns a buyer's completed purchases, newest first.
func (s *GormStore) ListCompletedPurchasesByUser(userID string) ([]domain.Purchase, error) {
	var models []PurchaseModel
	err := s.db.Where("user_id = ? AND status = ?", userID, string(domain.PurchaseCompleted)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Purchase, 0, len(models))
	for _, m := range models {
		res = append(res, purchaseFromModel(m))
	}
	return res, nil
}

// FindCompletedPurchase returns the completed purchase for user+collection, if any.
func (s *GormStore) FindCompletedPurchase(userID, collectionID string) (domain.Purchase, bool, error) {
	var model PurchaseModel
	err := s.db.Where("user_id = ? AND collection_id = ? AND status = ?",
		userID, collectionID, string(domain.PurchaseCompleted)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Purchase{}, false, nil
		}
		return domain.Purchase{}, false, err
	}
	return purchaseFromModel(model), true, nil
}

// SetPurchaseStatus overwrites the status unconditionally and returns the
// updated record. Any status may follow any status.
func (s *GormStore) SetPurchaseStatus(id string, status domain.PurchaseStatus) (domain.Purchase, bool, error) {
	res := s.db.Model(&PurchaseModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.Purchase{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Purchase{}, false, nil
	}
	return s.GetPurchase(id)
}

// DecrementViews decrements the counter only while it is above zero, so the
// floor holds under concurrent calls and no update is ever lost.
func (s *GormStore) DecrementViews(id string) (int, error) {
	res := s.db.Model(&PurchaseModel{}).
		Where("id = ? AND views_remaining > 0", id).
		Updates(map[string]any{
			"views_remaining": gorm.Expr("views_remaining - 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	purchase, found, err := s.GetPurchase(id)
	if err != nil {
		return 0, err
	}
	if !found || purchase.ViewsRemaining == nil {
		return 0, nil
	}
	return *purchase.ViewsRemaining, nil
}
