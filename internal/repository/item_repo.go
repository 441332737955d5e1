package repository

import (
	"stock2coat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository interface {
	Create(item *model.InventoryItem) error
	FindAll() ([]model.InventoryItem, error)
	FindByID(id uuid.UUID) (*model.InventoryItem, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error)
	FindByRALCode(ralCode string) (*model.InventoryItem, error)
	Update(item *model.InventoryItem) error
	Delete(id uuid.UUID, deletedBy string) error
	UpdateStock(tx *gorm.DB, id uuid.UUID, newStock float64, newStatus model.StockStatus, updatedBy string) error
}

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db}
}

func (r *itemRepo) Create(item *model.InventoryItem) error {
	return r.db.Create(item).Error
}

func (r *itemRepo) FindAll() ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.Preload("CreatedByUser").Preload("UpdatedByUser").Order("ral_code ASC").Find(&items).Error
	return items, err
}

func (r *itemRepo) FindByID(id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.Preload("CreatedByUser").Preload("UpdatedByUser").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&item, "id = ?", id).Error
	return &item, err
}

// FindByIDForUpdate membaca row item dengan SELECT ... FOR UPDATE sehingga
// penulis lain menunggu sampai transaksi caller commit. Wajib dipanggil di
// dalam transaksi; di luar transaksi lock langsung lepas dan tidak berguna.
func (r *itemRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) FindByRALCode(ralCode string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.First(&item, "ral_code = ?", ralCode).Error
	return &item, err
}

func (r *itemRepo) Update(item *model.InventoryItem) error {
	return r.db.Save(item).Error
}

func (r *itemRepo) Delete(id uuid.UUID, deletedBy string) error {
	if err := r.db.Model(&model.InventoryItem{}).
		Where("id = ?", id).
		Update("deleted_by", deletedBy).Error; err != nil {
		return err
	}
	return r.db.Delete(&model.InventoryItem{}, "id = ?", id).Error
}

// UpdateStock menerima *gorm.DB (tx) agar bisa berjalan dalam transaksi
func (r *itemRepo) UpdateStock(tx *gorm.DB, id uuid.UUID, newStock float64, newStatus model.StockStatus, updatedBy string) error {
	return tx.Model(&model.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stock": newStock,
			"status":        newStatus,
			"updated_by":    updatedBy,
		}).Error
}
