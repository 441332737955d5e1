package service

import (
	"errors"
	"fmt"

	"stock2coat/internal/model"
	"stock2coat/internal/repository"
	"stock2coat/internal/ws"
	"stock2coat/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InventoryService interface {
	CreateItem(req *model.InventoryItem, userID string) error
	UpdateItem(id uuid.UUID, req *model.InventoryItem, userID string) (*model.InventoryItem, error)
	DeleteItem(id uuid.UUID, userID string) error
	RecordMovement(req *model.Transaction, userID, userName string) error
	GetAllItems() ([]model.InventoryItem, error)
	GetItemByID(id uuid.UUID) (*model.InventoryItem, error)
	GetAllTransactions() ([]model.Transaction, error)
	GetTransactionByID(id uuid.UUID) (*model.Transaction, error)
	GetItemTransactions(itemID uuid.UUID) ([]model.Transaction, error)
}

type inventoryService struct {
	itemRepo        repository.ItemRepository
	transactionRepo repository.TransactionRepository
	db              txRunner
	wsHub           *ws.Hub
	logger          *zap.Logger
}

func NewInventoryService(iRepo repository.ItemRepository, tRepo repository.TransactionRepository, db txRunner, hub *ws.Hub, logger *zap.Logger) InventoryService {
	return &inventoryService{
		itemRepo:        iRepo,
		transactionRepo: tRepo,
		db:              db,
		wsHub:           hub,
		logger:          logger,
	}
}

func (s *inventoryService) CreateItem(req *model.InventoryItem, userID string) error {
	// 1. Validasi Struct Dasar
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	// 2. Cek Duplikasi RAL code (Business Logic Validation)
	existing, _ := s.itemRepo.FindByRALCode(req.RALCode)
	if existing != nil && existing.ID != uuid.Nil {
		return errors.New("RAL code already exists")
	}

	// 3. Status selalu diturunkan dari stok, bukan dari input
	req.RecomputeStatus()

	// 4. Set Audit Fields and User IDs
	req.CreatedBy = userID
	req.UpdatedBy = userID
	req.CreatedByUserID = &userID
	req.UpdatedByUserID = &userID

	if err := s.itemRepo.Create(req); err != nil {
		return err
	}

	s.logger.Info("item created",
		zap.String("ral_code", req.RALCode),
		zap.Float64("current_stock", req.CurrentStock))

	s.wsHub.BroadcastChange(ws.ChangeEvent{
		EventType: ws.EventInsert,
		New:       req,
	})
	return nil
}

func (s *inventoryService) UpdateItem(id uuid.UUID, req *model.InventoryItem, userID string) (*model.InventoryItem, error) {
	var updated *model.InventoryItem
	var before model.InventoryItem

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Lock row supaya edit concurrent tidak saling menimpa
		existing, err := s.itemRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return errors.New("item not found")
		}
		before = *existing

		existing.RALCode = req.RALCode
		existing.Color = req.Color
		existing.Brand = req.Brand
		existing.ProductCode = req.ProductCode
		existing.Description = req.Description
		existing.Location = req.Location
		existing.Supplier = req.Supplier
		existing.Unit = req.Unit
		existing.Weight = req.Weight
		existing.CostPerUnit = req.CostPerUnit
		existing.CurrentStock = req.CurrentStock
		existing.MaxStock = req.MaxStock
		existing.MinStock = req.MinStock
		existing.RecomputeStatus()
		existing.UpdatedBy = userID
		existing.UpdatedByUserID = &userID

		if err := tx.Save(existing).Error; err != nil {
			return err
		}

		updated = existing
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.wsHub.BroadcastChange(ws.ChangeEvent{
		EventType: ws.EventUpdate,
		New:       updated,
		Old:       &before,
	})
	return updated, nil
}

func (s *inventoryService) DeleteItem(id uuid.UUID, userID string) error {
	item, err := s.itemRepo.FindByID(id)
	if err != nil {
		return errors.New("item not found")
	}

	if err := s.itemRepo.Delete(id, userID); err != nil {
		return err
	}

	s.wsHub.BroadcastChange(ws.ChangeEvent{
		EventType: ws.EventDelete,
		Old:       item,
	})
	return nil
}

// RecordMovement registers a replenishment (IN) or a manual adjustment.
// OUT movements are accepted too; this is the non-RPC CRUD surface that the
// client fallback path uses. Stock above max_stock is accepted on IN,
// deliberately not clamped.
func (s *inventoryService) RecordMovement(req *model.Transaction, userID, userName string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	var before, after model.InventoryItem

	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := s.itemRepo.FindByIDForUpdate(tx, req.ItemID)
		if err != nil {
			return ErrItemNotFound
		}
		before = *item

		// Hitung logika stok
		newStock := item.CurrentStock
		switch req.Type {
		case model.TxIn:
			newStock += req.Quantity
		case model.TxOut:
			if item.CurrentStock < req.Quantity {
				return fmt.Errorf("%w: available %.1f, requested %.1f", ErrInsufficientStock, item.CurrentStock, req.Quantity)
			}
			newStock -= req.Quantity
		case model.TxAdjustment:
			newStock = req.Quantity
		}
		newStatus := model.StatusFor(newStock, item.MinStock)

		if err := s.itemRepo.UpdateStock(tx, item.ID, newStock, newStatus, userID); err != nil {
			return err
		}

		if req.Unit == "" {
			req.Unit = item.Unit
		}
		req.UserName = userName
		req.CreatedBy = userID
		req.UpdatedBy = userID
		req.CreatedByUserID = &userID
		if err := s.transactionRepo.Create(tx, req); err != nil {
			return err
		}

		after = *item
		after.CurrentStock = newStock
		after.Status = newStatus
		return nil
	})

	if err != nil {
		return err
	}

	s.logger.Info("movement recorded",
		zap.String("item_id", req.ItemID.String()),
		zap.String("type", string(req.Type)),
		zap.Float64("quantity", req.Quantity),
		zap.Float64("new_stock", after.CurrentStock))

	s.wsHub.BroadcastChange(ws.ChangeEvent{
		EventType: ws.EventUpdate,
		New:       &after,
		Old:       &before,
	})
	return nil
}

func (s *inventoryService) GetAllItems() ([]model.InventoryItem, error) {
	return s.itemRepo.FindAll()
}

func (s *inventoryService) GetItemByID(id uuid.UUID) (*model.InventoryItem, error) {
	return s.itemRepo.FindByID(id)
}

func (s *inventoryService) GetAllTransactions() ([]model.Transaction, error) {
	return s.transactionRepo.FindAll()
}

func (s *inventoryService) GetTransactionByID(id uuid.UUID) (*model.Transaction, error) {
	return s.transactionRepo.FindByID(id)
}

func (s *inventoryService) GetItemTransactions(itemID uuid.UUID) ([]model.Transaction, error) {
	return s.transactionRepo.FindByItemID(itemID)
}
