package service

import (
	"database/sql"
	"errors"
	"fmt"

	"stock2coat/internal/model"
	"stock2coat/internal/repository"
	"stock2coat/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ConsumeRequest carries one consumption attempt into the authority.
type ConsumeRequest struct {
	ItemID      uuid.UUID
	Quantity    float64
	UserID      string
	UserName    string
	OrderNumber string
	Note        string
}

// ConsumeResult is the success envelope of an atomic consumption.
type ConsumeResult struct {
	ItemID           uuid.UUID         `json:"item_id"`
	ItemCode         string            `json:"item_code"`
	PreviousStock    float64           `json:"previous_stock"`
	ConsumedQuantity float64           `json:"consumed_quantity"`
	NewStock         float64           `json:"new_stock"`
	NewStatus        model.StockStatus `json:"new_status"`
	TransactionID    uuid.UUID         `json:"transaction_id"`
}

// ConsumptionService is the single authority for stock decrements. Every
// successful call updates exactly one item row and appends exactly one OUT
// transaction, inside one database transaction. No success means no change.
type ConsumptionService interface {
	Consume(req *ConsumeRequest) (*ConsumeResult, error)
}

// txRunner is gorm's transaction entry point. *gorm.DB satisfies it; tests
// substitute a runner that invokes the body without a live database.
type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type consumptionService struct {
	itemRepo        repository.ItemRepository
	transactionRepo repository.TransactionRepository
	db              txRunner
	wsHub           *ws.Hub
	logger          *zap.Logger
}

func NewConsumptionService(iRepo repository.ItemRepository, tRepo repository.TransactionRepository, db txRunner, hub *ws.Hub, logger *zap.Logger) ConsumptionService {
	return &consumptionService{
		itemRepo:        iRepo,
		transactionRepo: tRepo,
		db:              db,
		wsHub:           hub,
		logger:          logger,
	}
}

// applyConsumption is the pure half of the authority: validate the decrement
// and compute the post-decrement stock and tier.
func applyConsumption(stock, minStock, quantity float64) (float64, model.StockStatus, error) {
	if quantity <= 0 {
		return 0, "", ErrInvalidQuantity
	}
	if quantity > stock {
		return 0, "", fmt.Errorf("%w: available %.1f, requested %.1f", ErrInsufficientStock, stock, quantity)
	}
	newStock := stock - quantity
	return newStock, model.StatusFor(newStock, minStock), nil
}

func (s *consumptionService) Consume(req *ConsumeRequest) (*ConsumeResult, error) {
	// Reject sebelum buka transaksi database
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var result *ConsumeResult
	var before, after model.InventoryItem

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Cari & Lock item (SELECT ... FOR UPDATE): pemanggil kedua
		// menunggu dan membaca stok hasil commit pemanggil pertama.
		item, err := s.itemRepo.FindByIDForUpdate(tx, req.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		before = *item

		newStock, newStatus, err := applyConsumption(item.CurrentStock, item.MinStock, req.Quantity)
		if err != nil {
			return err
		}

		if err := s.itemRepo.UpdateStock(tx, item.ID, newStock, newStatus, req.UserID); err != nil {
			return err
		}

		transaction := &model.Transaction{
			ItemID:      item.ID,
			Type:        model.TxOut,
			Quantity:    req.Quantity,
			Unit:        item.Unit,
			UserName:    req.UserName,
			OrderNumber: req.OrderNumber,
			Note:        req.Note,
		}
		transaction.CreatedBy = req.UserID
		transaction.UpdatedBy = req.UserID
		transaction.CreatedByUserID = &req.UserID
		if err := s.transactionRepo.Create(tx, transaction); err != nil {
			return err
		}

		after = *item
		after.CurrentStock = newStock
		after.Status = newStatus

		result = &ConsumeResult{
			ItemID:           item.ID,
			ItemCode:         item.RALCode,
			PreviousStock:    item.CurrentStock,
			ConsumedQuantity: req.Quantity,
			NewStock:         newStock,
			NewStatus:        newStatus,
			TransactionID:    transaction.ID,
		}
		return nil
	})

	if err != nil {
		s.logger.Warn("consumption rejected",
			zap.String("item_id", req.ItemID.String()),
			zap.Float64("quantity", req.Quantity),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("consumption recorded",
		zap.String("item_id", result.ItemID.String()),
		zap.String("ral_code", result.ItemCode),
		zap.Float64("quantity", req.Quantity),
		zap.Float64("new_stock", result.NewStock),
		zap.String("new_status", string(result.NewStatus)),
		zap.String("user", req.UserName))

	// Broadcast setelah commit supaya event sampai di client dalam commit order
	s.wsHub.BroadcastChange(ws.ChangeEvent{
		EventType: ws.EventUpdate,
		New:       &after,
		Old:       &before,
	})

	return result, nil
}
