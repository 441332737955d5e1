package repository

import (
	"time"

	"stock2coat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(tx *gorm.DB, transaction *model.Transaction) error
	FindAll() ([]model.Transaction, error)
	FindByID(id uuid.UUID) (*model.Transaction, error)
	FindByItemID(itemID uuid.UUID) ([]model.Transaction, error)
	GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats() (*DashboardStats, error)
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string  `json:"date"`
	Inbound  float64 `json:"inbound"`
	Outbound float64 `json:"outbound"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalItems     int64   `json:"total_items"`
	EmptyCount     int64   `json:"empty_count"`
	LowStockCount  int64   `json:"low_stock_count"`
	MediumCount    int64   `json:"medium_count"`
	OverCapacity   int64   `json:"over_capacity"`
	TotalStock     float64 `json:"total_stock"`
	TotalValuation float64 `json:"total_valuation"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

// Create menerima *gorm.DB (tx) agar insert log berjalan dalam transaksi
// yang sama dengan mutasi stok.
func (r *transactionRepo) Create(tx *gorm.DB, transaction *model.Transaction) error {
	return tx.Create(transaction).Error
}

func (r *transactionRepo) FindAll() ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.Preload("Item").Preload("CreatedByUser").Order("created_at DESC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.Preload("Item").Preload("CreatedByUser").First(&transaction, "id = ?", id).Error
	return &transaction, err
}

func (r *transactionRepo) FindByItemID(itemID uuid.UUID) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.Preload("CreatedByUser").
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Query untuk aggregate transactions per hari
	rows, err := r.db.Model(&model.Transaction{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = 'IN' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type = 'OUT' THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, nil
}

func (r *transactionRepo) GetDashboardStats() (*DashboardStats, error) {
	var stats DashboardStats

	r.db.Model(&model.InventoryItem{}).Count(&stats.TotalItems)

	// Counts per status tier (kolom status, bukan heuristic terpisah)
	r.db.Model(&model.InventoryItem{}).Where("status = ?", model.StatusEmpty).Count(&stats.EmptyCount)
	r.db.Model(&model.InventoryItem{}).Where("status = ?", model.StatusLow).Count(&stats.LowStockCount)
	r.db.Model(&model.InventoryItem{}).Where("status = ?", model.StatusMedium).Count(&stats.MediumCount)

	// Replenishment di atas max_stock diterima, tapi dilaporkan
	r.db.Model(&model.InventoryItem{}).Where("current_stock > max_stock").Count(&stats.OverCapacity)

	r.db.Model(&model.InventoryItem{}).Select("COALESCE(SUM(current_stock), 0)").Scan(&stats.TotalStock)
	r.db.Model(&model.InventoryItem{}).Select("COALESCE(SUM(current_stock * cost_per_unit), 0)").Scan(&stats.TotalValuation)

	return &stats, nil
}
