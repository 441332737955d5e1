package audit

import (
	"stock2coat/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Auditor periodically recomputes the stock tier for every item and flags
// rows whose stored status drifted from the rule, plus rows stocked above
// capacity. It flags only; it never rewrites rows.
type Auditor struct {
	db     *gorm.DB
	logger *zap.Logger
	cron   *cron.Cron
}

func New(db *gorm.DB, logger *zap.Logger) *Auditor {
	return &Auditor{
		db:     db,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the audit with the given cron expression and runs one
// pass immediately.
func (a *Auditor) Start(schedule string) error {
	if _, err := a.cron.AddFunc(schedule, a.RunOnce); err != nil {
		return err
	}
	a.cron.Start()
	go a.RunOnce()
	return nil
}

func (a *Auditor) Stop() {
	a.cron.Stop()
}

// RunOnce scans all items and logs every inconsistency it finds.
func (a *Auditor) RunOnce() {
	var items []model.InventoryItem
	if err := a.db.Find(&items).Error; err != nil {
		a.logger.Error("status audit: failed to load items", zap.Error(err))
		return
	}

	drifted := 0
	overCapacity := 0
	for _, item := range items {
		expected := model.StatusFor(item.CurrentStock, item.MinStock)
		if item.Status != expected {
			drifted++
			a.logger.Warn("status audit: stored status drifted from tier rule",
				zap.String("item_id", item.ID.String()),
				zap.String("ral_code", item.RALCode),
				zap.String("stored", string(item.Status)),
				zap.String("expected", string(expected)),
				zap.Float64("current_stock", item.CurrentStock),
				zap.Float64("min_stock", item.MinStock))
		}
		if item.CurrentStock > item.MaxStock {
			overCapacity++
			a.logger.Warn("status audit: stock above capacity",
				zap.String("item_id", item.ID.String()),
				zap.String("ral_code", item.RALCode),
				zap.Float64("current_stock", item.CurrentStock),
				zap.Float64("max_stock", item.MaxStock))
		}
	}

	a.logger.Info("status audit completed",
		zap.Int("items", len(items)),
		zap.Int("drifted", drifted),
		zap.Int("over_capacity", overCapacity))
}
