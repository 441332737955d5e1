package model

// StockStatus is the derived stock tier of an inventory item.
// Values follow the Dutch labels used on the shop floor.
type StockStatus string

const (
	StatusEmpty  StockStatus = "UIT"  // stock is depleted
	StatusLow    StockStatus = "LAAG" // at or below the reorder threshold
	StatusMedium StockStatus = "GEM"  // between min and 2x min
	StatusOK     StockStatus = "OK"
)

// StatusFor computes the stock tier for a stock level against the minimum
// threshold. Boundary values resolve to the stricter tier: hitting the
// threshold exactly already triggers the warning.
func StatusFor(stock, minStock float64) StockStatus {
	switch {
	case stock <= 0:
		return StatusEmpty
	case stock <= minStock:
		return StatusLow
	case stock <= 2*minStock:
		return StatusMedium
	default:
		return StatusOK
	}
}

// InventoryItem is a stocked powder-coating product, identified by RAL code.
type InventoryItem struct {
	BaseModel
	RALCode     string  `gorm:"column:ral_code;type:varchar(20);uniqueIndex;not null" json:"ral_code" validate:"required"`
	Color       string  `gorm:"type:varchar(100)" json:"color"`
	Brand       string  `gorm:"type:varchar(100);not null" json:"brand" validate:"required"`
	ProductCode string  `gorm:"type:varchar(50)" json:"product_code"`
	Description string  `gorm:"type:text" json:"description"`
	Location    string  `gorm:"type:varchar(50)" json:"location"`
	Supplier    string  `gorm:"type:varchar(100)" json:"supplier"`
	Unit        string  `gorm:"type:varchar(20);default:'kg'" json:"unit"`
	Weight      float64 `gorm:"default:0" json:"weight"` // packaging weight per unit
	CostPerUnit float64 `gorm:"default:0" json:"cost_per_unit"`

	CurrentStock float64     `gorm:"column:current_stock;not null;default:0" json:"current_stock" validate:"gte=0"`
	MaxStock     float64     `gorm:"column:max_stock;not null;default:0" json:"max_stock" validate:"gt=0"`
	MinStock     float64     `gorm:"column:min_stock;not null;default:0" json:"min_stock" validate:"gte=0"`
	Status       StockStatus `gorm:"type:varchar(10);not null;default:'OK'" json:"status"`

	// User tracking
	CreatedByUserID *string `gorm:"type:varchar(255)" json:"created_by_user_id,omitempty"`
	UpdatedByUserID *string `gorm:"type:varchar(255)" json:"updated_by_user_id,omitempty"`
	CreatedByUser   *User   `gorm:"foreignKey:CreatedByUserID;references:ID" json:"created_by_user,omitempty"`
	UpdatedByUser   *User   `gorm:"foreignKey:UpdatedByUserID;references:ID" json:"updated_by_user,omitempty"`

	// Append-only movement log, insertion order = chronological
	Transactions []Transaction `gorm:"foreignKey:ItemID" json:"transactions,omitempty"`
}

// TableName specifies the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// RecomputeStatus re-derives the status tier from the current stock level.
func (i *InventoryItem) RecomputeStatus() {
	i.Status = StatusFor(i.CurrentStock, i.MinStock)
}
