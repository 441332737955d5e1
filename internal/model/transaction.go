package model

import "github.com/google/uuid"

type TransactionType string

const (
	TxIn         TransactionType = "IN"
	TxOut        TransactionType = "OUT"
	TxAdjustment TransactionType = "ADJUSTMENT"
)

// Transaction is an immutable audit record of a stock movement. Quantity is
// always a positive magnitude, direction is carried by Type. Rows are never
// updated or deleted once written.
type Transaction struct {
	BaseModel
	ItemID uuid.UUID     `gorm:"column:item_id;type:uuid;not null;index" json:"item_id" validate:"uuid_required"`
	Item   InventoryItem `gorm:"foreignKey:ItemID" json:"item,omitempty" validate:"-"`

	Type     TransactionType `gorm:"type:varchar(15);not null" json:"type" validate:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity float64         `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	Unit     string          `gorm:"type:varchar(20);default:'kg'" json:"unit"`

	UserName    string `gorm:"type:varchar(255)" json:"user_name"`
	OrderNumber string `gorm:"type:varchar(100)" json:"order_number,omitempty"` // project/order reference
	Note        string `gorm:"type:text" json:"note,omitempty"`

	// User tracking
	CreatedByUserID *string `gorm:"type:varchar(255)" json:"created_by_user_id,omitempty"`
	CreatedByUser   *User   `gorm:"foreignKey:CreatedByUserID;references:ID" json:"created_by_user,omitempty"`
}
