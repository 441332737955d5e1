package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "item:create"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Inventory Item"
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Inventory item management
	{Code: "item:view", Name: "View Inventory Item"},
	{Code: "item:create", Name: "Create Inventory Item"},
	{Code: "item:update", Name: "Update Inventory Item"},
	{Code: "item:delete", Name: "Delete Inventory Item"},
	{Code: "item:consume", Name: "Register Consumption"},
	{Code: "item:replenish", Name: "Register Replenishment"},
	// Transaction log
	{Code: "transaction:view", Name: "View Transaction"},
	{Code: "transaction:create", Name: "Create Transaction"},
	// Dashboard
	{Code: "dashboard:view", Name: "View Dashboard"},
}
