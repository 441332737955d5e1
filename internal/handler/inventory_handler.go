package handler

import (
	"errors"

	"stock2coat/internal/model"
	"stock2coat/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	service     service.InventoryService
	consumption service.ConsumptionService
}

func NewInventoryHandler(s service.InventoryService, c service.ConsumptionService) *InventoryHandler {
	return &InventoryHandler{service: s, consumption: c}
}

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system" // Fallback jika tidak ada (shouldn't happen in protected routes)
	}
	return userID.(string)
}

func getUserName(c *fiber.Ctx) string {
	userName := c.Locals("user_name")
	if userName == nil {
		return "Unknown"
	}
	return userName.(string)
}

func getUserEmail(c *fiber.Ctx) string {
	userEmail := c.Locals("user_email")
	if userEmail == nil {
		return ""
	}
	return userEmail.(string)
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

func (h *InventoryHandler) GetItems(c *fiber.Ctx) error {
	items, err := h.service.GetAllItems()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(items)
}

func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	item, err := h.service.GetItemByID(itemID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Item not found"})
	}
	return c.JSON(item)
}

func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var item model.InventoryItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.CreateItem(&item, getUserID(c)); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{"message": "Item created", "data": item})
}

func (h *InventoryHandler) UpdateItem(c *fiber.Ctx) error {
	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	var item model.InventoryItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateItem(itemID, &item, getUserID(c))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Item updated", "data": updated})
}

func (h *InventoryHandler) DeleteItem(c *fiber.Ctx) error {
	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	if err := h.service.DeleteItem(itemID, getUserID(c)); err != nil {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Item deleted"})
}

// ConsumeRequest is the RPC body for the atomic consumption endpoint.
type ConsumeRequest struct {
	Quantity    float64 `json:"quantity"`
	OrderNumber string  `json:"order_number,omitempty"`
	Note        string  `json:"note,omitempty"`
}

// Consume handles the atomic consumption RPC.
// POST /api/v1/items/:id/consume
// Success envelope: {"status":"success","data":{...}}.
// Failure: {"message": ..., "detail": ..., "code": ...} with a 4xx status.
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid item ID", "code": "P0001"})
	}

	var req ConsumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON", "code": "P0001"})
	}

	result, err := h.consumption.Consume(&service.ConsumeRequest{
		ItemID:      itemID,
		Quantity:    req.Quantity,
		UserID:      getUserID(c),
		UserName:    displayName(c),
		OrderNumber: req.OrderNumber,
		Note:        req.Note,
	})
	if err != nil {
		status := 400
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			status = 404
		case errors.Is(err, service.ErrInsufficientStock):
			status = 409
		}
		return c.Status(status).JSON(fiber.Map{
			"message": err.Error(),
			"detail":  err.Error(),
			"code":    "P0001",
		})
	}

	return c.JSON(fiber.Map{"status": "success", "data": result})
}

// ReplenishRequest is the body for the replenish endpoint.
type ReplenishRequest struct {
	Quantity    float64 `json:"quantity"`
	OrderNumber string  `json:"order_number,omitempty"`
	Note        string  `json:"note,omitempty"`
}

// Replenish registers an incoming delivery as an IN movement.
// POST /api/v1/items/:id/replenish
func (h *InventoryHandler) Replenish(c *fiber.Ctx) error {
	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	var req ReplenishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	tx := model.Transaction{
		ItemID:      itemID,
		Type:        model.TxIn,
		Quantity:    req.Quantity,
		OrderNumber: req.OrderNumber,
		Note:        req.Note,
	}
	if err := h.service.RecordMovement(&tx, getUserID(c), displayName(c)); err != nil {
		status := 400
		if errors.Is(err, service.ErrItemNotFound) {
			status = 404
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{"message": "Replenishment recorded", "data": tx})
}

// displayName prefers the email identity, matching the transaction log
// convention carried over from the hosted-auth days.
func displayName(c *fiber.Ctx) string {
	if email := getUserEmail(c); email != "" {
		return email
	}
	return getUserName(c)
}

func (h *InventoryHandler) GetItemTransactions(c *fiber.Ctx) error {
	itemID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	transactions, err := h.service.GetItemTransactions(itemID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(transactions)
}

func (h *InventoryHandler) CreateTransaction(c *fiber.Ctx) error {
	var tx model.Transaction
	if err := c.BodyParser(&tx); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.RecordMovement(&tx, getUserID(c), displayName(c)); err != nil {
		status := 400
		if errors.Is(err, service.ErrInsufficientStock) {
			status = 409
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{"message": "Transaction recorded", "data": tx})
}

func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	transactions, err := h.service.GetAllTransactions()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(transactions)
}

func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	txID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := h.service.GetTransactionByID(txID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Transaction not found"})
	}
	return c.JSON(tx)
}
