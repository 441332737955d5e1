package stockclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stock2coat/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity is the resolved acting user, required before any consumption.
type Identity struct {
	ID    string
	Email string
}

// ConsumeResult is the client-side view of a completed consumption. Atomic
// reports whether the server's atomic procedure handled it; false means the
// degraded non-atomic fallback path was used and the result is best-effort.
type ConsumeResult struct {
	ItemID           uuid.UUID         `json:"item_id"`
	ItemCode         string            `json:"item_code"`
	PreviousStock    float64           `json:"previous_stock"`
	ConsumedQuantity float64           `json:"consumed_quantity"`
	NewStock         float64           `json:"new_stock"`
	NewStatus        model.StockStatus `json:"new_status"`
	TransactionID    uuid.UUID         `json:"transaction_id"`
	Atomic           bool              `json:"-"`
}

// Client talks to the Stock2Coat API. It is the invocation side of the
// consumption flow; local state lives in Store.
type Client struct {
	http     *resty.Client
	logger   *zap.Logger
	identity *Identity
}

func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	} `json:"user"`
}

// Login authenticates and stores the bearer token and identity on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/api/v1/auth/login")
	if err != nil {
		return newConsumeError(CategoryNetwork, err.Error())
	}
	if resp.IsError() {
		return categorize(resp.StatusCode(), string(resp.Body()))
	}

	c.http.SetAuthToken(out.Token)
	c.identity = &Identity{ID: out.User.ID.String(), Email: out.User.Email}
	c.logger.Info("logged in", zap.String("email", out.User.Email))
	return nil
}

// Identity returns the resolved acting user, or an authentication-missing
// failure when no login happened.
func (c *Client) Identity() (*Identity, error) {
	if c.identity == nil {
		return nil, newConsumeError(CategoryAuthMissing, "no identity: client not logged in")
	}
	return c.identity, nil
}

// GetItems fetches the full item list for the local mirror.
func (c *Client) GetItems(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&items).
		Get("/api/v1/items")
	if err != nil {
		return nil, newConsumeError(CategoryNetwork, err.Error())
	}
	if resp.IsError() {
		return nil, categorize(resp.StatusCode(), string(resp.Body()))
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&item).
		Get("/api/v1/items/" + id.String())
	if err != nil {
		return nil, newConsumeError(CategoryNetwork, err.Error())
	}
	if resp.IsError() {
		return nil, categorize(resp.StatusCode(), string(resp.Body()))
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, item *model.InventoryItem) (*model.InventoryItem, error) {
	var out struct {
		Data model.InventoryItem `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(item).
		SetResult(&out).
		Put("/api/v1/items/" + item.ID.String())
	if err != nil {
		return nil, newConsumeError(CategoryNetwork, err.Error())
	}
	if resp.IsError() {
		return nil, categorize(resp.StatusCode(), string(resp.Body()))
	}
	return &out.Data, nil
}

type consumeEnvelope struct {
	Status string        `json:"status"`
	Data   ConsumeResult `json:"data"`
}

type failureBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (f failureBody) detail() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Detail != "" {
		return f.Detail
	}
	return f.Error
}

// Consume invokes the server's atomic consumption procedure. When the
// procedure is not deployed (the route is missing, as opposed to the item
// being unknown), it degrades to the non-atomic fallback sequence.
func (c *Client) Consume(ctx context.Context, itemID uuid.UUID, quantity float64, orderNumber, note string) (*ConsumeResult, error) {
	var out consumeEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"quantity":     quantity,
			"order_number": orderNumber,
			"note":         note,
		}).
		SetResult(&out).
		Post("/api/v1/items/" + itemID.String() + "/consume")
	if err != nil {
		return nil, newConsumeError(CategoryNetwork, err.Error())
	}

	if resp.IsError() {
		var failure failureBody
		_ = json.Unmarshal(resp.Body(), &failure)
		detail := failure.detail()
		if detail == "" {
			detail = string(resp.Body())
		}

		cerr := categorize(resp.StatusCode(), detail)
		if cerr.Category == CategoryServiceUnavailable || routeMissing(resp.StatusCode(), detail) {
			c.logger.Warn("atomic consumption unavailable, using non-atomic fallback",
				zap.String("item_id", itemID.String()),
				zap.String("detail", detail))
			return c.consumeFallback(ctx, itemID, quantity, orderNumber, note)
		}
		c.logger.Warn("consumption failed",
			zap.String("item_id", itemID.String()),
			zap.String("category", string(cerr.Category)),
			zap.String("detail", cerr.Detail))
		return nil, cerr
	}

	if out.Status != "success" {
		return nil, newConsumeError(CategoryUnknown, "unexpected response status: "+out.Status)
	}

	result := out.Data
	result.Atomic = true
	return &result, nil
}

// routeMissing distinguishes "the consume endpoint is not deployed" from
// "the item was not found": Fiber reports an unknown route with a plain
// "Cannot POST ..." body, while the authority reports item misses as JSON
// mentioning the item.
func routeMissing(status int, detail string) bool {
	if status != 404 {
		return false
	}
	return strings.Contains(detail, "Cannot POST") ||
		strings.Contains(strings.ToLower(detail), "does not exist")
}

// consumeFallback degrades to the movement endpoint: read the item for a
// pre-check, then post a single OUT movement, which the server applies as
// decrement-plus-log in one go. The pre-check races with other writers, but
// the stock row is mutated by exactly one request, never by the client
// writing a computed stock value itself.
func (c *Client) consumeFallback(ctx context.Context, itemID uuid.UUID, quantity float64, orderNumber, note string) (*ConsumeResult, error) {
	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.CurrentStock < quantity {
		return nil, newConsumeError(CategoryInsufficientStock,
			fmt.Sprintf("insufficient stock: available %.1f, requested %.1f", item.CurrentStock, quantity))
	}

	if err := c.addTransaction(ctx, itemID, model.TxOut, quantity, orderNumber, note); err != nil {
		return nil, err
	}

	newStock := item.CurrentStock - quantity
	return &ConsumeResult{
		ItemID:           itemID,
		ItemCode:         item.RALCode,
		PreviousStock:    item.CurrentStock,
		ConsumedQuantity: quantity,
		NewStock:         newStock,
		NewStatus:        model.StatusFor(newStock, item.MinStock),
		Atomic:           false,
	}, nil
}

func (c *Client) addTransaction(ctx context.Context, itemID uuid.UUID, txType model.TransactionType, quantity float64, orderNumber, note string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"item_id":      itemID,
			"type":         txType,
			"quantity":     quantity,
			"order_number": orderNumber,
			"note":         note,
		}).
		Post("/api/v1/transactions")
	if err != nil {
		return newConsumeError(CategoryNetwork, err.Error())
	}
	if resp.IsError() {
		return categorize(resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
