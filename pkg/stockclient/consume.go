package stockclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authority is the remote atomic consumption procedure. Client implements it.
type Authority interface {
	Consume(ctx context.Context, itemID uuid.UUID, quantity float64, orderNumber, note string) (*ConsumeResult, error)
	Identity() (*Identity, error)
}

// identityRechecks bounds the immediate re-checks of the acting user before
// a consumption is sent.
const identityRechecks = 3

// Consumer drives one consumption attempt through the optimistic state
// machine: validate locally, snapshot, apply the predicted delta, invoke the
// authority, and on failure restore the snapshot exactly. Success leaves the
// optimistic state in place; the real-time feed later overwrites it with the
// authoritative row, which in the common case is the same value.
//
// Attempts on different items may run concurrently. A second attempt on an
// item whose first attempt is still unresolved is rejected, not queued.
type Consumer struct {
	store     *Store
	authority Authority
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewConsumer(store *Store, authority Authority, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		store:     store,
		authority: authority,
		logger:    logger,
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// ErrConsumptionInFlight rejects a concurrent attempt on the same item.
var ErrConsumptionInFlight = newConsumeError(CategoryValidation, "a consumption for this item is still in flight")

// Consume runs one attempt. Local rejections never reach the network, and
// any failure leaves the store bit-for-bit equal to the pre-attempt state.
func (c *Consumer) Consume(ctx context.Context, itemID uuid.UUID, quantity float64, orderNumber, note string) (*ConsumeResult, error) {
	if !c.acquire(itemID) {
		return nil, ErrConsumptionInFlight
	}
	defer c.release(itemID)

	// Validate against the local mirror, no network call on rejection.
	item, ok := c.store.Get(itemID)
	if !ok {
		return nil, newConsumeError(CategoryValidation, "item "+itemID.String()+" not in local cache")
	}
	if quantity <= 0 {
		return nil, newConsumeError(CategoryInvalidQuantity,
			fmt.Sprintf("quantity %.2f is not positive", quantity))
	}
	if quantity > item.CurrentStock {
		return nil, newConsumeError(CategoryInsufficientStock,
			fmt.Sprintf("local stock %.1f below requested %.1f", item.CurrentStock, quantity))
	}

	// The acting user must resolve before the authority is invoked; allow a
	// small bounded number of immediate re-checks.
	identity, err := c.resolveIdentity()
	if err != nil {
		return nil, err
	}

	snapshot, err := c.store.Snapshot(itemID)
	if err != nil {
		return nil, newConsumeError(CategoryValidation, err.Error())
	}

	if err := c.store.OptimisticApply(itemID, quantity); err != nil {
		return nil, newConsumeError(CategoryValidation, err.Error())
	}

	result, err := c.authority.Consume(ctx, itemID, quantity, orderNumber, note)
	if err != nil {
		// Full revert: the mirror must end exactly at the snapshot.
		c.store.Rollback(snapshot)
		c.logger.Warn("consumption rolled back",
			zap.String("item_id", itemID.String()),
			zap.Float64("quantity", quantity),
			zap.String("user", identity.Email),
			zap.Error(err))
		if cerr, ok := err.(*ConsumeError); ok {
			return nil, cerr
		}
		return nil, newConsumeError(CategoryUnknown, err.Error())
	}

	// Success: keep the optimistic state, do not re-apply server values here.
	// The real-time feed delivers the authoritative row shortly and is an
	// idempotent confirmation, not a distinct transition.
	c.logger.Info("consumption confirmed",
		zap.String("item_id", itemID.String()),
		zap.Float64("quantity", quantity),
		zap.Float64("new_stock", result.NewStock),
		zap.Bool("atomic", result.Atomic))
	return result, nil
}

func (c *Consumer) resolveIdentity() (*Identity, error) {
	var lastErr error
	for attempt := 0; attempt < identityRechecks; attempt++ {
		identity, err := c.authority.Identity()
		if err == nil {
			return identity, nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	if cerr, ok := lastErr.(*ConsumeError); ok {
		return nil, cerr
	}
	return nil, newConsumeError(CategoryAuthMissing, lastErr.Error())
}

func (c *Consumer) acquire(itemID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[itemID]; busy {
		return false
	}
	c.inFlight[itemID] = struct{}{}
	return true
}

func (c *Consumer) release(itemID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, itemID)
}
