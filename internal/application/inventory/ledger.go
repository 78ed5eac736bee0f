package inventory

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockLine is a quantity of one product in its base unit
type StockLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Ledger applies stock mutations inside a caller-owned transaction.
// Every mutation locks the affected stock rows in ascending product id order, so two
// transactions touching overlapping products always acquire locks in the same order.
type Ledger struct{}

// NewLedger creates a new Ledger
func NewLedger() *Ledger {
	return &Ledger{}
}

// Deduct removes stock for every line. Availability of all lines is verified against the
// locked rows before anything is changed; a single short line fails the whole call.
func (l *Ledger) Deduct(ctx context.Context, repos TransactionalRepositories, lines []StockLine, ref inventory.MovementRef) ([]*inventory.Inventory, error) {
	return l.apply(ctx, repos, lines, ref, func(inv *inventory.Inventory, qty decimal.Decimal) (*inventory.StockMovement, error) {
		return inv.Deduct(qty, ref)
	}, true)
}

// Restore adds back stock for every line. Failure on any line fails the whole call.
func (l *Ledger) Restore(ctx context.Context, repos TransactionalRepositories, lines []StockLine, ref inventory.MovementRef) ([]*inventory.Inventory, error) {
	return l.apply(ctx, repos, lines, ref, func(inv *inventory.Inventory, qty decimal.Decimal) (*inventory.StockMovement, error) {
		return inv.Restore(qty, ref)
	}, false)
}

// Adjust applies a signed delta to one product's stock
func (l *Ledger) Adjust(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, delta decimal.Decimal, ref inventory.MovementRef) (*inventory.Inventory, error) {
	locked, err := l.lock(ctx, repos, []uuid.UUID{productID})
	if err != nil {
		return nil, err
	}
	inv := locked[productID]

	movement, err := inv.Adjust(delta, ref)
	if err != nil {
		return nil, err
	}
	if err := repos.InventoryRepo().SaveWithLock(ctx, inv); err != nil {
		return nil, err
	}
	if err := repos.MovementRepo().Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("record stock movement: %w", err)
	}
	return inv, nil
}

func (l *Ledger) apply(
	ctx context.Context,
	repos TransactionalRepositories,
	lines []StockLine,
	ref inventory.MovementRef,
	op func(inv *inventory.Inventory, qty decimal.Decimal) (*inventory.StockMovement, error),
	precheck bool,
) ([]*inventory.Inventory, error) {
	totals, ids := aggregateLines(lines)
	if len(ids) == 0 {
		return nil, nil
	}

	locked, err := l.lock(ctx, repos, ids)
	if err != nil {
		return nil, err
	}

	if precheck {
		for _, id := range ids {
			if res := locked[id].CheckAvailability(totals[id]); !res.Available {
				return nil, inventory.InsufficientStockError(id, res.AvailableQty, totals[id])
			}
		}
	}

	updated := make([]*inventory.Inventory, 0, len(ids))
	movements := make([]*inventory.StockMovement, 0, len(ids))
	for _, id := range ids {
		inv := locked[id]
		movement, err := op(inv, totals[id])
		if err != nil {
			return nil, err
		}
		if err := repos.InventoryRepo().SaveWithLock(ctx, inv); err != nil {
			return nil, err
		}
		updated = append(updated, inv)
		movements = append(movements, movement)
	}

	if err := repos.MovementRepo().Create(ctx, movements...); err != nil {
		return nil, fmt.Errorf("record stock movements: %w", err)
	}
	return updated, nil
}

func (l *Ledger) lock(ctx context.Context, repos TransactionalRepositories, ids []uuid.UUID) (map[uuid.UUID]*inventory.Inventory, error) {
	rows, err := repos.InventoryRepo().FindByProductIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	locked := make(map[uuid.UUID]*inventory.Inventory, len(rows))
	for _, inv := range rows {
		locked[inv.ProductID] = inv
	}
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, shared.ErrProductNotFound.WithDetail("product_id", id.String())
		}
	}
	return locked, nil
}

// aggregateLines sums quantities per product and returns product ids in lock order
func aggregateLines(lines []StockLine) (map[uuid.UUID]decimal.Decimal, []uuid.UUID) {
	totals := make(map[uuid.UUID]decimal.Decimal, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := totals[line.ProductID]; !ok {
			ids = append(ids, line.ProductID)
		}
		totals[line.ProductID] = totals[line.ProductID].Add(line.Quantity)
	}
	SortProductIDs(ids)
	return totals, ids
}

// SortProductIDs orders ids the way the database orders uuid values
func SortProductIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
