package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	apptrade "github.com/orderdesk/backend/internal/application/trade"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/orderdesk/backend/internal/domain/trade"
	"github.com/orderdesk/backend/internal/infrastructure/persistence/sqlitetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedProduct(t *testing.T, db *gorm.DB, supplierID uuid.UUID, name, sku string, stock int64) *catalog.Product {
	t.Helper()
	ctx := context.Background()

	p, err := catalog.NewProduct(supplierID, name, sku, valueobject.UnitGram, decimal.Zero, decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Create(ctx, p))

	inv, err := inventory.NewInventory(p.ID, supplierID)
	require.NoError(t, err)
	if stock > 0 {
		_, err = inv.Adjust(decimal.NewFromInt(stock), inventory.MovementRef{ActorID: supplierID, Reason: "seed"})
		require.NoError(t, err)
	}
	require.NoError(t, NewGormInventoryRepository(db).Create(ctx, inv))
	return p
}

func TestGormProductRepository(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	supplier := uuid.New()

	flour := seedProduct(t, db, supplier, "Flour", "fl-1", 0)
	seedProduct(t, db, supplier, "Sugar", "SU-1", 0)
	seedProduct(t, db, uuid.New(), "Salt", "", 0)

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, flour.ID)
		require.NoError(t, err)
		assert.Equal(t, "Flour", got.Name)
		assert.Equal(t, "FL-1", got.SKUValue())
		assert.True(t, got.PricePerBaseUOM.Equal(decimal.RequireFromString("0.5")))
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrProductNotFound)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		dup, err := catalog.NewProduct(supplier, "Other", "FL-1", valueobject.UnitGram, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("exists by sku", func(t *testing.T) {
		exists, err := repo.ExistsBySKU(ctx, " fl-1 ")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("filter by supplier and search", func(t *testing.T) {
		f := catalog.ProductFilter{Filter: shared.DefaultFilter(), SupplierID: &supplier}
		f.Search = "sug"
		items, total, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "Sugar", items[0].Name)
	})

	t.Run("save with lock detects stale version", func(t *testing.T) {
		p, err := repo.FindByID(ctx, flour.ID)
		require.NoError(t, err)
		require.NoError(t, p.UpdatePrice(decimal.NewFromInt(2)))
		require.NoError(t, repo.SaveWithLock(ctx, p))

		stale, err := repo.FindByID(ctx, flour.ID)
		require.NoError(t, err)
		stale.Version = 1
		stale.IncrementVersion()
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("inactive products excluded when active only", func(t *testing.T) {
		p, err := repo.FindByID(ctx, flour.ID)
		require.NoError(t, err)
		p.Deactivate()
		require.NoError(t, repo.SaveWithLock(ctx, p))

		f := catalog.ProductFilter{Filter: shared.DefaultFilter(), SupplierID: &supplier, ActiveOnly: true}
		items, _, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Sugar", items[0].Name)
	})
}

func TestGormInventoryRepository(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewGormInventoryRepository(db)
	ctx := context.Background()

	a := seedProduct(t, db, uuid.New(), "A", "", 10)
	b := seedProduct(t, db, uuid.New(), "B", "", 20)

	t.Run("locked rows come back in product id order", func(t *testing.T) {
		rows, err := repo.FindByProductIDsForUpdate(ctx, []uuid.UUID{b.ID, a.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		want := []uuid.UUID{a.ID, b.ID}
		if b.ID.String() < a.ID.String() {
			want = []uuid.UUID{b.ID, a.ID}
		}
		assert.Equal(t, want, []uuid.UUID{rows[0].ProductID, rows[1].ProductID})
	})

	t.Run("empty id list", func(t *testing.T) {
		rows, err := repo.FindByProductIDsForUpdate(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("save with lock", func(t *testing.T) {
		inv, err := repo.FindByProductID(ctx, a.ID)
		require.NoError(t, err)
		_, err = inv.Deduct(decimal.NewFromInt(4), inventory.MovementRef{ActorID: uuid.New()})
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, inv))

		reloaded, err := repo.FindByProductID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.QuantityInBaseUOM.Equal(decimal.NewFromInt(6)))
		assert.Equal(t, inv.Version, reloaded.Version)

		err = repo.SaveWithLock(ctx, inv)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := repo.FindByProductID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrProductNotFound)
	})
}

func TestGormStockMovementRepository(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewGormStockMovementRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	inv, err := inventory.NewInventory(productID, uuid.New())
	require.NoError(t, err)

	var movements []*inventory.StockMovement
	for _, delta := range []int64{10, -3, 5} {
		m, err := inv.Adjust(decimal.NewFromInt(delta), inventory.MovementRef{ActorID: uuid.New(), Reason: "count"})
		require.NoError(t, err)
		movements = append(movements, m)
	}
	for _, m := range movements {
		require.NoError(t, repo.Create(ctx, m))
	}
	require.NoError(t, repo.Create(ctx))

	f := shared.DefaultFilter()
	f.PageSize = 2
	page, total, err := repo.FindByProductID(ctx, productID, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.False(t, page[0].CreatedAt.Before(page[1].CreatedAt), "newest first")
	assert.Equal(t, inventory.MovementTypeAdjust, page[0].Type)
	assert.Equal(t, productID, page[0].ProductID)
}

func newPersistedOrder(t *testing.T, db *gorm.DB, buyer uuid.UUID, products ...*catalog.Product) *trade.Order {
	t.Helper()
	items := make([]trade.OrderItem, 0, len(products))
	for _, p := range products {
		item, err := trade.NewOrderItem(p.ID, p.SupplierID, p.Name,
			decimal.NewFromInt(2), valueobject.UnitGram, decimal.NewFromInt(2), p.BaseUOM, p.PricePerBaseUOM)
		require.NoError(t, err)
		items = append(items, *item)
	}

	seq, err := NewGormOrderNumberSequence(db).Next(context.Background(), 2026)
	require.NoError(t, err)
	order, err := trade.NewOrder(buyer, trade.FormatOrderNumber(2026, seq), items, "")
	require.NoError(t, err)
	require.NoError(t, NewGormOrderRepository(db).Create(context.Background(), order))
	return order
}

func TestGormOrderRepository(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	s1, s2 := uuid.New(), uuid.New()
	p1 := seedProduct(t, db, s1, "P1", "", 0)
	p2 := seedProduct(t, db, s2, "P2", "", 0)
	buyer := uuid.New()

	first := newPersistedOrder(t, db, buyer, p1, p2)
	second := newPersistedOrder(t, db, uuid.New(), p2)

	t.Run("create persists items and history", func(t *testing.T) {
		assert.Empty(t, first.PendingHistory())

		got, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "ORD-2026-00001", got.OrderNumber)
		assert.Len(t, got.Items, 2)
		assert.True(t, got.TotalAmount.Equal(first.TotalAmount))

		history, err := repo.FindHistory(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Nil(t, history[0].FromStatus)
		assert.Equal(t, trade.OrderStatusPending, history[0].ToStatus)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := repo.FindByIDForUpdate(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrOrderNotFound)
	})

	t.Run("filters", func(t *testing.T) {
		byBuyer, total, err := repo.FindAll(ctx, trade.OrderFilter{Filter: shared.DefaultFilter(), BuyerID: &buyer})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, first.ID, byBuyer[0].ID)

		_, total, err = repo.FindAll(ctx, trade.OrderFilter{Filter: shared.DefaultFilter(), SupplierID: &s2})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, total, err = repo.FindAll(ctx, trade.OrderFilter{Filter: shared.DefaultFilter(), SupplierID: &s1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("transition appends history", func(t *testing.T) {
		order, err := repo.FindByIDForUpdate(ctx, second.ID)
		require.NoError(t, err)
		admin := shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}
		_, err = order.TransitionTo(trade.OrderStatusApproved, admin, "ok")
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, order))

		history, err := repo.FindHistory(ctx, second.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		require.NotNil(t, history[1].FromStatus)
		assert.Equal(t, trade.OrderStatusPending, *history[1].FromStatus)
		assert.Equal(t, trade.OrderStatusApproved, history[1].ToStatus)
		assert.Equal(t, "ok", history[1].Reason)

		approved := trade.OrderStatusApproved
		items, _, err := repo.FindAll(ctx, trade.OrderFilter{Filter: shared.DefaultFilter(), Status: &approved})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, second.ID, items[0].ID)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		fresh, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)

		admin := shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}
		_, err = fresh.TransitionTo(trade.OrderStatusCancelled, admin, "")
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, fresh))

		_, err = stale.TransitionTo(trade.OrderStatusApproved, admin, "")
		require.NoError(t, err)
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		history, err := repo.FindHistory(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

func TestGormOrderNumberSequence(t *testing.T) {
	db := sqlitetest.Open(t)
	seq := NewGormOrderNumberSequence(db)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := seq.Next(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "each year starts over")

	t.Run("concurrent callers get distinct numbers", func(t *testing.T) {
		var (
			mu   sync.Mutex
			seen = map[int64]bool{}
			wg   sync.WaitGroup
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := seq.Next(ctx, 2030)
				assert.NoError(t, err)
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, seen, 10)
	})
}

func TestGormTransactionScope_Rollback(t *testing.T) {
	db := sqlitetest.Open(t)
	ctx := context.Background()
	p := seedProduct(t, db, uuid.New(), "A", "", 10)

	scope := NewGormOrderTransactionScope(db)
	err := scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		invs, err := repos.InventoryRepo().FindByProductIDsForUpdate(ctx, []uuid.UUID{p.ID})
		if err != nil {
			return err
		}
		if _, err := invs[0].Deduct(decimal.NewFromInt(4), inventory.MovementRef{ActorID: uuid.New()}); err != nil {
			return err
		}
		if err := repos.InventoryRepo().SaveWithLock(ctx, invs[0]); err != nil {
			return err
		}
		if _, err := repos.OrderNumbers().Next(ctx, 2026); err != nil {
			return err
		}
		return shared.ErrInsufficientStock
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	inv, err := NewGormInventoryRepository(db).FindByProductID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, inv.QuantityInBaseUOM.Equal(decimal.NewFromInt(10)))

	next, err := NewGormOrderNumberSequence(db).Next(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next, "rolled back number is reused")
}

func TestGormStockLevelProvider_CountOutOfStock(t *testing.T) {
	db := sqlitetest.Open(t)
	ctx := context.Background()
	supplier := uuid.New()

	seedProduct(t, db, supplier, "Flour", "OOS-1", 0)
	seedProduct(t, db, supplier, "Sugar", "OOS-2", 25)
	retired := seedProduct(t, db, supplier, "Salt", "OOS-3", 0)

	retired.Deactivate()
	require.NoError(t, NewGormProductRepository(db).SaveWithLock(ctx, retired))

	count, err := NewGormStockLevelProvider(db).CountOutOfStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
