package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

func buildOrderForIntegrationTest(t *testing.T, customerID int64, lines []domain.OrderLine) domain.Order {
	t.Helper()

	draft := domain.NewOrderDraft(customerID, time.Now().UTC())
	for _, line := range lines {
		require.NoError(t, draft.AddLine(line.ProductID, line.Quantity, line.PriceEachMinor, line.UnitCostMinor))
	}
	require.NoError(t, draft.BeginSubmit())
	return draft.Snapshot()
}

func TestOrderRepositoryIntegration_CommitPersistsHeaderLinesAndStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	customerID := seedCustomerForIntegrationTest(t, store)
	laptopID := seedProductForIntegrationTest(t, store, "laptop", 10, 60000)
	mouseID := seedProductForIntegrationTest(t, store, "mouse", 5, 30000)

	order := buildOrderForIntegrationTest(t, customerID, []domain.OrderLine{
		{ProductID: laptopID, Quantity: 3, PriceEachMinor: 100000, UnitCostMinor: 60000},
		{ProductID: mouseID, Quantity: 2, PriceEachMinor: 50000, UnitCostMinor: 30000},
	})

	committed, err := repo.Commit(context.Background(), order)
	require.NoError(t, err)

	require.NotZero(t, committed.ID)
	assert.Equal(t, customerID, committed.CustomerID)
	assert.Equal(t, int64(400000), committed.TotalAmountMinor)
	assert.Equal(t, int64(160000), committed.ProfitMinor)
	assert.False(t, committed.CreatedAt.IsZero())

	require.Len(t, committed.Lines, 2)
	for _, line := range committed.Lines {
		assert.NotZero(t, line.ID)
		assert.Equal(t, committed.ID, line.OrderID)
	}

	loaded, err := repo.Get(context.Background(), committed.ID)
	require.NoError(t, err)
	assert.Equal(t, committed.TotalAmountMinor, loaded.TotalAmountMinor)
	assert.Equal(t, committed.ProfitMinor, loaded.ProfitMinor)
	require.Len(t, loaded.Lines, 2)

	products := NewProductRepository(store)
	laptopStock, err := products.CurrentStock(context.Background(), laptopID)
	require.NoError(t, err)
	assert.Equal(t, int32(7), laptopStock)

	mouseStock, err := products.CurrentStock(context.Background(), mouseID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), mouseStock)
}

func TestOrderRepositoryIntegration_InsufficientStockRollsBackEverything(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	customerID := seedCustomerForIntegrationTest(t, store)
	laptopID := seedProductForIntegrationTest(t, store, "laptop", 10, 60000)
	mouseID := seedProductForIntegrationTest(t, store, "mouse", 1, 30000)

	order := buildOrderForIntegrationTest(t, customerID, []domain.OrderLine{
		{ProductID: laptopID, Quantity: 3, PriceEachMinor: 100000, UnitCostMinor: 60000},
		{ProductID: mouseID, Quantity: 2, PriceEachMinor: 50000, UnitCostMinor: 30000},
	})

	_, err := repo.Commit(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 0, countRowsForIntegrationTest(t, store, "orders"))
	assert.Equal(t, 0, countRowsForIntegrationTest(t, store, "order_detail"))

	products := NewProductRepository(store)
	laptopStock, err := products.CurrentStock(context.Background(), laptopID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), laptopStock, "stock of the first product must not change when a later line fails")
}

func TestOrderRepositoryIntegration_DuplicateProductLinesAreReservedCumulatively(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	customerID := seedCustomerForIntegrationTest(t, store)
	productID := seedProductForIntegrationTest(t, store, "laptop", 3, 60000)

	order := buildOrderForIntegrationTest(t, customerID, []domain.OrderLine{
		{ProductID: productID, Quantity: 2, PriceEachMinor: 100000, UnitCostMinor: 60000},
		{ProductID: productID, Quantity: 2, PriceEachMinor: 100000, UnitCostMinor: 60000},
	})

	_, err := repo.Commit(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	products := NewProductRepository(store)
	stock, err := products.CurrentStock(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), stock)
}

func TestOrderRepositoryIntegration_UnknownProductRollsBack(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	customerID := seedCustomerForIntegrationTest(t, store)

	order := buildOrderForIntegrationTest(t, customerID, []domain.OrderLine{
		{ProductID: 424242, Quantity: 1, PriceEachMinor: 100000, UnitCostMinor: 60000},
	})

	_, err := repo.Commit(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrUnknownProduct)

	assert.Equal(t, 0, countRowsForIntegrationTest(t, store, "orders"))
	assert.Equal(t, 0, countRowsForIntegrationTest(t, store, "order_detail"))
}

func TestOrderRepositoryIntegration_GetUnknownOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	_, err := repo.Get(context.Background(), 999999)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepositoryIntegration_ListByCustomer(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	customerID := seedCustomerForIntegrationTest(t, store)
	productID := seedProductForIntegrationTest(t, store, "laptop", 100, 60000)

	var lastID int64
	for i := 0; i < 3; i++ {
		order := buildOrderForIntegrationTest(t, customerID, []domain.OrderLine{
			{ProductID: productID, Quantity: 1, PriceEachMinor: 100000, UnitCostMinor: 60000},
		})
		committed, err := repo.Commit(context.Background(), order)
		require.NoError(t, err)
		lastID = committed.ID
	}

	orders, err := repo.ListByCustomer(context.Background(), customerID, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, lastID, orders[0].ID, "newest order comes first")
}

// Падение вставки позиции после успешной записи шапки должно откатывать
// и шапку, и позиции, и резерв остатков. Триггер на order_detail ломает
// ровно этот шаг транзакции.
func TestOrderRepositoryIntegration_LineInsertFailureRollsBackHeader(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	customerID := seedCustomerForIntegrationTest(t, store)
	laptopID := seedProductForIntegrationTest(t, store, "laptop", 10, 60000)
	mouseID := seedProductForIntegrationTest(t, store, "mouse", 5, 30000)

	_, err := store.db.ExecContext(ctx, `
		CREATE OR REPLACE FUNCTION order_detail_insert_breaker() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'order_detail insert is broken for this test';
		END;
		$$ LANGUAGE plpgsql
	`)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, `
		CREATE TRIGGER order_detail_insert_breaker_trg
		BEFORE INSERT ON order_detail
		FOR EACH ROW EXECUTE FUNCTION order_detail_insert_breaker()
	`)
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = store.db.ExecContext(cleanupCtx, `DROP TRIGGER IF EXISTS order_detail_insert_breaker_trg ON order_detail`)
		_, _ = store.db.ExecContext(cleanupCtx, `DROP FUNCTION IF EXISTS order_detail_insert_breaker()`)
	})

	order := buildOrderForIntegrationTest(t, customerID, []domain.OrderLine{
		{ProductID: laptopID, Quantity: 3, PriceEachMinor: 100000, UnitCostMinor: 60000},
		{ProductID: mouseID, Quantity: 2, PriceEachMinor: 50000, UnitCostMinor: 30000},
	})

	_, err = repo.Commit(ctx, order)
	require.ErrorIs(t, err, domain.ErrLineWrite)

	// Шапка успела записаться внутри транзакции, но откат убирает всё.
	assert.Equal(t, 0, countRowsForIntegrationTest(t, store, "orders"))
	assert.Equal(t, 0, countRowsForIntegrationTest(t, store, "order_detail"))

	products := NewProductRepository(store)
	laptopStock, err := products.CurrentStock(ctx, laptopID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), laptopStock)

	mouseStock, err := products.CurrentStock(ctx, mouseID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), mouseStock)
}
