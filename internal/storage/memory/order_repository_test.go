package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

func seedProducts(t *testing.T) *ProductRepository {
	t.Helper()

	products := NewProductRepository()
	products.Seed(domain.Product{ID: 1, Name: "milk", QuantityInStock: 10, PriceMinor: 600, Volume: "1l"})
	products.Seed(domain.Product{ID: 2, Name: "bread", QuantityInStock: 5, PriceMinor: 300, Volume: "400g"})
	return products
}

func draftOrder(t *testing.T) domain.Order {
	t.Helper()

	draft := domain.NewOrderDraft(7, time.Now().UTC())
	if err := draft.AddLine(1, 3, 1000, 600); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := draft.AddLine(2, 2, 500, 300); err != nil {
		t.Fatalf("add line: %v", err)
	}
	return draft.Snapshot()
}

func TestOrderRepository_Commit(t *testing.T) {
	ctx := context.Background()
	products := seedProducts(t)
	repo := NewOrderRepository(products)

	committed, err := repo.Commit(ctx, draftOrder(t))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if committed.ID == 0 {
		t.Fatal("committed order has no generated id")
	}
	if committed.TotalAmountMinor != 4000 || committed.ProfitMinor != 1600 {
		t.Fatalf("totals: amount=%d profit=%d", committed.TotalAmountMinor, committed.ProfitMinor)
	}
	for i, line := range committed.Lines {
		if line.ID == 0 {
			t.Fatalf("line %d has no generated id", i)
		}
		if line.OrderID != committed.ID {
			t.Fatalf("line %d order id = %d, want %d", i, line.OrderID, committed.ID)
		}
	}

	// Остатки списаны в той же операции.
	if stock, _ := products.CurrentStock(ctx, 1); stock != 7 {
		t.Fatalf("stock for product 1 = %d, want 7", stock)
	}
	if stock, _ := products.CurrentStock(ctx, 2); stock != 3 {
		t.Fatalf("stock for product 2 = %d, want 3", stock)
	}

	got, err := repo.Get(ctx, committed.ID)
	if err != nil {
		t.Fatalf("get committed order: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("stored lines = %d, want 2", len(got.Lines))
	}
}

func TestOrderRepository_CommitInsufficientStock(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepository()
	products.Seed(domain.Product{ID: 1, Name: "milk", QuantityInStock: 2, PriceMinor: 600})
	repo := NewOrderRepository(products)

	draft := domain.NewOrderDraft(7, time.Now().UTC())
	if err := draft.AddLine(1, 3, 1000, 600); err != nil {
		t.Fatalf("add line: %v", err)
	}

	_, err := repo.Commit(ctx, draft.Snapshot())
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Ни заказа, ни списания остатков.
	if stock, _ := products.CurrentStock(ctx, 1); stock != 2 {
		t.Fatalf("stock changed after failed commit: %d", stock)
	}
	if orders, _ := repo.ListByCustomer(ctx, 7, 0); len(orders) != 0 {
		t.Fatalf("orders written after failed commit: %d", len(orders))
	}
}

func TestOrderRepository_CommitPartialStockRollback(t *testing.T) {
	ctx := context.Background()
	products := seedProducts(t)
	repo := NewOrderRepository(products)

	// Вторая позиция превышает остаток: первая не должна списаться.
	draft := domain.NewOrderDraft(7, time.Now().UTC())
	if err := draft.AddLine(1, 3, 1000, 600); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := draft.AddLine(2, 6, 500, 300); err != nil {
		t.Fatalf("add line: %v", err)
	}

	_, err := repo.Commit(ctx, draft.Snapshot())
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if stock, _ := products.CurrentStock(ctx, 1); stock != 10 {
		t.Fatalf("stock for product 1 = %d, want untouched 10", stock)
	}
	if stock, _ := products.CurrentStock(ctx, 2); stock != 5 {
		t.Fatalf("stock for product 2 = %d, want untouched 5", stock)
	}
}

func TestOrderRepository_CommitDuplicateProductLines(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepository()
	products.Seed(domain.Product{ID: 1, Name: "milk", QuantityInStock: 3, PriceMinor: 600})
	repo := NewOrderRepository(products)

	// Две позиции по 2 единицы одного товара при остатке 3: суммарная
	// потребность должна отклоняться, а не проверяться построчно.
	draft := domain.NewOrderDraft(7, time.Now().UTC())
	if err := draft.AddLine(1, 2, 1000, 600); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := draft.AddLine(1, 2, 1000, 600); err != nil {
		t.Fatalf("add line: %v", err)
	}

	_, err := repo.Commit(ctx, draft.Snapshot())
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if stock, _ := products.CurrentStock(ctx, 1); stock != 3 {
		t.Fatalf("stock = %d, want untouched 3", stock)
	}
}

func TestOrderRepository_CommitUnknownProduct(t *testing.T) {
	ctx := context.Background()
	products := seedProducts(t)
	repo := NewOrderRepository(products)

	draft := domain.NewOrderDraft(7, time.Now().UTC())
	if err := draft.AddLine(99, 1, 1000, 600); err != nil {
		t.Fatalf("add line: %v", err)
	}

	_, err := repo.Commit(ctx, draft.Snapshot())
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestOrderRepository_CommitEmptyOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(seedProducts(t))

	_, err := repo.Commit(ctx, domain.Order{CustomerID: 7})
	if !errors.Is(err, domain.ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo := NewOrderRepository(seedProducts(t))

	_, err := repo.Get(context.Background(), 12345)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListByCustomer(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepository()
	products.Seed(domain.Product{ID: 1, Name: "milk", QuantityInStock: 100, PriceMinor: 600})
	repo := NewOrderRepository(products)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		draft := domain.NewOrderDraft(7, base.Add(time.Duration(i)*time.Hour))
		if err := draft.AddLine(1, 1, 1000, 600); err != nil {
			t.Fatalf("add line: %v", err)
		}
		if _, err := repo.Commit(ctx, draft.Snapshot()); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	orders, err := repo.ListByCustomer(ctx, 7, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("list size = %d, want 2", len(orders))
	}
	if !orders[0].OrderDate.After(orders[1].OrderDate) {
		t.Fatal("orders are not sorted newest first")
	}

	orders, err = repo.ListByCustomer(ctx, 8, 0)
	if err != nil {
		t.Fatalf("list other customer: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("unexpected orders for other customer: %d", len(orders))
	}
}
