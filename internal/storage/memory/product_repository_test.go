package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

func TestProductRepository_Get(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository()
	repo.Seed(domain.Product{ID: 1, Name: "milk", QuantityInStock: 10, PriceMinor: 600, Volume: "1l"})

	product, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if product.Name != "milk" || product.PriceMinor != 600 {
		t.Fatalf("product = %+v", product)
	}

	if _, err := repo.Get(ctx, 99); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestProductRepository_CurrentStock(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository()
	repo.Seed(domain.Product{ID: 1, Name: "milk", QuantityInStock: 4, PriceMinor: 600})

	stock, err := repo.CurrentStock(ctx, 1)
	if err != nil {
		t.Fatalf("current stock: %v", err)
	}
	if stock != 4 {
		t.Fatalf("stock = %d, want 4", stock)
	}

	if _, err := repo.CurrentStock(ctx, 99); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}
