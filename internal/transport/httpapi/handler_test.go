package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/jirananyenlab/storeMom/internal/domain"
	"github.com/jirananyenlab/storeMom/internal/service/checkout"
	"github.com/jirananyenlab/storeMom/internal/storage/memory"
)

func newTestServer(t *testing.T) (http.Handler, *memory.ProductRepository) {
	t.Helper()

	products := memory.NewProductRepository()
	products.Seed(domain.Product{ID: 1, Name: "laptop", QuantityInStock: 10, PriceMinor: 600, Volume: "1pc"})
	products.Seed(domain.Product{ID: 2, Name: "mouse", QuantityInStock: 5, PriceMinor: 300, Volume: "1pc"})

	orders := memory.NewOrderRepository(products)
	outbox := memory.NewOutboxRepository()

	svc := checkout.NewServiceWithoutMetrics(orders, products, outbox, log.New().WithField("test", t.Name()))
	handler := NewHandler(svc, log.New().WithField("test", t.Name()))
	return NewRouter(handler, nil), products
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateOrder_Success(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{
		CustomerID: 7,
		Lines: []CreateOrderLineDTO{
			{ProductID: 1, Quantity: 3, PriceEachMinor: 1000},
			{ProductID: 2, Quantity: 2, PriceEachMinor: 500},
		},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == 0 {
		t.Fatal("expected generated order id")
	}
	if resp.TotalAmountMinor != 4000 {
		t.Fatalf("expected total 4000, got %d", resp.TotalAmountMinor)
	}
	if resp.ProfitMinor != 1600 {
		t.Fatalf("expected profit 1600, got %d", resp.ProfitMinor)
	}
	if len(resp.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(resp.Lines))
	}
	if resp.Lines[0].AmountMinor != 3000 {
		t.Fatalf("expected first line amount 3000, got %d", resp.Lines[0].AmountMinor)
	}
}

func TestCreateOrder_EmptyOrder(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{CustomerID: 7})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateOrder_InvalidLine(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{
		CustomerID: 7,
		Lines:      []CreateOrderLineDTO{{ProductID: 1, Quantity: 0, PriceEachMinor: 1000}},
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{
		CustomerID: 7,
		Lines:      []CreateOrderLineDTO{{ProductID: 424242, Quantity: 1, PriceEachMinor: 1000}},
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	router, products := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{
		CustomerID: 7,
		Lines:      []CreateOrderLineDTO{{ProductID: 2, Quantity: 6, PriceEachMinor: 500}},
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock code, got %s", resp.Error)
	}

	stock, err := products.CurrentStock(context.Background(), 2)
	if err != nil {
		t.Fatalf("current stock: %v", err)
	}
	if stock != 5 {
		t.Fatalf("expected stock untouched after 409, got %d", stock)
	}
}

func TestCreateOrder_BadJSON(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetOrder(t *testing.T) {
	router, _ := newTestServer(t)

	created := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{
		CustomerID: 7,
		Lines:      []CreateOrderLineDTO{{ProductID: 1, Quantity: 1, PriceEachMinor: 1000}},
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", created.Code)
	}

	var createdOrder OrderResponse
	if err := json.Unmarshal(created.Body.Bytes(), &createdOrder); err != nil {
		t.Fatalf("decode created order: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/orders/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var loaded OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &loaded); err != nil {
		t.Fatalf("decode loaded order: %v", err)
	}
	if loaded.ID != createdOrder.ID {
		t.Fatalf("expected order %d, got %d", createdOrder.ID, loaded.ID)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/orders/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetOrder_BadID(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/orders/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListOrders(t *testing.T) {
	router, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/orders", CreateOrderRequest{
			CustomerID: 7,
			Lines:      []CreateOrderLineDTO{{ProductID: 1, Quantity: 1, PriceEachMinor: 1000}},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create %d: expected 201, got %d", i, w.Code)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/orders?customer_id=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var orders []OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &orders); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}

	w = doJSON(t, router, http.MethodGet, "/orders?customer_id=", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without customer_id, got %d", w.Code)
	}
}

func TestGetStock(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/products/1/stock", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp StockResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode stock: %v", err)
	}
	if resp.QuantityInStock != 10 {
		t.Fatalf("expected stock 10, got %d", resp.QuantityInStock)
	}

	w = doJSON(t, router, http.MethodGet, "/products/424242/stock", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", w.Code)
	}
}
