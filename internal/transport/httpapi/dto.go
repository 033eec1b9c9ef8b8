package httpapi

import (
	"time"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

// CreateOrderRequest описывает тело запроса POST /orders.
type CreateOrderRequest struct {
	CustomerID int64                `json:"customer_id"`
	OrderDate  string               `json:"order_date,omitempty"`
	Lines      []CreateOrderLineDTO `json:"lines"`
}

// CreateOrderLineDTO описывает позицию заказа в запросе.
type CreateOrderLineDTO struct {
	ProductID      int64 `json:"product_id"`
	Quantity       int32 `json:"quantity"`
	PriceEachMinor int64 `json:"price_each_minor"`
}

// OrderResponse описывает зафиксированный заказ в ответе API.
type OrderResponse struct {
	ID               int64               `json:"id"`
	CustomerID       int64               `json:"customer_id"`
	OrderDate        string              `json:"order_date"`
	TotalAmountMinor int64               `json:"total_amount_minor"`
	ProfitMinor      int64               `json:"profit_minor"`
	Lines            []OrderLineResponse `json:"lines"`
	CreatedAt        string              `json:"created_at"`
}

// OrderLineResponse описывает позицию заказа в ответе API.
type OrderLineResponse struct {
	ID             int64 `json:"id"`
	ProductID      int64 `json:"product_id"`
	Quantity       int32 `json:"quantity"`
	PriceEachMinor int64 `json:"price_each_minor"`
	AmountMinor    int64 `json:"amount_minor"`
}

// StockResponse описывает ответ GET /products/{id}/stock.
type StockResponse struct {
	ProductID       int64 `json:"product_id"`
	QuantityInStock int32 `json:"quantity_in_stock"`
}

// ErrorResponse описывает тело ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(order domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = OrderLineResponse{
			ID:             line.ID,
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			PriceEachMinor: line.PriceEachMinor,
			AmountMinor:    line.AmountMinor(),
		}
	}
	return OrderResponse{
		ID:               order.ID,
		CustomerID:       order.CustomerID,
		OrderDate:        order.OrderDate.UTC().Format(time.RFC3339),
		TotalAmountMinor: order.TotalAmountMinor,
		ProfitMinor:      order.ProfitMinor,
		Lines:            lines,
		CreatedAt:        order.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
