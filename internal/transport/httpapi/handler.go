package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/jirananyenlab/storeMom/internal/domain"
	"github.com/jirananyenlab/storeMom/internal/service/checkout"
)

// Handler обрабатывает HTTP-запросы ядра заказов.
type Handler struct {
	checkout checkout.Service
	logger   *log.Entry
}

// NewHandler создаёт HTTP handler поверх сервиса оформления заказа.
func NewHandler(svc checkout.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &Handler{
		checkout: svc,
		logger:   logger,
	}
}

// CreateOrder принимает позиции заказа, собирает черновик и фиксирует его
// одной транзакцией. Себестоимость позиций подставляется из справочника
// товаров на сервере.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	orderDate := time.Now().UTC()
	if req.OrderDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.OrderDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_date", "order_date must be RFC3339")
			return
		}
		orderDate = parsed
	}

	lines := make([]checkout.LineInput, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = checkout.LineInput{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			PriceEachMinor: line.PriceEachMinor,
		}
	}

	draft, err := h.checkout.BuildDraft(r.Context(), req.CustomerID, orderDate, lines)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	order, err := h.checkout.Submit(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// GetOrder возвращает заказ с позициями по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.checkout.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ListOrders возвращает заказы клиента, свежие первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id query parameter is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	orders, err := h.checkout.ListOrders(r.Context(), customerID, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]OrderResponse, len(orders))
	for i, order := range orders {
		out[i] = mapOrderToResponse(order)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetStock возвращает текущий остаток товара.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	stock, err := h.checkout.CurrentStock(r.Context(), productID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StockResponse{
		ProductID:       productID,
		QuantityInStock: stock,
	})
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeDomainError переводит доменные ошибки в HTTP-статусы.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidLine),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrCustomerRequired),
		errors.Is(err, domain.ErrDraftConsumed):
		writeError(w, http.StatusBadRequest, "invalid_order", err.Error())
	case errors.Is(err, domain.ErrUnknownProduct):
		writeError(w, http.StatusNotFound, "unknown_product", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	default:
		h.logger.WithError(err).Error("order storage failure")
		writeError(w, http.StatusBadGateway, "storage_error", "order could not be committed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
