package domain

import (
	"errors"
	"time"
)

// Product — карточка товара из справочника магазина. Для ядра заказов она
// read-only: заполняется вне этого сервиса, здесь читаются себестоимость и остаток.
type Product struct {
	ID   int64
	Name string
	// QuantityInStock — текущий остаток на складе; инвариант: не отрицателен.
	QuantityInStock int32
	// PriceMinor — себестоимость за единицу в минимальных денежных единицах
	// (сатанги/копейки). Цена продажи задаётся отдельно на позиции заказа.
	PriceMinor int64
	// Volume — фасовка/объём упаковки в свободной форме ("500ml", "1kg").
	Volume    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательного остатка на складе.
	ErrStockNegative = errors.New("quantity_in_stock must be non-negative")
	// Ошибка отрицательной себестоимости.
	ErrProductPriceNegative = errors.New("product price must be non-negative")
)

// Validate проверяет базовые инварианты карточки товара и возвращает список замечаний.
func (p *Product) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.QuantityInStock < 0 {
		errs = append(errs, ErrStockNegative)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceNegative)
	}

	return errs
}
