package domain

import "time"

// DraftStatus описывает жизненный цикл draft-заказа до и после фиксации.
type DraftStatus string

const (
	// DraftStatusDraft — заказ собирается; позиции можно добавлять и сбрасывать.
	DraftStatusDraft DraftStatus = "draft"
	// DraftStatusSubmitting — draft передан протоколу фиксации; изменения запрещены.
	DraftStatusSubmitting DraftStatus = "submitting"
	// DraftStatusCommitted — заказ записан в БД; терминальное состояние draft.
	DraftStatusCommitted DraftStatus = "committed"
	// DraftStatusFailed — фиксация не удалась; терминальное состояние, для повтора
	// нужен новый draft.
	DraftStatusFailed DraftStatus = "failed"
)

// OrderLine представляет одну позицию заказа.
type OrderLine struct {
	// ID позиции генерируется БД при фиксации; до этого равен нулю.
	ID int64
	// OrderID проставляется из сгенерированного ключа шапки при фиксации.
	OrderID int64
	// ProductID — ссылка на товар из справочника.
	ProductID int64
	// Quantity — количество единиц товара, строго положительное.
	Quantity int32
	// PriceEachMinor — цена продажи за единицу в минимальных денежных единицах.
	// Фиксируется на позиции и не зависит от текущей цены в карточке товара.
	PriceEachMinor int64
	// UnitCostMinor — себестоимость единицы на момент добавления позиции.
	// Используется только для расчёта прибыли и не сохраняется в БД.
	UnitCostMinor int64
}

// AmountMinor возвращает сумму позиции: qty × цена продажи.
func (l OrderLine) AmountMinor() int64 {
	return int64(l.Quantity) * l.PriceEachMinor
}

// ProfitMinor возвращает прибыль позиции: qty × (цена продажи − себестоимость).
func (l OrderLine) ProfitMinor() int64 {
	return int64(l.Quantity) * (l.PriceEachMinor - l.UnitCostMinor)
}

// Order — зафиксированное (или готовое к фиксации) состояние заказа.
// До записи в БД ID равен нулю; после успешной фиксации ID и идентификаторы
// позиций неизменяемы.
type Order struct {
	ID               int64
	CustomerID       int64
	OrderDate        time.Time
	TotalAmountMinor int64
	ProfitMinor      int64
	Lines            []OrderLine
	CreatedAt        time.Time
}

// ValidateInvariants сверяет производные суммы с фактическим набором позиций
// и возвращает список замечаний. Пересчёт здесь — защита от рассинхронизации
// накопленных сумм и позиций.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID <= 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}

	var amount, profit int64
	for _, line := range o.Lines {
		if line.Quantity <= 0 || line.PriceEachMinor <= 0 {
			errs = append(errs, ErrInvalidLine)
		}
		amount += line.AmountMinor()
		profit += line.ProfitMinor()
	}
	if amount != o.TotalAmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if profit != o.ProfitMinor {
		errs = append(errs, ErrProfitMismatch)
	}

	return errs
}

// OrderDraft — агрегат собираемого заказа: позиции плюс накопительные суммы.
// Draft принадлежит ровно одной сессии составления и не разделяется между
// горутинами, поэтому внутренней блокировки нет.
type OrderDraft struct {
	customerID       int64
	orderDate        time.Time
	status           DraftStatus
	lines            []OrderLine
	totalAmountMinor int64
	profitMinor      int64
	committed        Order
}

// NewOrderDraft создаёт пустой draft для клиента с датой заказа.
func NewOrderDraft(customerID int64, orderDate time.Time) *OrderDraft {
	return &OrderDraft{
		customerID: customerID,
		orderDate:  orderDate,
		status:     DraftStatusDraft,
	}
}

// AddLine добавляет позицию и в той же операции наращивает обе накопительные
// суммы. При ошибке ни позиции, ни суммы не меняются.
func (d *OrderDraft) AddLine(productID int64, quantity int32, priceEachMinor, unitCostMinor int64) error {
	if d.status != DraftStatusDraft {
		return ErrDraftConsumed
	}
	if quantity <= 0 || priceEachMinor <= 0 || unitCostMinor < 0 {
		return ErrInvalidLine
	}

	line := OrderLine{
		ProductID:      productID,
		Quantity:       quantity,
		PriceEachMinor: priceEachMinor,
		UnitCostMinor:  unitCostMinor,
	}
	d.lines = append(d.lines, line)
	d.totalAmountMinor += line.AmountMinor()
	d.profitMinor += line.ProfitMinor()
	return nil
}

// Clear сбрасывает draft в пустое состояние. Идемпотентен; после передачи
// draft протоколу фиксации вызов ничего не меняет.
func (d *OrderDraft) Clear() {
	if d.status != DraftStatusDraft {
		return
	}
	d.lines = nil
	d.totalAmountMinor = 0
	d.profitMinor = 0
}

// TotalAmountMinor возвращает накопленную сумму заказа.
func (d *OrderDraft) TotalAmountMinor() int64 {
	return d.totalAmountMinor
}

// ProfitMinor возвращает накопленную прибыль заказа.
func (d *OrderDraft) ProfitMinor() int64 {
	return d.profitMinor
}

// Lines возвращает копию позиций в порядке добавления.
func (d *OrderDraft) Lines() []OrderLine {
	lines := make([]OrderLine, len(d.lines))
	copy(lines, d.lines)
	return lines
}

// CustomerID возвращает клиента, для которого собирается заказ.
func (d *OrderDraft) CustomerID() int64 {
	return d.customerID
}

// Status возвращает текущее состояние draft.
func (d *OrderDraft) Status() DraftStatus {
	return d.status
}

// BeginSubmit переводит draft в submitting. Пустой draft отклоняется и остаётся
// в draft (вызывающая сторона может дополнить позиции); уже отправленный —
// возвращает ErrDraftConsumed: повторная отправка возможна только новым draft.
func (d *OrderDraft) BeginSubmit() error {
	if d.status != DraftStatusDraft {
		return ErrDraftConsumed
	}
	if d.customerID <= 0 {
		return ErrCustomerRequired
	}
	if len(d.lines) == 0 {
		return ErrEmptyOrder
	}
	d.status = DraftStatusSubmitting
	return nil
}

// Snapshot собирает Order из текущего состояния draft. Суммы копируются из
// накопителей и нигде не пересчитываются.
func (d *OrderDraft) Snapshot() Order {
	return Order{
		CustomerID:       d.customerID,
		OrderDate:        d.orderDate,
		TotalAmountMinor: d.totalAmountMinor,
		ProfitMinor:      d.profitMinor,
		Lines:            d.Lines(),
	}
}

// MarkCommitted фиксирует терминальное состояние committed и сохраняет заказ
// с присвоенными БД идентификаторами.
func (d *OrderDraft) MarkCommitted(order Order) {
	if d.status != DraftStatusSubmitting {
		return
	}
	d.status = DraftStatusCommitted
	d.committed = order
}

// MarkFailed фиксирует терминальное состояние failed.
func (d *OrderDraft) MarkFailed() {
	if d.status != DraftStatusSubmitting {
		return
	}
	d.status = DraftStatusFailed
}

// Committed возвращает зафиксированный заказ; вторым значением — признак того,
// что фиксация состоялась.
func (d *OrderDraft) Committed() (Order, bool) {
	if d.status != DraftStatusCommitted {
		return Order{}, false
	}
	return d.committed, true
}
