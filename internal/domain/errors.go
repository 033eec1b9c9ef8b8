package domain

import "errors"

var (
	// Ошибка некорректной позиции заказа: количество или цена продажи не положительны.
	ErrInvalidLine = errors.New("order line qty and price must be greater than zero")
	// Ошибка попытки зафиксировать заказ без единой позиции.
	ErrEmptyOrder = errors.New("order must contain at least one line")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// ErrUnknownProduct возвращается, если позиция ссылается на несуществующий товар.
	ErrUnknownProduct = errors.New("product not found")
	// ErrInsufficientStock — бизнес-ошибка: запрошено больше, чем есть на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrHeaderWrite — инфраструктурная ошибка записи шапки заказа (вставка не прошла
	// или БД не вернула сгенерированный ключ). Транзакция откатывается целиком.
	ErrHeaderWrite = errors.New("order header write failed")
	// ErrLineWrite — инфраструктурная ошибка записи позиции заказа. Транзакция
	// откатывается целиком, включая уже вставленную шапку.
	ErrLineWrite = errors.New("order line write failed")
	// ErrDraftConsumed возвращается при попытке изменить или повторно отправить
	// draft, уже переведённый в submitting или терминальное состояние.
	ErrDraftConsumed = errors.New("order draft already consumed")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match lines sum")
	// Ошибка несоответствия прибыли заказа и сумм по позициям.
	ErrProfitMismatch = errors.New("order profit does not match lines sum")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsRecoverable сообщает, может ли вызывающая сторона исправить вход и повторить
// попытку (с тем же набором позиций, но в новом draft).
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidLine) ||
		errors.Is(err, ErrEmptyOrder) ||
		errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrInsufficientStock)
}
