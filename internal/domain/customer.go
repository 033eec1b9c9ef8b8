package domain

import "time"

// Customer — запись клиента из справочника. Ядро заказов ссылается на клиента
// только по идентификатору; ведение справочника живёт вне этого сервиса.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// FullName возвращает отображаемое имя клиента.
func (c *Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
