package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

const (
	opTimeout = 5 * time.Second
	// commitTimeout ограничивает транзакцию фиксации заказа целиком; по
	// истечении вызов возвращает ошибку, а не виснет.
	commitTimeout = 10 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.db}
}

// Commit записывает шапку, позиции и списание остатков одной транзакцией.
// Порядок шагов: резерв остатков → шапка (RETURNING order_id) → позиции с
// полученным order_id → COMMIT. Любая ошибка до COMMIT откатывает всё.
func (r *orderRepository) Commit(ctx context.Context, order domain.Order) (domain.Order, error) {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: begin tx: %w", domain.ErrHeaderWrite, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = reserveStock(ctx, tx, order.Lines); err != nil {
		return domain.Order{}, err
	}

	// Шапка заказа; сгенерированный ключ нужен до вставки позиций.
	var (
		orderID   int64
		createdAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, order_date, total_amount_minor, profit_minor)
		VALUES ($1,$2,$3,$4)
		RETURNING order_id, created_at
	`,
		order.CustomerID, order.OrderDate, order.TotalAmountMinor, order.ProfitMinor,
	).Scan(&orderID, &createdAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: insert order header: %w", domain.ErrHeaderWrite, err)
	}
	if orderID == 0 {
		err = fmt.Errorf("%w: no generated order id", domain.ErrHeaderWrite)
		return domain.Order{}, err
	}

	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	for i := range lines {
		lines[i].OrderID = orderID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_detail (order_id, product_id, quantity_ordered, price_each_minor)
			VALUES ($1,$2,$3,$4)
			RETURNING order_detail_id
		`,
			orderID, lines[i].ProductID, lines[i].Quantity, lines[i].PriceEachMinor,
		).Scan(&lines[i].ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				err = fmt.Errorf("line %d references product %d: %w", i, lines[i].ProductID, domain.ErrUnknownProduct)
				return domain.Order{}, err
			}
			err = fmt.Errorf("%w: insert order line %d: %w", domain.ErrLineWrite, i, err)
			return domain.Order{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("%w: commit order: %w", domain.ErrHeaderWrite, err)
	}

	order.ID = orderID
	order.CreatedAt = createdAt.UTC()
	order.Lines = lines
	return order, nil
}

// reserveStock списывает остатки под заказ до записи шапки. Условный UPDATE
// держит блокировку строки товара до конца транзакции, поэтому параллельные
// фиксации по одному товару сериализуются и не могут вдвоём пройти проверку
// остатка. Товары обходятся по возрастанию id во избежание deadlock.
func reserveStock(ctx context.Context, tx *sql.Tx, lines []domain.OrderLine) error {
	need := make(map[int64]int32, len(lines))
	for _, line := range lines {
		need[line.ProductID] += line.Quantity
	}

	ids := make([]int64, 0, len(need))
	for productID := range need {
		ids = append(ids, productID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, productID := range ids {
		res, err := tx.ExecContext(ctx, `
			UPDATE product
			SET quantity_in_stock = quantity_in_stock - $2,
			    updated_at = NOW()
			WHERE product_id = $1
			  AND quantity_in_stock >= $2
		`, productID, need[productID])
		if err != nil {
			if isCheckViolation(err) {
				return fmt.Errorf("reserve product %d: %w", productID, domain.ErrInsufficientStock)
			}
			return fmt.Errorf("%w: reserve product %d: %w", domain.ErrHeaderWrite, productID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: rows affected for product %d: %w", domain.ErrHeaderWrite, productID, err)
		}
		if affected == 0 {
			exists, err := productExistsTx(ctx, tx, productID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("reserve product %d: %w", productID, domain.ErrUnknownProduct)
			}
			return fmt.Errorf("reserve product %d: %w", productID, domain.ErrInsufficientStock)
		}
	}

	return nil
}

func productExistsTx(ctx context.Context, tx *sql.Tx, productID int64) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT product_id FROM product WHERE product_id = $1`, productID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("%w: check product exists: %w", domain.ErrHeaderWrite, err)
}

// Get возвращает заказ с позициями или ErrOrderNotFound.
func (r *orderRepository) Get(ctx context.Context, orderID int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order
	err := r.db.QueryRowContext(ctx, `
		SELECT order_id, customer_id, order_date, total_amount_minor, profit_minor, created_at
		FROM orders
		WHERE order_id = $1
	`, orderID).Scan(
		&order.ID, &order.CustomerID, &order.OrderDate,
		&order.TotalAmountMinor, &order.ProfitMinor, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

// ListByCustomer возвращает заказы клиента, свежие первыми.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT order_id, customer_id, order_date, total_amount_minor, profit_minor, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY order_date DESC, order_id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.OrderDate,
			&order.TotalAmountMinor, &order.ProfitMinor, &order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		lines, err := r.loadLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_detail_id, order_id, product_id, quantity_ordered, price_each_minor
		FROM order_detail
		WHERE order_id = $1
		ORDER BY order_detail_id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.PriceEachMinor); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == "23503"
}

func isCheckViolation(err error) bool {
	return pgErrCode(err) == "23514"
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ domain.OrderRepository = (*orderRepository)(nil)
