package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/port"
)

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

type OrderStore struct {
	db              *sql.DB
	advanceRate     decimal.Decimal
	lockWaitTimeout time.Duration
}

func NewOrderStore(db *sql.DB, advanceRate decimal.Decimal, lockWaitTimeout time.Duration) *OrderStore {
	return &OrderStore{
		db:              db,
		advanceRate:     advanceRate,
		lockWaitTimeout: lockWaitTimeout,
	}
}

// PlaceOrder runs the purchase workflow as a single transaction. Product
// rows are locked in ascending id order so concurrent placements acquire
// locks in the same global order, then stock is validated and decremented
// under those locks. Any failure rolls the whole transaction back; no
// order, no lines, no stock change.
func (s *OrderStore) PlaceOrder(ctx context.Context, customerID int64, items []port.LineItem, method domain.PaymentMethod) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Reason: "at least one line item is required"}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if s.lockWaitTimeout > 0 {
		secs := int(s.lockWaitTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET innodb_lock_wait_timeout = %d", secs)); err != nil {
			return nil, fmt.Errorf("set lock wait timeout: %w", err)
		}
	}

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM customers WHERE customer_id = ? LIMIT 1`, customerID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}

	// Aggregate quantities per product and lock distinct rows in a
	// canonical order. Duplicate product ids in one request must fit the
	// available stock as a sum.
	requested := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}
	slices.Sort(ids)

	type lockedProduct struct {
		name  string
		price decimal.Decimal
		stock int
	}
	locked := make(map[int64]lockedProduct, len(ids))

	for _, id := range ids {
		var p lockedProduct
		err := tx.QueryRowContext(ctx,
			`SELECT name, price, stock FROM products WHERE product_id = ? FOR UPDATE`, id,
		).Scan(&p.name, &p.price, &p.stock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		if err != nil {
			return nil, mapLockErr(fmt.Errorf("lock product %d: %w", id, err))
		}

		if p.stock < requested[id] {
			return nil, &domain.InsufficientStockError{
				ProductID: id,
				Name:      p.name,
				Available: p.stock,
				Requested: requested[id],
			}
		}
		locked[id] = p
	}

	// Totals use the prices read under lock, never caller-supplied values.
	total := decimal.Zero
	for _, item := range items {
		sub := locked[item.ProductID].price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(sub)
	}
	amountPaid := domain.AmountDue(total, method, s.advanceRate)

	now := time.Now()
	orderNumber := domain.NewOrderNumber()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders
			(order_number, customer_id, total_amount, payment_method, amount_paid, payment_status, current_status, order_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		orderNumber, customerID, total, string(method), amountPaid,
		string(domain.PaymentStatusPaid), string(domain.OrderStatusProcessing), now,
	)
	if err != nil {
		return nil, mapLockErr(fmt.Errorf("insert order: %w", err))
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order id: %w", err)
	}

	// One bulk insert for all lines, snapshotting the locked unit price.
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*4)
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		price := locked[item.ProductID].price
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, orderID, item.ProductID, item.Quantity, price)
		lines = append(lines, domain.OrderLine{
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES `+
			strings.Join(placeholders, ", "),
		args...,
	)
	if err != nil {
		return nil, mapLockErr(fmt.Errorf("insert order items: %w", err))
	}

	// Stock was validated above under the same locks; no re-read needed.
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ? WHERE product_id = ?`,
			requested[id], id,
		); err != nil {
			return nil, mapLockErr(fmt.Errorf("decrement stock for product %d: %w", id, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapLockErr(fmt.Errorf("commit order: %w", err))
	}

	return &domain.Order{
		ID:            orderID,
		OrderNumber:   orderNumber,
		CustomerID:    customerID,
		TotalAmount:   total,
		PaymentMethod: method,
		AmountPaid:    amountPaid,
		PaymentStatus: domain.PaymentStatusPaid,
		CurrentStatus: domain.OrderStatusProcessing,
		OrderDate:     now,
		Lines:         lines,
	}, nil
}

// mapLockErr translates InnoDB lock-wait timeouts and deadlock victims to
// the retryable domain error. Both mean the transaction lost a lock race
// and nothing was committed.
func mapLockErr(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == mysqlErrLockWaitTimeout || myErr.Number == mysqlErrDeadlock {
			return fmt.Errorf("%w: %s", domain.ErrLockTimeout, myErr.Message)
		}
	}
	return err
}

func (s *OrderStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, selectOrderSQL+` WHERE order_id = ?`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := s.attachLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.listOrders(ctx, selectOrderSQL+` ORDER BY order_date DESC`)
}

func (s *OrderStore) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return s.listOrders(ctx, selectOrderSQL+` WHERE customer_id = ? ORDER BY order_date DESC`, customerID)
}

func (s *OrderStore) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		if err := s.attachLines(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateOrderStatus applies lifecycle and kitchen status changes. Cancelling
// a paid order flips the payment to refunded; completing stamps the
// completion date. Zero values leave the corresponding field untouched.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, orderID int64, current domain.OrderStatus, kitchen domain.KitchenStatus) (*domain.Order, error) {
	existing, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var sets []string
	var args []any

	if kitchen != "" {
		sets = append(sets, "order_status = ?")
		args = append(args, string(kitchen))
	}
	if current != "" {
		sets = append(sets, "current_status = ?")
		args = append(args, string(current))

		switch current {
		case domain.OrderStatusCompleted:
			sets = append(sets, "completion_date = NOW()")
		case domain.OrderStatusCancelled:
			if existing.PaymentStatus == domain.PaymentStatusPaid {
				sets = append(sets, "payment_status = ?")
				args = append(args, string(domain.PaymentStatusRefunded))
			}
		}
	}
	if len(sets) == 0 {
		return existing, nil
	}

	args = append(args, orderID)
	_, err = s.db.ExecContext(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE order_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

// UpdateAmountPaid settles an outstanding balance. The new amount must stay
// within [0, total]; payment status is forced back to paid.
func (s *OrderStore) UpdateAmountPaid(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Order, error) {
	existing, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if amount.IsNegative() || amount.GreaterThan(existing.TotalAmount) {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("payment amount must be between 0 and %s", existing.TotalAmount.StringFixed(2)),
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE orders SET amount_paid = ?, payment_status = ? WHERE order_id = ?`,
		amount, string(domain.PaymentStatusPaid), orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("update amount paid: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

const selectOrderSQL = `
	SELECT order_id, order_number, customer_id, total_amount, payment_method,
	       amount_paid, payment_status, current_status, order_status,
	       order_date, completion_date
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o          domain.Order
		kitchen    sql.NullString
		completion sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount,
		&o.PaymentMethod, &o.AmountPaid, &o.PaymentStatus, &o.CurrentStatus,
		&kitchen, &o.OrderDate, &completion)
	if err != nil {
		return nil, err
	}
	if kitchen.Valid {
		o.KitchenStatus = domain.KitchenStatus(kitchen.String)
	}
	if completion.Valid {
		o.CompletionDate = &completion.Time
	}
	return &o, nil
}

func (s *OrderStore) attachLines(ctx context.Context, order *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_item_id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = ?`, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	order.Lines = order.Lines[:0]
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Lines = append(order.Lines, l)
	}
	return rows.Err()
}
