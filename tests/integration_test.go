package tests

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/minhvu2510/resto-ordering/internal/adapter/storage"
	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/port"
)

type testEnv struct {
	db         *sql.DB
	store      *storage.OrderStore
	customerID int64
	cleanup    func()
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/restaurant?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	db.SetMaxOpenConns(50)

	ctx := context.Background()
	result, err := db.ExecContext(ctx, `
		INSERT INTO customers (customer_name, email) VALUES ('integration tester', 'it@test.local')`)
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	customerID, _ := result.LastInsertId()

	return &testEnv{
		db:         db,
		store:      storage.NewOrderStore(db, decimal.RequireFromString("0.30"), 5*time.Second),
		customerID: customerID,
		cleanup: func() {
			db.ExecContext(ctx, `DELETE oi FROM order_items oi JOIN orders o ON oi.order_id = o.order_id WHERE o.customer_id = ?`, customerID)
			db.ExecContext(ctx, `DELETE FROM orders WHERE customer_id = ?`, customerID)
			db.ExecContext(ctx, `DELETE FROM customers WHERE customer_id = ?`, customerID)
			db.Close()
		},
	}
}

func (env *testEnv) seedProduct(t *testing.T, name, price string, stock int) int64 {
	t.Helper()

	result, err := env.db.ExecContext(context.Background(), `
		INSERT INTO products (name, description, category, price, stock)
		VALUES (?, '', 'integration', ?, ?)`, name, price, stock)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	id, _ := result.LastInsertId()

	t.Cleanup(func() {
		env.db.ExecContext(context.Background(), `DELETE FROM order_items WHERE product_id = ?`, id)
		env.db.ExecContext(context.Background(), `DELETE FROM products WHERE product_id = ?`, id)
	})
	return id
}

func (env *testEnv) stock(t *testing.T, productID int64) int {
	t.Helper()
	var stock int
	if err := env.db.QueryRowContext(context.Background(),
		`SELECT stock FROM products WHERE product_id = ?`, productID).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func (env *testEnv) orderCount(t *testing.T) int {
	t.Helper()
	var count int
	if err := env.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM orders WHERE customer_id = ?`, env.customerID).Scan(&count); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func TestIntegration_FullPaymentDepletesStock(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()

	productID := env.seedProduct(t, "it-margherita", "10.00", 5)

	order, err := env.store.PlaceOrder(ctx, env.customerID,
		[]port.LineItem{{ProductID: productID, Quantity: 5}}, domain.PaymentMethodFull)
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if order.TotalAmount.StringFixed(2) != "50.00" {
		t.Errorf("expected total 50.00, got %s", order.TotalAmount.StringFixed(2))
	}
	if order.AmountPaid.StringFixed(2) != "50.00" {
		t.Errorf("expected amount paid 50.00, got %s", order.AmountPaid.StringFixed(2))
	}
	if got := env.stock(t, productID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}

	// Sold out: one more unit must fail with full detail.
	_, err = env.store.PlaceOrder(ctx, env.customerID,
		[]port.LineItem{{ProductID: productID, Quantity: 1}}, domain.PaymentMethodFull)

	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if insufficient.Available != 0 || insufficient.Requested != 1 {
		t.Errorf("unexpected detail: %+v", insufficient)
	}
	if got := env.stock(t, productID); got != 0 {
		t.Errorf("failed order changed stock: %d", got)
	}
}

func TestIntegration_AdvancePayment(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	productID := env.seedProduct(t, "it-carbonara", "10.00", 10)

	order, err := env.store.PlaceOrder(context.Background(), env.customerID,
		[]port.LineItem{{ProductID: productID, Quantity: 3}}, domain.PaymentMethodAdvance)
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if order.TotalAmount.StringFixed(2) != "30.00" {
		t.Errorf("expected total 30.00, got %s", order.TotalAmount.StringFixed(2))
	}
	if order.AmountPaid.StringFixed(2) != "9.00" {
		t.Errorf("expected amount paid 9.00, got %s", order.AmountPaid.StringFixed(2))
	}

	// Total must equal the sum of line subtotals in the database.
	var lineTotal string
	err = env.db.QueryRowContext(context.Background(), `
		SELECT CAST(SUM(quantity * unit_price) AS CHAR)
		FROM order_items WHERE order_id = ?`, order.ID).Scan(&lineTotal)
	if err != nil {
		t.Fatalf("sum lines: %v", err)
	}
	if !decimal.RequireFromString(lineTotal).Equal(order.TotalAmount) {
		t.Errorf("line sum %s != total %s", lineTotal, order.TotalAmount)
	}
}

func TestIntegration_UnknownProductRollsBackEverything(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	productID := env.seedProduct(t, "it-tiramisu", "6.00", 4)
	ordersBefore := env.orderCount(t)

	_, err := env.store.PlaceOrder(context.Background(), env.customerID, []port.LineItem{
		{ProductID: productID, Quantity: 2},
		{ProductID: 99999999, Quantity: 1},
	}, domain.PaymentMethodFull)

	var notFound *domain.ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError, got: %v", err)
	}

	// The valid line must not have left any trace.
	if got := env.stock(t, productID); got != 4 {
		t.Errorf("rollback leaked stock change: %d", got)
	}
	if got := env.orderCount(t); got != ordersBefore {
		t.Errorf("rollback leaked order rows: %d -> %d", ordersBefore, got)
	}
}

func TestIntegration_UnknownCustomer(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	productID := env.seedProduct(t, "it-focaccia", "3.00", 4)

	_, err := env.store.PlaceOrder(context.Background(), 999999999,
		[]port.LineItem{{ProductID: productID, Quantity: 1}}, domain.PaymentMethodFull)
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got: %v", err)
	}
	if got := env.stock(t, productID); got != 4 {
		t.Errorf("stock changed on failed order: %d", got)
	}
}

// Two concurrent orders both requesting the entire remaining stock:
// exactly one commits, the loser fails on the re-read under lock.
func TestIntegration_ConcurrentFullStockOrders(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()

	productID := env.seedProduct(t, "it-lasagna", "15.00", 5)

	var success, stockFail atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := env.store.PlaceOrder(ctx, env.customerID,
				[]port.LineItem{{ProductID: productID, Quantity: 5}}, domain.PaymentMethodFull)

			var insufficient *domain.InsufficientStockError
			switch {
			case err == nil:
				success.Add(1)
			case errors.As(err, &insufficient):
				stockFail.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success.Load() != 1 || stockFail.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d successes and %d stock failures",
			success.Load(), stockFail.Load())
	}
	if got := env.stock(t, productID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

// Many concurrent single-unit orders against a small stock: commits equal
// the initial stock and the stock never goes negative.
func TestIntegration_StockConservationUnderLoad(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()

	const initialStock = 10
	const totalRequests = 25
	productID := env.seedProduct(t, "it-gnocchi", "8.00", initialStock)

	var success atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := env.store.PlaceOrder(ctx, env.customerID,
				[]port.LineItem{{ProductID: productID, Quantity: 1}}, domain.PaymentMethodFull)
			if err == nil {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	if success.Load() != initialStock {
		t.Errorf("expected %d commits, got %d", initialStock, success.Load())
	}
	if got := env.stock(t, productID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}
