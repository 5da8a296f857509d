package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/minhvu2510/resto-ordering/internal/adapter/storage"
	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/port"
)

// Fires concurrent single-unit orders at one product and verifies that
// exactly initialStock of them commit, the rest fail on stock, and the
// final stock is zero. Run against a scratch database.
const (
	initialStock  = 20
	totalRequests = 50
	customerID    = 9001
)

func main() {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/restaurant?parseTime=true"
	}

	ctx := context.Background()

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(totalRequests + 5)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	// Seed customer and product
	if _, err := db.ExecContext(ctx, `
		INSERT INTO customers (customer_id, customer_name, email)
		VALUES (?, 'stress tester', 'stress@test.local')
		ON DUPLICATE KEY UPDATE customer_name = customer_name`, customerID); err != nil {
		log.Fatalf("failed to seed customer: %v", err)
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO products (name, description, category, price, stock)
		VALUES ('stress-test-dish', '', 'stress', 10.00, ?)`, initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	productID, _ := result.LastInsertId()
	defer func() {
		db.ExecContext(ctx, `DELETE FROM order_items WHERE product_id = ?`, productID)
		db.ExecContext(ctx, `DELETE FROM orders WHERE customer_id = ?`, customerID)
		db.ExecContext(ctx, `DELETE FROM products WHERE product_id = ?`, productID)
	}()

	store := storage.NewOrderStore(db, decimal.RequireFromString("0.30"), 5*time.Second)

	var successCount, stockFailCount, otherFailCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := store.PlaceOrder(ctx, customerID,
				[]port.LineItem{{ProductID: productID, Quantity: 1}},
				domain.PaymentMethodFull)
			if err == nil {
				successCount.Add(1)
				return
			}
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				stockFailCount.Add(1)
			} else {
				log.Printf("unexpected failure: %v", err)
				otherFailCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	var finalStock int
	db.QueryRowContext(ctx, `SELECT stock FROM products WHERE product_id = ?`, productID).Scan(&finalStock)

	success := successCount.Load()
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:     %d\n", initialStock)
	fmt.Printf("Total Requests:    %d\n", totalRequests)
	fmt.Printf("Committed:         %d\n", success)
	fmt.Printf("Stock Failures:    %d\n", stockFailCount.Load())
	fmt.Printf("Other Failures:    %d\n", otherFailCount.Load())
	fmt.Printf("Final Stock:       %d\n", finalStock)
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && finalStock == 0 && otherFailCount.Load() == 0 {
		fmt.Println("PASS: stock conserved, no oversell")
	} else {
		fmt.Printf("FAIL: expected %d commits and final stock 0\n", initialStock)
		os.Exit(1)
	}
}
