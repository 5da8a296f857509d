package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrTableNotFound    = errors.New("table not found")

	// ErrLockTimeout means the required row locks could not be acquired in
	// time (or the transaction was picked as a deadlock victim). Nothing was
	// written; the whole operation is safe to retry from scratch.
	ErrLockTimeout = errors.New("lock wait timeout")

	ErrDuplicateRequest = errors.New("duplicate request")
	ErrTableUnavailable = errors.New("table already booked for this time")
)

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.Name, e.Available, e.Requested)
}

// ValidationError rejects malformed input before any storage access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
