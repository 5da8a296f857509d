package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
)

type ReservationStore struct {
	db *sql.DB
}

func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

// BookTable is the single-row variant of the order transaction: the table
// row is locked FOR UPDATE, the slot conflict check runs under that lock,
// and the insert commits or everything rolls back. Two concurrent bookings
// of the same table serialize on the row lock.
func (s *ReservationStore) BookTable(ctx context.Context, res domain.Reservation) (*domain.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var tableID int64
	err = tx.QueryRowContext(ctx,
		`SELECT table_id FROM tables WHERE table_id = ? FOR UPDATE`, res.TableID,
	).Scan(&tableID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTableNotFound
	}
	if err != nil {
		return nil, mapLockErr(fmt.Errorf("lock table: %w", err))
	}

	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE table_id = ? AND reservation_date = ? AND reservation_time = ? AND status != ?`,
		res.TableID, res.ReservationDate, res.ReservationTime, string(domain.ReservationStatusCancelled),
	).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if conflicts > 0 {
		return nil, domain.ErrTableUnavailable
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations
			(table_id, customer_id, customer_name, phone, email, reservation_date,
			 reservation_time, guests, special_requests, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.TableID, res.CustomerID, res.CustomerName, res.Phone, res.Email,
		res.ReservationDate, res.ReservationTime, res.Guests, res.SpecialRequests,
		string(domain.ReservationStatusPending), now,
	)
	if err != nil {
		return nil, mapLockErr(fmt.Errorf("insert reservation: %w", err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reservation id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapLockErr(fmt.Errorf("commit reservation: %w", err))
	}

	res.ID = id
	res.Status = domain.ReservationStatusPending
	res.CreatedAt = now
	return &res, nil
}

func (s *ReservationStore) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reservation_id, table_id, customer_id, customer_name, phone, email,
		       reservation_date, reservation_time, guests, special_requests, status, created_at
		FROM reservations ORDER BY reservation_date DESC, reservation_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var r domain.Reservation
		if err := rows.Scan(&r.ID, &r.TableID, &r.CustomerID, &r.CustomerName, &r.Phone,
			&r.Email, &r.ReservationDate, &r.ReservationTime, &r.Guests,
			&r.SpecialRequests, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (s *ReservationStore) ListAvailableTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_id, table_number, table_type, capacity, description, status
		FROM tables WHERE status = ? ORDER BY table_type, capacity`,
		string(domain.TableStatusAvailable))
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.TableType, &t.Capacity, &t.Description, &t.Status); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
