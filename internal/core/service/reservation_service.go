package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/port"
	"github.com/minhvu2510/resto-ordering/pkg/metrics"
)

type ReservationService struct {
	store   port.ReservationRepository
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewReservationService(store port.ReservationRepository, m *metrics.Metrics, log *zap.Logger) *ReservationService {
	return &ReservationService{store: store, metrics: m, log: log}
}

func (s *ReservationService) BookTable(ctx context.Context, res domain.Reservation) (*domain.Reservation, error) {
	if res.TableID <= 0 || res.CustomerID <= 0 || res.CustomerName == "" || res.Phone == "" ||
		res.ReservationDate == "" || res.ReservationTime == "" || res.Guests <= 0 {
		return nil, &domain.ValidationError{
			Reason: "table id, customer id, name, phone, date, time and guests are required",
		}
	}

	booked, err := s.store.BookTable(ctx, res)
	if err != nil {
		return nil, err
	}

	s.metrics.ReservationsMade.Inc()
	s.log.Info("table booked",
		zap.Int64("reservation_id", booked.ID),
		zap.Int64("table_id", booked.TableID),
		zap.String("date", booked.ReservationDate),
		zap.String("time", booked.ReservationTime),
	)
	return booked, nil
}

func (s *ReservationService) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	return s.store.ListReservations(ctx)
}

func (s *ReservationService) ListAvailableTables(ctx context.Context) ([]domain.Table, error) {
	return s.store.ListAvailableTables(ctx)
}
