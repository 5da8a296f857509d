package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/core/service"
	"github.com/minhvu2510/resto-ordering/internal/port"
)

type HTTPHandler struct {
	orders       *service.OrderService
	reservations *service.ReservationService
	catalog      *service.CatalogService
	log          *zap.Logger
}

func NewHTTPHandler(orders *service.OrderService, reservations *service.ReservationService, catalog *service.CatalogService, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{orders: orders, reservations: reservations, catalog: catalog, log: log}
}

// Register wires every route onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/order/place", h.PlaceOrder)
	mux.HandleFunc("/api/order/all", h.ListOrders)
	mux.HandleFunc("/api/order/customer", h.ListCustomerOrders)
	mux.HandleFunc("/api/order/status", h.UpdateOrderStatus)
	mux.HandleFunc("/api/order/payment", h.UpdateAmountPaid)
	mux.HandleFunc("/api/product/list", h.ListProducts)
	mux.HandleFunc("/api/product/get", h.GetProduct)
	mux.HandleFunc("/api/book", h.BookTable)
	mux.HandleFunc("/api/reservations", h.ListReservations)
	mux.HandleFunc("/api/get_tables", h.ListTables)
}

type lineItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type placeOrderRequest struct {
	RequestID     string            `json:"request_id"`
	CustomerID    int64             `json:"customer_id"`
	Items         []lineItemRequest `json:"items"`
	PaymentMethod string            `json:"payment_method"`
}

type placeOrderResponse struct {
	Success       bool   `json:"success"`
	OrderID       int64  `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	TotalAmount   string `json:"total_amount"`
	AmountPaid    string `json:"amount_paid"`
	PaymentMethod string `json:"payment_method"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]port.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, port.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderInput{
		RequestID:     req.RequestID,
		CustomerID:    req.CustomerID,
		Items:         items,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		Success:       true,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		AmountPaid:    order.AmountPaid.StringFixed(2),
		PaymentMethod: string(order.PaymentMethod),
	})
}

type orderLineResponse struct {
	ItemID    int64  `json:"item_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	OrderID       int64               `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    int64               `json:"customer_id"`
	OrderDate     string              `json:"order_date"`
	TotalAmount   string              `json:"total_amount"`
	AmountPaid    string              `json:"amount_paid"`
	Balance       string              `json:"balance"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus string              `json:"payment_status"`
	CurrentStatus string              `json:"current_status"`
	OrderStatus   string              `json:"order_status,omitempty"`
	Items         []orderLineResponse `json:"items"`
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		OrderDate:     o.OrderDate.Format("2006-01-02 15:04:05"),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		AmountPaid:    o.AmountPaid.StringFixed(2),
		Balance:       o.Balance().StringFixed(2),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		CurrentStatus: string(o.CurrentStatus),
		OrderStatus:   string(o.KitchenStatus),
		Items:         make([]orderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Items = append(resp.Items, orderLineResponse{
			ItemID:    l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return resp
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeOrderList(w, orders)
}

func (h *HTTPHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid customer id is required")
		return
	}

	orders, err := h.orders.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeOrderList(w, orders)
}

func writeOrderList(w http.ResponseWriter, orders []domain.Order) {
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateStatusRequest struct {
	OrderID       int64  `json:"order_id"`
	CurrentStatus string `json:"current_status"`
	OrderStatus   string `json:"order_status"`
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), req.OrderID,
		domain.OrderStatus(req.CurrentStatus), domain.KitchenStatus(req.OrderStatus))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

type updatePaymentRequest struct {
	OrderID    int64  `json:"order_id"`
	AmountPaid string `json:"amount_paid"`
}

func (h *HTTPHandler) UpdateAmountPaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.AmountPaid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment amount")
		return
	}

	order, err := h.orders.UpdateAmountPaid(r.Context(), req.OrderID, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

type productResponse struct {
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
	}
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	productID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "valid product id is required")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

type bookTableRequest struct {
	TableID         int64  `json:"table_id"`
	CustomerID      int64  `json:"customer_id"`
	CustomerName    string `json:"customer_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ReservationDate string `json:"reservation_date"`
	ReservationTime string `json:"reservation_time"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

func (h *HTTPHandler) BookTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booked, err := h.reservations.BookTable(r.Context(), domain.Reservation{
		TableID:         req.TableID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		Email:           req.Email,
		ReservationDate: req.ReservationDate,
		ReservationTime: req.ReservationTime,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"message":        "table booked successfully",
		"reservation_id": booked.ID,
	})
}

func (h *HTTPHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reservations, err := h.reservations.ListReservations(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *HTTPHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tables, err := h.reservations.ListAvailableTables(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps the error taxonomy to HTTP statuses. Lock timeouts
// are 503 so clients know the whole operation is safe to retry.
func (h *HTTPHandler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation   *domain.ValidationError
		notFound     *domain.ProductNotFoundError
		insufficient *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Reason)
	case errors.Is(err, domain.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer not found")
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrTableNotFound):
		writeError(w, http.StatusNotFound, "table not found")
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusBadRequest, insufficient.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate request")
	case errors.Is(err, domain.ErrTableUnavailable):
		writeError(w, http.StatusBadRequest, "table already booked for this time")
	case errors.Is(err, domain.ErrLockTimeout):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		h.log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
