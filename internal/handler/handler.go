package handler

import (
	"strconv"
	"time"

	"cantina/internal/config"
	"cantina/internal/service"
	"cantina/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler bundles all service dependencies. Authentication and role checks
// live in upstream middleware; the ids arriving here are already vetted by
// the identity provider.
type Handler struct {
	orderService       *service.OrderService
	creditService      *service.CreditService
	reservationService *service.ReservationService
	inventoryService   *service.InventoryService
	reportService      *service.ReportService
}

func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		orderService:       service.NewOrderService(db, cfg),
		creditService:      service.NewCreditService(db, rdb, cfg),
		reservationService: service.NewReservationService(db, cfg),
		inventoryService:   service.NewInventoryService(db),
		reportService:      service.NewReportService(db),
	}
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// ============================================================
// Orders
// ============================================================

type commitOrderRequest struct {
	UserID        int64               `json:"user_id" binding:"required"`
	PaymentMethod string              `json:"payment_method" binding:"required"`
	Lines         []service.OrderLine `json:"lines" binding:"required"`
	Notes         string              `json:"notes"`
}

// CommitOrder converts a cart into an order.
// POST /api/v1/orders
func (h *Handler) CommitOrder(c *gin.Context) {
	var req commitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	order, err := h.orderService.CommitOrder(c.Request.Context(), &service.CommitOrderRequest{
		UserID:        req.UserID,
		PaymentMethod: req.PaymentMethod,
		Lines:         req.Lines,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder returns an order with its line items.
// GET /api/v1/orders/:orderNo
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := c.Param("orderNo")
	order, err := h.orderService.GetOrder(c.Request.Context(), orderNo)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListUserOrders pages a user's order history.
// GET /api/v1/orders?user_id=xxx&page=1&page_size=10
func (h *Handler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id must be a positive integer")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	orders, total, err := h.orderService.ListUserOrders(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus advances the lifecycle (not cancellation).
// PATCH /api/v1/orders/:orderNo/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}
	if err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("orderNo"), req.Status); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"order_no": c.Param("orderNo"), "status": req.Status})
}

type cancelOrderRequest struct {
	Reason      string `json:"reason" binding:"required"`
	PerformedBy int64  `json:"performed_by" binding:"required"`
}

// CancelOrder cancels a pending/confirmed order with stock restore and
// charge reversal.
// POST /api/v1/orders/:orderNo/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}
	if err := h.orderService.CancelOrder(c.Request.Context(), c.Param("orderNo"), req.Reason, req.PerformedBy); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"order_no": c.Param("orderNo"), "status": "cancelled"})
}

// ============================================================
// Credit
// ============================================================

// CheckCreditAvailability answers whether a credit order of the given size
// would be accepted.
// GET /api/v1/credit/availability?user_id=xxx&amount_cents=xxx
func (h *Handler) CheckCreditAvailability(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id must be a positive integer")
		return
	}
	amount, err := strconv.ParseInt(c.Query("amount_cents"), 10, 64)
	if err != nil {
		response.ParamError(c, "amount_cents must be a positive integer")
		return
	}

	availability, err := h.creditService.CheckAvailability(c.Request.Context(), userID, amount)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, availability)
}

type registerPaymentRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Method      string `json:"method" binding:"required"`
	OrderNo     string `json:"order_no"`
	Notes       string `json:"notes"`
	RecordedBy  int64  `json:"recorded_by" binding:"required"`
}

// RegisterPayment settles debt, optionally against one order.
// POST /api/v1/credit/payments
func (h *Handler) RegisterPayment(c *gin.Context) {
	var req registerPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	payment, err := h.creditService.RegisterPayment(c.Request.Context(), &service.PaymentRequest{
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Method:      req.Method,
		OrderNo:     req.OrderNo,
		Notes:       req.Notes,
		RecordedBy:  req.RecordedBy,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

type adjustDebtRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	PerformedBy int64  `json:"performed_by" binding:"required"`
}

// AdjustDebt applies a signed manual correction.
// POST /api/v1/credit/accounts/:userID/adjust
func (h *Handler) AdjustDebt(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	var req adjustDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.creditService.AdjustDebt(c.Request.Context(), userID, req.AmountCents, req.Reason, req.PerformedBy)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

type enableCreditRequest struct {
	CreditLimitCents int64 `json:"credit_limit_cents"`
}

// EnableCreditAccount activates fiado, 0 limit meaning the default.
// POST /api/v1/credit/accounts/:userID/enable
func (h *Handler) EnableCreditAccount(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	var req enableCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.creditService.EnableCreditAccount(c.Request.Context(), userID, req.CreditLimitCents)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, account)
}

// DisableCreditAccount turns fiado off, keeping any debt on the books.
// POST /api/v1/credit/accounts/:userID/disable
func (h *Handler) DisableCreditAccount(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	account, err := h.creditService.DisableCreditAccount(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, account)
}

type updateLimitRequest struct {
	NewLimitCents int64 `json:"new_limit_cents" binding:"required,gt=0"`
}

// UpdateCreditLimit changes the limit within configured bounds.
// PATCH /api/v1/credit/accounts/:userID/limit
func (h *Handler) UpdateCreditLimit(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	var req updateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.creditService.UpdateCreditLimit(c.Request.Context(), userID, req.NewLimitCents)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, account)
}

// GetStatement returns the account view plus pending orders and recent
// ledger entries.
// GET /api/v1/credit/accounts/:userID/statement
func (h *Handler) GetStatement(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	statement, err := h.creditService.Statement(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, statement)
}

// ListPayments pages a user's payment history.
// GET /api/v1/credit/accounts/:userID/payments?limit=50
func (h *Handler) ListPayments(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	payments, err := h.creditService.ListPayments(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, payments)
}

// LedgerHistory returns the recent ledger entries.
// GET /api/v1/credit/accounts/:userID/ledger?limit=100
func (h *Handler) LedgerHistory(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.creditService.LedgerHistory(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, entries)
}

type setAccountStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetAccountStatus suspends or reactivates an account.
// PATCH /api/v1/credit/accounts/:userID/status
func (h *Handler) SetAccountStatus(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	var req setAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.creditService.SetAccountStatus(c.Request.Context(), userID, req.Status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, account)
}

// ============================================================
// Menus & reservations
// ============================================================

type createMenuRequest struct {
	MenuDate            time.Time  `json:"menu_date" binding:"required"`
	Description         string     `json:"description"`
	PriceCents          int64      `json:"price_cents" binding:"required,gt=0"`
	MaxReservations     *int       `json:"max_reservations"`
	ReservationDeadline *time.Time `json:"reservation_deadline"`
}

// CreateMenu publishes a dated menu.
// POST /api/v1/menus
func (h *Handler) CreateMenu(c *gin.Context) {
	var req createMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	svcReq := &service.CreateMenuRequest{
		MenuDate:        req.MenuDate,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		MaxReservations: req.MaxReservations,
	}
	if req.ReservationDeadline != nil {
		svcReq.ReservationDeadline = *req.ReservationDeadline
	}

	menu, err := h.reservationService.CreateMenu(c.Request.Context(), svcReq)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, menu)
}

// GetMenu returns a menu with its capacity state.
// GET /api/v1/menus/:menuID
func (h *Handler) GetMenu(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	menu, err := h.reservationService.GetMenu(c.Request.Context(), menuID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, menu)
}

// ListMenus lists menus in a date window.
// GET /api/v1/menus?from=2026-08-01&to=2026-08-31&active=true
func (h *Handler) ListMenus(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	onlyActive := c.DefaultQuery("active", "false") == "true"
	menus, err := h.reservationService.ListMenus(c.Request.Context(), from, to, onlyActive)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, menus)
}

// DeactivateMenu takes a menu off sale. Existing reservations stay.
// DELETE /api/v1/menus/:menuID
func (h *Handler) DeactivateMenu(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	if err := h.reservationService.DeactivateMenu(c.Request.Context(), menuID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"menu_id": menuID, "active": false})
}

// CanReserve is the advisory capacity check.
// GET /api/v1/menus/:menuID/availability
func (h *Handler) CanReserve(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	check, err := h.reservationService.CanReserve(c.Request.Context(), menuID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, check)
}

type createReservationRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Notes    string `json:"notes"`
}

// CreateReservation takes spots on a menu.
// POST /api/v1/menus/:menuID/reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	reservation, err := h.reservationService.CreateReservation(c.Request.Context(), menuID, req.UserID, req.Quantity, req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, reservation)
}

type cancelReservationRequest struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// CancelReservation frees the spots before the deadline.
// POST /api/v1/reservations/:reservationID/cancel
func (h *Handler) CancelReservation(c *gin.Context) {
	reservationID, ok := parseID(c, "reservationID")
	if !ok {
		return
	}
	var req cancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.reservationService.CancelReservation(c.Request.Context(), reservationID, req.UserID, req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"reservation_id": reservationID, "status": "cancelled"})
}

// ConfirmReservation moves a reservation pending -> confirmed.
// POST /api/v1/reservations/:reservationID/confirm
func (h *Handler) ConfirmReservation(c *gin.Context) {
	reservationID, ok := parseID(c, "reservationID")
	if !ok {
		return
	}
	if err := h.reservationService.ConfirmReservation(c.Request.Context(), reservationID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"reservation_id": reservationID, "status": "confirmed"})
}

// DeliverReservation moves a reservation confirmed -> delivered.
// POST /api/v1/reservations/:reservationID/deliver
func (h *Handler) DeliverReservation(c *gin.Context) {
	reservationID, ok := parseID(c, "reservationID")
	if !ok {
		return
	}
	if err := h.reservationService.DeliverReservation(c.Request.Context(), reservationID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"reservation_id": reservationID, "status": "delivered"})
}

// ListMenuReservations lists a menu's reservations.
// GET /api/v1/menus/:menuID/reservations
func (h *Handler) ListMenuReservations(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	reservations, err := h.reservationService.ListReservations(c.Request.Context(), menuID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, reservations)
}

// ListUserReservations lists a user's recent reservations.
// GET /api/v1/reservations?user_id=xxx&limit=50
func (h *Handler) ListUserReservations(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id must be a positive integer")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	reservations, err := h.reservationService.ListUserReservations(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, reservations)
}

type updateCapacityRequest struct {
	NewMax int `json:"new_max" binding:"required,gt=0"`
}

// UpdateCapacity resizes the menu and promotes the waitlist when spots open.
// PATCH /api/v1/menus/:menuID/capacity
func (h *Handler) UpdateCapacity(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	var req updateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	update, err := h.reservationService.UpdateCapacity(c.Request.Context(), menuID, req.NewMax)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, update)
}

type joinWaitlistRequest struct {
	UserID   int64 `json:"user_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,gt=0"`
}

// JoinWaitlist queues the user for a full menu.
// POST /api/v1/menus/:menuID/waitlist
func (h *Handler) JoinWaitlist(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	var req joinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	entry, err := h.reservationService.JoinWaitlist(c.Request.Context(), menuID, req.UserID, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, entry)
}

// LeaveWaitlist removes the user's live entries from a menu's waitlist.
// DELETE /api/v1/menus/:menuID/waitlist?user_id=xxx
func (h *Handler) LeaveWaitlist(c *gin.Context) {
	menuID, ok := parseID(c, "menuID")
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id must be a positive integer")
		return
	}

	if err := h.reservationService.LeaveWaitlist(c.Request.Context(), menuID, userID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"menu_id": menuID, "user_id": userID, "status": "removed"})
}

// ============================================================
// Inventory
// ============================================================

type createItemRequest struct {
	Name           string `json:"name" binding:"required"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"required,gt=0"`
	InitialStock   int    `json:"initial_stock"`
	MinThreshold   int    `json:"min_threshold"`
}

// CreateItem adds a catalog item.
// POST /api/v1/stock-items
func (h *Handler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), &service.CreateItemRequest{
		Name:           req.Name,
		Category:       req.Category,
		UnitPriceCents: req.UnitPriceCents,
		InitialStock:   req.InitialStock,
		MinThreshold:   req.MinThreshold,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, item)
}

// ListItems lists the catalog.
// GET /api/v1/stock-items?available=true
func (h *Handler) ListItems(c *gin.Context) {
	onlyAvailable := c.DefaultQuery("available", "false") == "true"
	items, err := h.inventoryService.ListItems(c.Request.Context(), onlyAvailable)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, items)
}

// GetItem returns one catalog item.
// GET /api/v1/stock-items/:itemID
func (h *Handler) GetItem(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}
	item, err := h.inventoryService.GetItem(c.Request.Context(), itemID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, item)
}

type updateItemRequest struct {
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	MinThreshold   int    `json:"min_threshold"`
}

// UpdateItem edits name, price or reorder point. Committed orders keep
// their price snapshots.
// PATCH /api/v1/stock-items/:itemID
func (h *Handler) UpdateItem(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.inventoryService.UpdateItem(c.Request.Context(), itemID, req.Name, req.UnitPriceCents, req.MinThreshold); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"item_id": itemID})
}

type setAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// SetItemAvailability puts an item on or off sale without touching stock.
// PATCH /api/v1/stock-items/:itemID/availability
func (h *Handler) SetItemAvailability(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}
	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.inventoryService.SetAvailability(c.Request.Context(), itemID, *req.Available); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"item_id": itemID, "available": *req.Available})
}

// ListMovements returns an item's audit trail.
// GET /api/v1/stock-items/:itemID/movements?limit=50
func (h *Handler) ListMovements(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	movements, err := h.inventoryService.ListMovements(c.Request.Context(), itemID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, movements)
}

type adjustStockRequest struct {
	Delta int    `json:"delta" binding:"required"`
	Note  string `json:"note"`
}

// AdjustStock applies a signed manual correction with audit.
// POST /api/v1/stock-items/:itemID/adjust
func (h *Handler) AdjustStock(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	item, err := h.inventoryService.AdjustStock(c.Request.Context(), itemID, req.Delta, req.Note)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, item)
}

// LowStock lists items at or under their reorder point.
// GET /api/v1/stock-items/low
func (h *Handler) LowStock(c *gin.Context) {
	items, err := h.inventoryService.LowStockItems(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, items)
}

// ============================================================
// Reports
// ============================================================

// DebtReport lists debtors with totals.
// GET /api/v1/reports/debtors?min_debt_cents=0
func (h *Handler) DebtReport(c *gin.Context) {
	minDebt, _ := strconv.ParseInt(c.DefaultQuery("min_debt_cents", "0"), 10, 64)
	report, err := h.reportService.Debtors(c.Request.Context(), minDebt)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, report)
}

// MonthlyCreditSummary aggregates one month of ledger activity.
// GET /api/v1/reports/monthly-credit?year=2026&month=8
func (h *Handler) MonthlyCreditSummary(c *gin.Context) {
	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))

	summary, err := h.reportService.MonthlyCreditSummary(c.Request.Context(), year, time.Month(month))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"period":  gin.H{"year": year, "month": month},
		"summary": summary,
	})
}

// OrderStatsReport aggregates orders for a date window.
// GET /api/v1/reports/orders?from=2026-08-01&to=2026-08-31
func (h *Handler) OrderStatsReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	stats, err := h.reportService.OrderStats(c.Request.Context(), from, to)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, stats)
}

// MenuDemandReport aggregates reservations and waitlist depth per menu.
// GET /api/v1/reports/demand?from=2026-08-01&to=2026-08-31
func (h *Handler) MenuDemandReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	demand, err := h.reportService.MenuDemand(c.Request.Context(), from, to)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, demand)
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.ParamError(c, "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.ParamError(c, "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to.AddDate(0, 0, 1), true
}
