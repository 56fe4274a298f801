package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
	"github.com/phamqv/storefront/internal/service/orders"
)

// OrderHandler exposes the order lifecycle over HTTP.
type OrderHandler struct {
	svc    *orders.Service
	logger *zap.Logger
}

// NewOrderHandler constructs the HTTP handler adapter.
func NewOrderHandler(svc *orders.Service, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{svc: svc, logger: logger}
}

type orderItemRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	User            string                 `json:"user" binding:"required"`
	Items           []orderItemRequest     `json:"orderItems" binding:"required"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

// Create reserves stock and opens a new order.
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid order payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, ok := parseObjectID(c, req.User)
	if !ok {
		return
	}

	input := orders.CreateOrderInput{
		User:            user,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	for _, item := range req.Items {
		product, ok := parseObjectID(c, item.Product)
		if !ok {
			return
		}
		input.Items = append(input.Items, orders.OrderItemInput{Product: product, Quantity: item.Quantity})
	}

	order, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

// Get returns one order.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

// List returns orders, optionally scoped by the user query parameter.
func (h *OrderHandler) List(c *gin.Context) {
	var user *primitive.ObjectID
	if raw := c.Query("user"); raw != "" {
		id, ok := parseObjectID(c, raw)
		if !ok {
			return
		}
		user = &id
	}

	list, err := h.svc.List(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(list), "data": list})
}

type payOrderRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"updateTime"`
	EmailAddress string `json:"emailAddress"`
	UpdatedBy    string `json:"updatedBy" binding:"required"`
}

// Pay records the payment result on an order.
func (h *OrderHandler) Pay(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req payOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid payment payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updatedBy, ok := parseObjectID(c, req.UpdatedBy)
	if !ok {
		return
	}

	result := models.PaymentResult{
		ID:           req.ID,
		Status:       req.Status,
		UpdateTime:   req.UpdateTime,
		EmailAddress: req.EmailAddress,
	}
	if result.Status == "" {
		result.Status = "PAID"
	}

	order, err := h.svc.MarkPaid(c.Request.Context(), id, result, updatedBy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

type updateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	UpdatedBy string `json:"updatedBy" binding:"required"`
}

// UpdateStatus moves an order along the lifecycle.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid status payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updatedBy, ok := parseObjectID(c, req.UpdatedBy)
	if !ok {
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status), updatedBy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

// Cancel cancels an order and releases its reservations.
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	order, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

type issueVoucherRequest struct {
	CreatedBy string `json:"createdBy" binding:"required"`
}

// IssueExportVoucher opens the shipment voucher for a completed order missing
// one.
func (h *OrderHandler) IssueExportVoucher(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req issueVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid voucher payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	createdBy, ok := parseObjectID(c, req.CreatedBy)
	if !ok {
		return
	}

	voucher, err := h.svc.IssueExportVoucher(c.Request.Context(), id, createdBy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": voucher})
}

type refundOrderRequest struct {
	Reason              string `json:"refundReason" binding:"required"`
	Notes               string `json:"notes"`
	CreateImportVoucher bool   `json:"createImportVoucher"`
	UpdatedBy           string `json:"updatedBy" binding:"required"`
}

// Refund grants a requested refund.
func (h *OrderHandler) Refund(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req refundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refund payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updatedBy, ok := parseObjectID(c, req.UpdatedBy)
	if !ok {
		return
	}

	input := orders.RefundInput{
		Reason:              req.Reason,
		Notes:               req.Notes,
		CreateImportVoucher: req.CreateImportVoucher,
	}

	order, err := h.svc.Refund(c.Request.Context(), id, input, updatedBy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
