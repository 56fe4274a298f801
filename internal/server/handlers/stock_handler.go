package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
	"github.com/phamqv/storefront/internal/service/stock"
)

// StockHandler exposes the stock voucher workflow over HTTP.
type StockHandler struct {
	svc    *stock.Service
	logger *zap.Logger
}

// NewStockHandler constructs the HTTP handler adapter.
func NewStockHandler(svc *stock.Service, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockHandler{svc: svc, logger: logger}
}

type voucherItemRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

type createVoucherRequest struct {
	Type         string               `json:"type" binding:"required"`
	Reason       string               `json:"reason" binding:"required"`
	Items        []voucherItemRequest `json:"items" binding:"required"`
	Notes        string               `json:"notes"`
	RelatedOrder string               `json:"relatedOrder"`
	CreatedBy    string               `json:"createdBy" binding:"required"`
}

// Create opens a pending import or export voucher.
func (h *StockHandler) Create(c *gin.Context) {
	var req createVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid voucher payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	createdBy, ok := parseObjectID(c, req.CreatedBy)
	if !ok {
		return
	}

	input := stock.CreateVoucherInput{
		Type:      models.VoucherType(req.Type),
		Reason:    req.Reason,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}
	if req.RelatedOrder != "" {
		order, ok := parseObjectID(c, req.RelatedOrder)
		if !ok {
			return
		}
		input.RelatedOrder = &order
	}
	for _, item := range req.Items {
		product, ok := parseObjectID(c, item.Product)
		if !ok {
			return
		}
		input.Items = append(input.Items, stock.VoucherItemInput{
			Product:  product,
			Quantity: item.Quantity,
			Note:     item.Note,
		})
	}

	voucher, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": voucher})
}

// Get returns one voucher.
func (h *StockHandler) Get(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	voucher, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

// List returns vouchers, filtered by the type, status and order query
// parameters when present.
func (h *StockHandler) List(c *gin.Context) {
	filter := models.VoucherFilter{
		Type:   models.VoucherType(c.Query("type")),
		Status: models.VoucherStatus(c.Query("status")),
	}
	if raw := c.Query("order"); raw != "" {
		order, ok := parseObjectID(c, raw)
		if !ok {
			return
		}
		filter.Order = &order
	}

	list, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(list), "data": list})
}

type approveVoucherRequest struct {
	ApprovedBy string `json:"approvedBy" binding:"required"`
}

// Approve applies a pending voucher to stock and seals it.
func (h *StockHandler) Approve(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req approveVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid approval payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	approvedBy, ok := parseObjectID(c, req.ApprovedBy)
	if !ok {
		return
	}

	voucher, err := h.svc.Approve(c.Request.Context(), id, approvedBy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

type rejectVoucherRequest struct {
	RejectedBy string `json:"rejectedBy" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

// Reject declines a pending voucher.
func (h *StockHandler) Reject(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req rejectVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rejection payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rejectedBy, ok := parseObjectID(c, req.RejectedBy)
	if !ok {
		return
	}

	voucher, err := h.svc.Reject(c.Request.Context(), id, rejectedBy, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

// Cancel withdraws a pending voucher.
func (h *StockHandler) Cancel(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	voucher, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": voucher})
}

// History returns stock audit entries, filtered by the product, type and
// voucher query parameters when present.
func (h *StockHandler) History(c *gin.Context) {
	filter := models.HistoryFilter{
		Type:          models.VoucherType(c.Query("type")),
		VoucherNumber: c.Query("voucher"),
	}
	if raw := c.Query("product"); raw != "" {
		product, ok := parseObjectID(c, raw)
		if !ok {
			return
		}
		filter.Product = &product
	}

	list, err := h.svc.History(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(list), "data": list})
}
