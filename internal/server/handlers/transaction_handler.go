package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/domain/models"
	"github.com/phamqv/storefront/internal/service/transactions"
)

// TransactionHandler exposes the financial ledger read surface. Entries are
// written only by the services; there is no create endpoint.
type TransactionHandler struct {
	svc    *transactions.Service
	logger *zap.Logger
}

// NewTransactionHandler constructs the HTTP handler adapter.
func NewTransactionHandler(svc *transactions.Service, logger *zap.Logger) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionHandler{svc: svc, logger: logger}
}

// List returns ledger entries, filtered by the type, category, start and end
// query parameters when present. Dates are RFC 3339 or plain YYYY-MM-DD.
func (h *TransactionHandler) List(c *gin.Context) {
	filter := models.TransactionFilter{
		Type:     models.TransactionType(c.Query("type")),
		Category: c.Query("category"),
	}

	start, ok := parseDateQuery(c, "start")
	if !ok {
		return
	}
	end, ok := parseDateQuery(c, "end")
	if !ok {
		return
	}
	filter.Start = start
	filter.End = end

	list, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(list), "data": list})
}

// Summary aggregates the ledger over the requested period, defaulting to the
// current day.
func (h *TransactionHandler) Summary(c *gin.Context) {
	start, ok := parseDateQuery(c, "start")
	if !ok {
		return
	}
	end, ok := parseDateQuery(c, "end")
	if !ok {
		return
	}

	if start == nil {
		day := time.Now().Truncate(24 * time.Hour)
		start = &day
	}
	if end == nil {
		next := start.Add(24 * time.Hour)
		end = &next
	}

	summary, err := h.svc.Summary(c.Request.Context(), *start, *end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// parseDateQuery reads an optional date query parameter, writing the 400
// response itself on a malformed value.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " date"})
	return nil, false
}
