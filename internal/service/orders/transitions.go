package orders

import "github.com/phamqv/storefront/internal/domain/models"

type transitionKey struct {
	from models.OrderStatus
	to   models.OrderStatus
}

// allowedTransitions is the single authoritative edge set of the order state
// machine. A pair absent from the map is rejected; there are no self-edges.
//
//	pending -> processing -> completed
//	completed -> refund_requested -> refunded
//	cancelled reachable from every non-terminal, non-completed state
var allowedTransitions = map[transitionKey]struct{}{
	{models.OrderStatusPending, models.OrderStatusProcessing}: {},
	{models.OrderStatusPending, models.OrderStatusCompleted}:  {},
	{models.OrderStatusPending, models.OrderStatusCancelled}:  {},

	{models.OrderStatusProcessing, models.OrderStatusCompleted}: {},
	{models.OrderStatusProcessing, models.OrderStatusCancelled}: {},

	{models.OrderStatusCompleted, models.OrderStatusRefundRequested}: {},

	// A requested refund can be granted, withdrawn back to completed, or the
	// whole order cancelled.
	{models.OrderStatusRefundRequested, models.OrderStatusRefunded}:  {},
	{models.OrderStatusRefundRequested, models.OrderStatusCompleted}: {},
	{models.OrderStatusRefundRequested, models.OrderStatusCancelled}: {},
}

// transitionAllowed reports whether the edge from -> to exists.
func transitionAllowed(from, to models.OrderStatus) bool {
	_, ok := allowedTransitions[transitionKey{from: from, to: to}]
	return ok
}

// requiresPayment reports whether entering the given status is restricted to
// paid orders.
func requiresPayment(to models.OrderStatus) bool {
	switch to {
	case models.OrderStatusProcessing, models.OrderStatusRefundRequested, models.OrderStatusRefunded:
		return true
	}
	return false
}
