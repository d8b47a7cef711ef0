// Package domain provides the purchase order state machine.
package domain

// Purchase order statuses, in lifecycle order. Closed and cancelled are terminal.
const (
	StatusApprovedByClient     = "approved_by_client"
	StatusPurchaseOrderCreated = "purchase_order_created"
	StatusPaymentPending       = "payment_pending"
	StatusPaymentReceived      = "payment_received"
	StatusSupplierConfirmed    = "supplier_confirmed"
	StatusInTransit            = "in_transit"
	StatusDelivered            = "delivered"
	StatusClosed               = "closed"
	StatusCancelled            = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

var statusOrder = []string{
	StatusApprovedByClient,
	StatusPurchaseOrderCreated,
	StatusPaymentPending,
	StatusPaymentReceived,
	StatusSupplierConfirmed,
	StatusInTransit,
	StatusDelivered,
	StatusClosed,
}

// StatusIndex returns a status's position in the lifecycle order, or -1.
// cancelled is outside the order.
func StatusIndex(status string) int {
	for i, s := range statusOrder {
		if s == status {
			return i
		}
	}
	return -1
}

// IsKnownStatus reports whether status is a valid purchase order status.
func IsKnownStatus(status string) bool {
	return status == StatusCancelled || StatusIndex(status) >= 0
}

// IsTerminal reports whether no transition may leave the status.
func IsTerminal(status string) bool {
	return status == StatusClosed || status == StatusCancelled
}

// ValidateTransition checks a status move. Only the immediate successor in
// the lifecycle order is allowed; cancelled is reachable from any non-terminal
// status. Returns a non-empty reason when the move is invalid.
func ValidateTransition(from, to string) string {
	if !IsKnownStatus(to) {
		return "unknown status: " + to
	}
	if IsTerminal(from) {
		return "purchase order is " + from
	}
	if to == StatusCancelled {
		return ""
	}
	fromIdx, toIdx := StatusIndex(from), StatusIndex(to)
	if toIdx != fromIdx+1 {
		return "only the next status in order or cancellation is allowed"
	}
	return ""
}
