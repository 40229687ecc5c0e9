package domain

type CheckoutStatus string

const (
	CheckoutStatusValidating    CheckoutStatus = "VALIDATING"
	CheckoutStatusStockChecking CheckoutStatus = "STOCK_CHECKING"
	CheckoutStatusReserving     CheckoutStatus = "RESERVING"
	CheckoutStatusInvoicing     CheckoutStatus = "INVOICING"
	CheckoutStatusClearingCart  CheckoutStatus = "CLEARING_CART"
	CheckoutStatusCompleted     CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed        CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus]CheckoutStatus{
	CheckoutStatusValidating:    CheckoutStatusStockChecking,
	CheckoutStatusStockChecking: CheckoutStatusReserving,
	CheckoutStatusReserving:     CheckoutStatusInvoicing,
	CheckoutStatusInvoicing:     CheckoutStatusClearingCart,
	CheckoutStatusClearingCart:  CheckoutStatusCompleted,
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo allows only the next step forward, or FAILED from any
// non-terminal step.
func CanTransitionTo(from, to CheckoutStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == CheckoutStatusFailed {
		return true
	}
	return checkoutTransitions[from] == to
}
