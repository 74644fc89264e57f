package event

import "time"

const (
	StorefrontTopic  = "storefront.orders"
	EventOrderPlaced = "storefront.order.placed"
	EventCartCleared = "storefront.cart.cleared"
)

// OrderPlacedEvent is published after the backend accepted an order for the
// storefront's cart.
type OrderPlacedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	OrderID    string    `json:"order_id,omitempty"`
	CartID     string    `json:"cart_id"`
	Total      float64   `json:"total"`
	ItemCount  int       `json:"item_count"`

	// Client side estimate at the time of checkout, for reconciliation only.
	EstimatedTotal float64 `json:"estimated_total"`
}

// CartClearedEvent records that the storefront emptied its cart, either after
// checkout or on explicit request.
type CartClearedEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	CartID       string    `json:"cart_id"`
	AfterOrderID string    `json:"after_order_id,omitempty"`
}
