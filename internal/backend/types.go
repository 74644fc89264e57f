package backend

import "fmt"

// MenuItem is a dish offered by the restaurant backend.
type MenuItem struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
}

// CartLine is one menu item inside a cart with a snapshot of its name and unit price.
type CartLine struct {
	MenuItemID string  `json:"menuItem"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
}

// Cart is the canonical cart as returned by the backend.
type Cart struct {
	ID    string     `json:"_id"`
	Items []CartLine `json:"items"`
}

// Order is the result of placing an order for a cart. Total is computed server side.
type Order struct {
	ID     string  `json:"_id"`
	Total  float64 `json:"total"`
	Status string  `json:"status,omitempty"`
}

type adjustQuantityRequest struct {
	MenuItemID string `json:"menuItemId"`
	QtyDelta   int    `json:"qtyDelta"`
}

type placeOrderRequest struct {
	CartID string `json:"cartId"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// Validate checks the line invariants of a canonical cart: every quantity is
// positive and each menu item appears at most once.
func (c *Cart) Validate() error {
	seen := make(map[string]struct{}, len(c.Items))
	for _, line := range c.Items {
		if line.Qty < 1 {
			return fmt.Errorf("line %s has non-positive quantity %d", line.MenuItemID, line.Qty)
		}
		if _, dup := seen[line.MenuItemID]; dup {
			return fmt.Errorf("menu item %s appears more than once", line.MenuItemID)
		}
		seen[line.MenuItemID] = struct{}{}
	}
	return nil
}

// Lines returns the cart lines, never nil.
func (c *Cart) Lines() []CartLine {
	if c == nil || c.Items == nil {
		return []CartLine{}
	}
	return c.Items
}
