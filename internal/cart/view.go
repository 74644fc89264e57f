package cart

// LineView is a cart line prepared for display.
type LineView struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
	LineTotal  float64 `json:"line_total"`
}

// View is the cart panel's render model. Amounts are rounded to cents.
type View struct {
	State       string     `json:"state"`
	CartID      string     `json:"cart_id,omitempty"`
	Lines       []LineView `json:"lines"`
	Count       int        `json:"count"`
	Totals      Totals     `json:"totals"`
	Open        bool       `json:"open"`
	Empty       bool       `json:"empty"`
	CanClear    bool       `json:"can_clear"`
	CanCheckout bool       `json:"can_checkout"`
	Notice      string     `json:"notice,omitempty"`
}

// Snapshot builds the current View.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines := make([]LineView, 0, len(c.lines))
	for _, l := range c.lines {
		lines = append(lines, LineView{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Price:      Round2(l.Price),
			Qty:        l.Qty,
			LineTotal:  Round2(LineTotal(l)),
		})
	}

	hasLines := len(c.lines) > 0
	return View{
		State:       c.state.String(),
		CartID:      c.cartID,
		Lines:       lines,
		Count:       ItemCount(c.lines),
		Totals:      ComputeTotals(c.lines).Rounded(),
		Open:        c.open,
		Empty:       !hasLines,
		CanClear:    hasLines && c.cartID != "",
		CanCheckout: hasLines && c.cartID != "",
		Notice:      c.notice,
	}
}
