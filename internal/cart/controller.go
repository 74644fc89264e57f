package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/lastbite/internal/backend"
	"github.com/appetiteclub/lastbite/pkg/event"
	"github.com/google/uuid"
)

// ErrCheckoutDisabled is returned when checkout is requested for a cart with no lines.
var ErrCheckoutDisabled = errors.New("checkout is disabled for an empty cart")

const (
	noticeAdd      = "Failed to add item. Please try again."
	noticeQuantity = "Failed to update quantity. Please try again."
	noticeRemove   = "Failed to remove item. Please try again."
	noticeClear    = "Failed to clear cart. Please try again."
)

// State is the lifecycle state of a Controller.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Receipt is what a successful checkout hands back to the shopper.
type Receipt struct {
	Order    backend.Order `json:"order"`
	Estimate Totals        `json:"estimate"`
	Message  string        `json:"message"`
}

// ControllerDeps holds the collaborators of a Controller. Store and Publisher are optional.
type ControllerDeps struct {
	Client    backend.CartClient
	Store     IDStore
	Publisher events.Publisher
}

// Controller owns the storefront's cart. The backend is authoritative: after
// every successful mutation the local lines are replaced by the cart the
// backend returned.
//
// Mutating calls go through a single lane held for the whole round trip, so
// responses are applied in the order the calls were made. Reads never wait on
// the lane.
type Controller struct {
	client    backend.CartClient
	store     IDStore
	publisher events.Publisher
	logger    apt.Logger

	lane sync.Mutex

	mu         sync.RWMutex
	state      State
	cartID     string
	lines      []backend.CartLine
	open       bool
	notice     string
	closed     bool
	cancelInit context.CancelFunc
}

func NewController(deps ControllerDeps, logger apt.Logger) *Controller {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	store := deps.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Controller{
		client:    deps.Client,
		store:     store,
		publisher: deps.Publisher,
		logger:    logger,
		state:     StateUninitialized,
		lines:     []backend.CartLine{},
	}
}

// Init resolves the cart identifier and loads the cart. It never fails: any
// problem is logged and the controller ends up Ready with an empty cart.
func (c *Controller) Init(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateUninitialized {
		c.mu.Unlock()
		return
	}
	c.state = StateInitializing
	ctx, cancel := context.WithCancel(ctx)
	c.cancelInit = cancel
	c.mu.Unlock()
	defer cancel()

	c.lane.Lock()
	defer c.lane.Unlock()

	cartID, found, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error("cannot read persisted cart id, starting a new cart", "error", err)
		found = false
	}

	if !found {
		cartID, err = c.startFresh(ctx)
		if err != nil {
			c.logger.Error("cart initialization failed", "error", err)
			c.finishInit(ctx, "", nil)
			return
		}
	}

	cart, err := c.client.FetchCart(ctx, cartID)
	if found && errors.Is(err, backend.ErrNotFound) {
		c.logger.Info("persisted cart unknown to backend, starting fresh", "cart_id", cartID)
		cartID, err = c.startFresh(ctx)
		if err != nil {
			c.logger.Error("cart initialization failed", "error", err)
			c.finishInit(ctx, "", nil)
			return
		}
		cart, err = c.client.FetchCart(ctx, cartID)
	}
	if err != nil {
		c.logger.Error("cannot load cart, continuing with an empty cart", "cart_id", cartID, "error", err)
		c.finishInit(ctx, cartID, nil)
		return
	}

	c.finishInit(ctx, cartID, cart.Lines())
	c.logger.Info("cart ready", "cart_id", cartID, "lines", len(cart.Lines()))
}

func (c *Controller) startFresh(ctx context.Context) (string, error) {
	cartID, err := c.client.CreateCart(ctx)
	if err != nil {
		return "", fmt.Errorf("create cart: %w", err)
	}
	if err := c.store.Save(ctx, cartID); err != nil {
		c.logger.Error("cannot persist cart id", "cart_id", cartID, "error", err)
	}
	return cartID, nil
}

func (c *Controller) finishInit(ctx context.Context, cartID string, lines []backend.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || ctx.Err() != nil {
		c.logger.Debug("discarding cart initialization result", "cart_id", cartID)
		return
	}
	c.cartID = cartID
	c.lines = copyLines(lines)
	c.state = StateReady
}

// Close tears the controller down. Responses still in flight are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancelInit != nil {
		c.cancelInit()
	}
}

// Add puts one more unit of the menu item in the cart.
func (c *Controller) Add(ctx context.Context, menuItemID string) error {
	if c.CartID() == "" {
		return nil
	}

	c.lane.Lock()
	defer c.lane.Unlock()

	cartID := c.CartID()
	if cartID == "" {
		return nil
	}
	cart, err := c.client.AdjustQuantity(ctx, cartID, menuItemID, 1)
	return c.settle("add", menuItemID, cart, err, noticeAdd)
}

// ChangeQty applies delta to the quantity of a line. Decreasing an item that is
// not in the cart does nothing; reaching zero or less removes the line.
func (c *Controller) ChangeQty(ctx context.Context, menuItemID string, delta int) error {
	if delta == 0 || c.CartID() == "" {
		return nil
	}

	c.lane.Lock()
	defer c.lane.Unlock()

	cartID := c.CartID()
	if cartID == "" {
		return nil
	}

	line, ok := c.line(menuItemID)
	if !ok && delta < 0 {
		c.logger.Debug("item not in cart, nothing to decrease", "menu_item_id", menuItemID)
		return nil
	}
	if ok && line.Qty+delta <= 0 {
		c.logger.Debug("quantity would drop to zero, removing line", "menu_item_id", menuItemID, "qty", line.Qty, "delta", delta)
		return c.remove(ctx, cartID, menuItemID)
	}

	cart, err := c.client.AdjustQuantity(ctx, cartID, menuItemID, delta)
	return c.settle("change quantity", menuItemID, cart, err, noticeQuantity)
}

// Remove drops a line from the cart. Removing an item the backend does not
// know is logged and otherwise ignored.
func (c *Controller) Remove(ctx context.Context, menuItemID string) error {
	if c.CartID() == "" {
		return nil
	}

	c.lane.Lock()
	defer c.lane.Unlock()

	cartID := c.CartID()
	if cartID == "" {
		return nil
	}
	return c.remove(ctx, cartID, menuItemID)
}

func (c *Controller) remove(ctx context.Context, cartID, menuItemID string) error {
	cart, err := c.client.RemoveItem(ctx, cartID, menuItemID)
	if errors.Is(err, backend.ErrNotFound) {
		c.logger.Info("item already absent from cart", "cart_id", cartID, "menu_item_id", menuItemID)
		return nil
	}
	return c.settle("remove", menuItemID, cart, err, noticeRemove)
}

// Clear empties the cart. The identifier is kept for later use.
func (c *Controller) Clear(ctx context.Context) error {
	if c.CartID() == "" {
		return nil
	}

	c.lane.Lock()
	defer c.lane.Unlock()

	cartID := c.CartID()
	if cartID == "" {
		return nil
	}
	cart, err := c.client.ClearCart(ctx, cartID)
	if err := c.settle("clear", "", cart, err, noticeClear); err != nil {
		return err
	}
	c.publishCartCleared(ctx, cartID, "")
	return nil
}

// Checkout places an order for the cart. On success the cart is cleared on the
// backend and locally, and the cart view is closed. On failure the cart is left
// as it was. A nil receipt with a nil error means there was no cart to check out.
func (c *Controller) Checkout(ctx context.Context) (*Receipt, error) {
	if c.CartID() == "" {
		return nil, nil
	}

	c.lane.Lock()
	defer c.lane.Unlock()

	cartID := c.CartID()
	if cartID == "" {
		return nil, nil
	}
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrCheckoutDisabled
	}
	estimate := ComputeTotals(lines)

	order, err := c.client.PlaceOrder(ctx, cartID)
	if err != nil {
		c.logger.Error("checkout failed", "cart_id", cartID, "error", err)
		c.setNotice(checkoutNotice(err))
		return nil, err
	}
	c.logger.Info("order placed", "cart_id", cartID, "order_id", order.ID, "total", order.Total)
	c.publishOrderPlaced(ctx, cartID, order, lines, estimate)

	cleared, err := c.client.ClearCart(ctx, cartID)
	if err != nil {
		c.logger.Error("cannot clear cart after checkout, clearing local state", "cart_id", cartID, "error", err)
		cleared = nil
	}

	c.mu.Lock()
	if !c.closed {
		c.lines = copyLines(cleared.Lines())
		c.open = false
		c.notice = ""
	}
	c.mu.Unlock()

	if err == nil {
		c.publishCartCleared(ctx, cartID, order.ID)
	}

	return &Receipt{
		Order:    *order,
		Estimate: estimate.Rounded(),
		Message:  fmt.Sprintf("Order placed! Total: %s", FormatAmount(order.Total)),
	}, nil
}

// settle applies the outcome of a mutating call: the canonical cart replaces
// the local lines, a failure keeps them and raises a notice.
func (c *Controller) settle(op, menuItemID string, cart *backend.Cart, err error, notice string) error {
	if err != nil {
		c.logger.Error("cart mutation failed", "op", op, "menu_item_id", menuItemID, "error", err)
		c.setNotice(notice)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("discarding cart response after close", "op", op)
		return nil
	}
	c.lines = copyLines(cart.Lines())
	c.notice = ""
	return nil
}

func (c *Controller) setNotice(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.notice = msg
	}
}

func checkoutNotice(err error) string {
	var be *backend.Error
	if errors.As(err, &be) && be.Kind == backend.ErrCheckout {
		return be.UserMessage()
	}
	return "Checkout failed. Please try again."
}

// OpenView shows the cart panel.
func (c *Controller) OpenView() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

// CloseView hides the cart panel.
func (c *Controller) CloseView() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

// DismissNotice clears the current failure notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = ""
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CartID returns the active cart identifier, empty until a cart is available.
func (c *Controller) CartID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cartID
}

// Lines returns a copy of the current cart lines.
func (c *Controller) Lines() []backend.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyLines(c.lines)
}

// Notice returns the message of the last failed action, if any.
func (c *Controller) Notice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notice
}

// IsOpen reports whether the cart panel is shown.
func (c *Controller) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

func (c *Controller) line(menuItemID string) (backend.CartLine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.lines {
		if l.MenuItemID == menuItemID {
			return l, true
		}
	}
	return backend.CartLine{}, false
}

func (c *Controller) publishOrderPlaced(ctx context.Context, cartID string, order *backend.Order, lines []backend.CartLine, estimate Totals) {
	if c.publisher == nil {
		return
	}
	evt := event.OrderPlacedEvent{
		EventID:        uuid.NewString(),
		EventType:      event.EventOrderPlaced,
		OccurredAt:     time.Now().UTC(),
		OrderID:        order.ID,
		CartID:         cartID,
		Total:          order.Total,
		ItemCount:      ItemCount(lines),
		EstimatedTotal: Round2(estimate.Total),
	}
	c.publish(ctx, evt.EventType, evt)
}

func (c *Controller) publishCartCleared(ctx context.Context, cartID, orderID string) {
	if c.publisher == nil {
		return
	}
	evt := event.CartClearedEvent{
		EventID:      uuid.NewString(),
		EventType:    event.EventCartCleared,
		OccurredAt:   time.Now().UTC(),
		CartID:       cartID,
		AfterOrderID: orderID,
	}
	c.publish(ctx, evt.EventType, evt)
}

func (c *Controller) publish(ctx context.Context, eventType string, evt interface{}) {
	payload, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("cannot marshal storefront event", "event_type", eventType, "error", err)
		return
	}
	if err := c.publisher.Publish(ctx, event.StorefrontTopic, payload); err != nil {
		c.logger.Error("cannot publish storefront event", "event_type", eventType, "error", err)
	}
}

func copyLines(lines []backend.CartLine) []backend.CartLine {
	out := make([]backend.CartLine, len(lines))
	copy(out, lines)
	return out
}
