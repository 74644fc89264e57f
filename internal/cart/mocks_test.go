package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/lastbite/internal/backend"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Published   [][]byte
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, msg)
	return nil
}

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// MockCartClient is an in-memory backend.CartClient. Each hook overrides the
// default behavior of its method; every call is recorded.
type MockCartClient struct {
	mu     sync.Mutex
	calls  []string
	carts  map[string][]backend.CartLine
	menu   map[string]backend.MenuItem
	nextID int

	CreateCartFunc     func(ctx context.Context) (string, error)
	FetchCartFunc      func(ctx context.Context, cartID string) (*backend.Cart, error)
	AdjustQuantityFunc func(ctx context.Context, cartID, menuItemID string, delta int) (*backend.Cart, error)
	RemoveItemFunc     func(ctx context.Context, cartID, menuItemID string) (*backend.Cart, error)
	ClearCartFunc      func(ctx context.Context, cartID string) (*backend.Cart, error)
	PlaceOrderFunc     func(ctx context.Context, cartID string) (*backend.Order, error)
}

func NewMockCartClient() *MockCartClient {
	return &MockCartClient{
		carts: make(map[string][]backend.CartLine),
		menu: map[string]backend.MenuItem{
			"m1": {ID: "m1", Name: "Dumplings", Price: 8.50, Category: "appetizer"},
			"m2": {ID: "m2", Name: "Ramen", Price: 14.00, Category: "entree"},
			"m3": {ID: "m3", Name: "Mochi", Price: 5.25, Category: "dessert"},
		},
	}
}

// Seed stores a cart on the fake backend.
func (m *MockCartClient) Seed(cartID string, lines ...backend.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cartID] = append([]backend.CartLine{}, lines...)
}

// Calls returns the recorded call log, e.g. "adjust m1 2".
func (m *MockCartClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

func (m *MockCartClient) record(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *MockCartClient) CreateCart(ctx context.Context) (string, error) {
	m.record("create")
	if m.CreateCartFunc != nil {
		return m.CreateCartFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("cart-%d", m.nextID)
	m.carts[id] = []backend.CartLine{}
	return id, nil
}

func (m *MockCartClient) FetchCart(ctx context.Context, cartID string) (*backend.Cart, error) {
	m.record("fetch %s", cartID)
	if m.FetchCartFunc != nil {
		return m.FetchCartFunc(ctx, cartID)
	}
	return m.snapshot(cartID)
}

func (m *MockCartClient) AdjustQuantity(ctx context.Context, cartID, menuItemID string, delta int) (*backend.Cart, error) {
	m.record("adjust %s %d", menuItemID, delta)
	if m.AdjustQuantityFunc != nil {
		return m.AdjustQuantityFunc(ctx, cartID, menuItemID, delta)
	}

	m.mu.Lock()
	lines, ok := m.carts[cartID]
	if !ok {
		m.mu.Unlock()
		return nil, &backend.Error{Op: "adjust quantity", Kind: backend.ErrNotFound, Status: 404}
	}
	updated := make([]backend.CartLine, 0, len(lines)+1)
	found := false
	for _, line := range lines {
		if line.MenuItemID == menuItemID {
			found = true
			line.Qty += delta
			if line.Qty <= 0 {
				continue
			}
		}
		updated = append(updated, line)
	}
	if !found && delta > 0 {
		item := m.menu[menuItemID]
		updated = append(updated, backend.CartLine{MenuItemID: menuItemID, Name: item.Name, Price: item.Price, Qty: delta})
	}
	m.carts[cartID] = updated
	m.mu.Unlock()

	return m.snapshot(cartID)
}

func (m *MockCartClient) RemoveItem(ctx context.Context, cartID, menuItemID string) (*backend.Cart, error) {
	m.record("remove %s", menuItemID)
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, cartID, menuItemID)
	}

	m.mu.Lock()
	lines := m.carts[cartID]
	updated := make([]backend.CartLine, 0, len(lines))
	found := false
	for _, line := range lines {
		if line.MenuItemID == menuItemID {
			found = true
			continue
		}
		updated = append(updated, line)
	}
	if !found {
		m.mu.Unlock()
		return nil, &backend.Error{Op: "remove item", Kind: backend.ErrNotFound, Status: 404}
	}
	m.carts[cartID] = updated
	m.mu.Unlock()

	return m.snapshot(cartID)
}

func (m *MockCartClient) ClearCart(ctx context.Context, cartID string) (*backend.Cart, error) {
	m.record("clear %s", cartID)
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx, cartID)
	}
	m.mu.Lock()
	m.carts[cartID] = []backend.CartLine{}
	m.mu.Unlock()
	return m.snapshot(cartID)
}

func (m *MockCartClient) PlaceOrder(ctx context.Context, cartID string) (*backend.Order, error) {
	m.record("order %s", cartID)
	if m.PlaceOrderFunc != nil {
		return m.PlaceOrderFunc(ctx, cartID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var subtotal float64
	for _, line := range m.carts[cartID] {
		subtotal += float64(line.Qty) * line.Price
	}
	return &backend.Order{ID: "order-" + cartID, Total: Round2(subtotal * (1 + TaxRate)), Status: "placed"}, nil
}

func (m *MockCartClient) snapshot(cartID string) (*backend.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.carts[cartID]
	if !ok {
		return nil, &backend.Error{Op: "fetch cart", Kind: backend.ErrNotFound, Status: 404}
	}
	return &backend.Cart{ID: cartID, Items: append([]backend.CartLine{}, lines...)}, nil
}
