package storefront

import (
	"context"
	"sync"

	"github.com/appetiteclub/lastbite/internal/backend"
)

// MockBackend is an in-memory backend.Client holding a single cart.
type MockBackend struct {
	mu    sync.Mutex
	menu  []backend.MenuItem
	lines []backend.CartLine

	PlaceOrderFunc func(ctx context.Context, cartID string) (*backend.Order, error)
	AdjustFunc     func(ctx context.Context, cartID, menuItemID string, delta int) (*backend.Cart, error)
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		menu: []backend.MenuItem{
			{ID: "m1", Name: "Dumplings", Price: 8.50, Category: "appetizer"},
			{ID: "m2", Name: "Ramen", Price: 14.00, Category: "entree"},
		},
	}
}

func (m *MockBackend) ListMenu(ctx context.Context) ([]backend.MenuItem, error) {
	return m.menu, nil
}

func (m *MockBackend) CreateCart(ctx context.Context) (string, error) {
	return "cart-1", nil
}

func (m *MockBackend) FetchCart(ctx context.Context, cartID string) (*backend.Cart, error) {
	return m.cart(cartID), nil
}

func (m *MockBackend) AdjustQuantity(ctx context.Context, cartID, menuItemID string, delta int) (*backend.Cart, error) {
	if m.AdjustFunc != nil {
		return m.AdjustFunc(ctx, cartID, menuItemID, delta)
	}

	m.mu.Lock()
	found := false
	for i := range m.lines {
		if m.lines[i].MenuItemID == menuItemID {
			m.lines[i].Qty += delta
			found = true
		}
	}
	if !found {
		for _, item := range m.menu {
			if item.ID == menuItemID {
				m.lines = append(m.lines, backend.CartLine{MenuItemID: item.ID, Name: item.Name, Price: item.Price, Qty: delta})
			}
		}
	}
	m.mu.Unlock()
	return m.cart(cartID), nil
}

func (m *MockBackend) RemoveItem(ctx context.Context, cartID, menuItemID string) (*backend.Cart, error) {
	m.mu.Lock()
	kept := m.lines[:0]
	found := false
	for _, line := range m.lines {
		if line.MenuItemID == menuItemID {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	m.lines = kept
	m.mu.Unlock()

	if !found {
		return nil, &backend.Error{Op: "remove item", Kind: backend.ErrNotFound, Status: 404}
	}
	return m.cart(cartID), nil
}

func (m *MockBackend) ClearCart(ctx context.Context, cartID string) (*backend.Cart, error) {
	m.mu.Lock()
	m.lines = nil
	m.mu.Unlock()
	return m.cart(cartID), nil
}

func (m *MockBackend) PlaceOrder(ctx context.Context, cartID string) (*backend.Order, error) {
	if m.PlaceOrderFunc != nil {
		return m.PlaceOrderFunc(ctx, cartID)
	}
	return &backend.Order{ID: "order-1", Total: 18.51, Status: "placed"}, nil
}

func (m *MockBackend) cart(cartID string) *backend.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &backend.Cart{ID: cartID, Items: append([]backend.CartLine{}, m.lines...)}
}
