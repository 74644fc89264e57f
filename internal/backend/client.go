package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://lastbite-backend.onrender.com"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// MenuClient reads the restaurant menu.
type MenuClient interface {
	ListMenu(ctx context.Context) ([]MenuItem, error)
}

// CartClient wraps the cart and order endpoints. Every call is a single
// request and returns the backend's canonical state.
type CartClient interface {
	CreateCart(ctx context.Context) (string, error)
	FetchCart(ctx context.Context, cartID string) (*Cart, error)
	AdjustQuantity(ctx context.Context, cartID, menuItemID string, delta int) (*Cart, error)
	RemoveItem(ctx context.Context, cartID, menuItemID string) (*Cart, error)
	ClearCart(ctx context.Context, cartID string) (*Cart, error)
	PlaceOrder(ctx context.Context, cartID string) (*Order, error)
}

// Client is the full restaurant backend contract.
type Client interface {
	MenuClient
	CartClient
}

// HTTPClient implements Client against the restaurant REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     apt.Logger
}

// NewHTTPClient creates a backend client. No request is ever retried.
func NewHTTPClient(baseURL string, timeout time.Duration, logger apt.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListMenu retrieves every menu item from the backend.
func (c *HTTPClient) ListMenu(ctx context.Context) ([]MenuItem, error) {
	const op = "list menu"

	status, body, err := c.do(ctx, op, http.MethodGet, "/api/menu", nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &Error{
			Op:      op,
			Kind:    ErrServiceError,
			Status:  status,
			Message: strings.TrimSpace(fmt.Sprintf("Menu fetch failed: %d %s", status, strings.TrimSpace(string(body)))),
		}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &Error{Op: op, Kind: ErrServiceError, Status: status, Message: "Menu fetch failed: malformed response", Err: err}
	}

	// Valid JSON that is not an array is an empty menu.
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []MenuItem{}, nil
	}

	var items []MenuItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &Error{Op: op, Kind: ErrServiceError, Status: status, Message: "Menu fetch failed: malformed response", Err: err}
	}
	return items, nil
}

// CreateCart creates an empty cart and returns its identifier.
func (c *HTTPClient) CreateCart(ctx context.Context) (string, error) {
	const op = "create cart"

	status, body, err := c.do(ctx, op, http.MethodPost, "/api/carts", nil)
	if err != nil {
		return "", err
	}
	if !success(status) {
		return "", &Error{Op: op, Kind: ErrServiceUnavailable, Status: status, Message: "Failed to create cart"}
	}

	var created Cart
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &Error{Op: op, Kind: ErrServiceUnavailable, Status: status, Message: "malformed cart", Err: err}
	}
	if created.ID == "" {
		return "", &Error{Op: op, Kind: ErrServiceUnavailable, Status: status, Message: "cart identifier missing"}
	}
	return created.ID, nil
}

// FetchCart retrieves the canonical cart by identifier.
func (c *HTTPClient) FetchCart(ctx context.Context, cartID string) (*Cart, error) {
	const op = "fetch cart"
	if cartID == "" {
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "cart id is required"}
	}
	return c.cartCall(ctx, op, http.MethodGet, cartPath(cartID), nil)
}

// AdjustQuantity adds delta units of a menu item to the cart. A zero delta is rejected without a request.
func (c *HTTPClient) AdjustQuantity(ctx context.Context, cartID, menuItemID string, delta int) (*Cart, error) {
	const op = "adjust quantity"
	switch {
	case cartID == "":
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "cart id is required"}
	case menuItemID == "":
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "menu item id is required"}
	case delta == 0:
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "quantity delta must not be zero"}
	}

	payload := adjustQuantityRequest{MenuItemID: menuItemID, QtyDelta: delta}
	return c.cartCall(ctx, op, http.MethodPatch, cartPath(cartID)+"/items", payload)
}

// RemoveItem drops the line for a menu item from the cart.
func (c *HTTPClient) RemoveItem(ctx context.Context, cartID, menuItemID string) (*Cart, error) {
	const op = "remove item"
	if cartID == "" || menuItemID == "" {
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "cart id and menu item id are required"}
	}
	return c.cartCall(ctx, op, http.MethodDelete, cartPath(cartID)+"/items/"+url.PathEscape(menuItemID), nil)
}

// ClearCart removes every line from the cart, keeping the cart itself.
func (c *HTTPClient) ClearCart(ctx context.Context, cartID string) (*Cart, error) {
	const op = "clear cart"
	if cartID == "" {
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "cart id is required"}
	}
	return c.cartCall(ctx, op, http.MethodDelete, cartPath(cartID), nil)
}

// PlaceOrder places an order for the cart and returns the order with its server-side total.
func (c *HTTPClient) PlaceOrder(ctx context.Context, cartID string) (*Order, error) {
	const op = "place order"
	if cartID == "" {
		return nil, &Error{Op: op, Kind: ErrCheckout, Reason: CheckoutValidation, Message: "cart id is required"}
	}

	status, body, err := c.do(ctx, op, http.MethodPost, "/api/orders", placeOrderRequest{CartID: cartID})
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, checkoutError(op, status, body)
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, &Error{Op: op, Kind: ErrServiceError, Status: status, Message: "malformed order", Err: err}
	}
	return &order, nil
}

func (c *HTTPClient) cartCall(ctx context.Context, op, method, path string, payload interface{}) (*Cart, error) {
	status, body, err := c.do(ctx, op, method, path, payload)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, statusError(op, status, body)
	}

	var cart Cart
	if err := json.Unmarshal(body, &cart); err != nil {
		return nil, &Error{Op: op, Kind: ErrServiceError, Status: status, Message: "malformed cart", Err: err}
	}
	if err := cart.Validate(); err != nil {
		return nil, &Error{Op: op, Kind: ErrServiceError, Status: status, Message: "malformed cart", Err: err}
	}
	if cart.Items == nil {
		cart.Items = []CartLine{}
	}
	return &cart, nil
}

// do performs one round trip and returns the status and the raw body. Only
// transport failures are reported as errors here.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &Error{Op: op, Kind: ErrValidation, Message: "cannot encode request", Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, &Error{Op: op, Kind: ErrNetworkFailure, Message: "create request failed", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "op", op, "method", method, "path", path, "error", err)
		return 0, nil, transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, transportError(op, err)
	}

	c.logger.Debug("backend request completed", "op", op, "method", method, "path", path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

func transportError(op string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Op: op, Kind: ErrServiceUnavailable, Message: "backend timed out", Err: err}
	}
	return &Error{Op: op, Kind: ErrNetworkFailure, Err: err}
}

func statusError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status, Message: decodeMessage(body)}
	switch status {
	case http.StatusNotFound:
		e.Kind = ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Kind = ErrValidation
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Kind = ErrServiceUnavailable
	default:
		e.Kind = ErrServiceError
	}
	return e
}

func checkoutError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Kind: ErrCheckout, Status: status, Message: decodeMessage(body), Reason: CheckoutFailed}
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		e.Reason = CheckoutValidation
		if strings.Contains(strings.ToLower(e.Message), "empty") {
			e.Reason = CheckoutCartEmpty
		}
	}
	if e.Message == "" {
		e.Message = "Checkout failed"
	}
	return e
}

func decodeMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return eb.text()
}

func requestID(ctx context.Context) string {
	if id := apt.RequestIDFrom(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func cartPath(cartID string) string {
	return "/api/carts/" + url.PathEscape(cartID)
}

func success(status int) bool {
	return status >= 200 && status < 300
}
