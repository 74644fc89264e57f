package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// newTestServer answers every request with status and body and records what it received.
func newTestServer(t *testing.T, status int, body string) (*HTTPClient, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var got []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath()}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("%s %s sent without X-Request-ID", r.Method, r.URL.Path)
		}
		mu.Lock()
		got = append(got, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	requests := func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest{}, got...)
	}
	return NewHTTPClient(srv.URL+"/", time.Second, nil), requests
}

func TestNewHTTPClientDefaults(t *testing.T) {
	c := NewHTTPClient("", 0, nil)

	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
	}
	if c.logger == nil {
		t.Error("NewHTTPClient() should set noop logger when nil")
	}
}

func TestHTTPClientRequests(t *testing.T) {
	const cartBody = `{"_id":"c1","items":[{"menuItem":"m1","name":"Dumplings","price":8.5,"qty":2}]}`

	tests := []struct {
		name       string
		respBody   string
		call       func(c *HTTPClient) error
		wantMethod string
		wantPath   string
		wantBody   map[string]interface{}
	}{
		{
			name:       "listMenu",
			respBody:   `[]`,
			call:       func(c *HTTPClient) error { _, err := c.ListMenu(context.Background()); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/menu",
		},
		{
			name:       "createCart",
			respBody:   `{"_id":"c1","items":[]}`,
			call:       func(c *HTTPClient) error { _, err := c.CreateCart(context.Background()); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/carts",
		},
		{
			name:       "fetchCart",
			respBody:   cartBody,
			call:       func(c *HTTPClient) error { _, err := c.FetchCart(context.Background(), "c1"); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/carts/c1",
		},
		{
			name:     "adjustQuantity",
			respBody: cartBody,
			call: func(c *HTTPClient) error {
				_, err := c.AdjustQuantity(context.Background(), "c1", "m1", -1)
				return err
			},
			wantMethod: http.MethodPatch,
			wantPath:   "/api/carts/c1/items",
			wantBody:   map[string]interface{}{"menuItemId": "m1", "qtyDelta": float64(-1)},
		},
		{
			name:     "removeItem",
			respBody: cartBody,
			call: func(c *HTTPClient) error {
				_, err := c.RemoveItem(context.Background(), "c1", "m 1")
				return err
			},
			wantMethod: http.MethodDelete,
			wantPath:   "/api/carts/c1/items/m%201",
		},
		{
			name:       "clearCart",
			respBody:   `{"_id":"c1","items":[]}`,
			call:       func(c *HTTPClient) error { _, err := c.ClearCart(context.Background(), "c1"); return err },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/carts/c1",
		},
		{
			name:       "placeOrder",
			respBody:   `{"_id":"o1","total":18.51,"status":"placed"}`,
			call:       func(c *HTTPClient) error { _, err := c.PlaceOrder(context.Background(), "c1"); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/orders",
			wantBody:   map[string]interface{}{"cartId": "c1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reqs := newTestServer(t, http.StatusOK, tt.respBody)

			if err := tt.call(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sent := reqs()
			if len(sent) != 1 {
				t.Fatalf("requests = %d, want 1", len(sent))
			}
			req := sent[0]
			if req.Method != tt.wantMethod || req.Path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", req.Method, req.Path, tt.wantMethod, tt.wantPath)
			}
			if tt.wantBody != nil && !reflect.DeepEqual(req.Body, tt.wantBody) {
				t.Errorf("body = %v, want %v", req.Body, tt.wantBody)
			}
		})
	}
}

func TestHTTPClientListMenu(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr bool
		wantMsg string
	}{
		{
			name:   "items",
			status: http.StatusOK,
			body:   `[{"_id":"m1","name":"Dumplings","price":8.5,"category":"appetizer"},{"_id":"m2","name":"Ramen","price":14,"category":"entree"}]`,
			want:   2,
		},
		{
			name:   "nonArrayIsEmpty",
			status: http.StatusOK,
			body:   `{"items":[]}`,
			want:   0,
		},
		{
			name:    "serverError",
			status:  http.StatusInternalServerError,
			body:    `boom`,
			wantErr: true,
			wantMsg: "Menu fetch failed: 500 boom",
		},
		{
			name:    "malformedBody",
			status:  http.StatusOK,
			body:    `oops not json`,
			wantErr: true,
			wantMsg: "Menu fetch failed: malformed response",
		},
		{
			name:    "truncatedBody",
			status:  http.StatusOK,
			body:    `{bad`,
			wantErr: true,
			wantMsg: "Menu fetch failed: malformed response",
		},
		{
			name:    "htmlBody",
			status:  http.StatusOK,
			body:    `<html>502</html>`,
			wantErr: true,
			wantMsg: "Menu fetch failed: malformed response",
		},
		{
			name:    "emptyBody",
			status:  http.StatusOK,
			body:    ``,
			wantErr: true,
			wantMsg: "Menu fetch failed: malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, tt.status, tt.body)

			items, err := c.ListMenu(context.Background())
			if tt.wantErr {
				var be *Error
				if !errors.As(err, &be) {
					t.Fatalf("ListMenu() error = %v, want *Error", err)
				}
				if be.Message != tt.wantMsg {
					t.Errorf("Message = %q, want %q", be.Message, tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListMenu() error = %v", err)
			}
			if items == nil || len(items) != tt.want {
				t.Errorf("ListMenu() = %v, want %d items", items, tt.want)
			}
		})
	}
}

func TestHTTPClientStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind error
		wantMsg  string
	}{
		{name: "notFound", status: http.StatusNotFound, body: `{"message":"Cart not found"}`, wantKind: ErrNotFound, wantMsg: "Cart not found"},
		{name: "badRequest", status: http.StatusBadRequest, body: `{"error":"bad qty"}`, wantKind: ErrValidation, wantMsg: "bad qty"},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{}`, wantKind: ErrValidation},
		{name: "badGateway", status: http.StatusBadGateway, body: ``, wantKind: ErrServiceUnavailable},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: ``, wantKind: ErrServiceUnavailable},
		{name: "internal", status: http.StatusInternalServerError, body: `{"message":"oops"}`, wantKind: ErrServiceError, wantMsg: "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, tt.status, tt.body)

			_, err := c.FetchCart(context.Background(), "c1")
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("FetchCart() error = %v, want kind %v", err, tt.wantKind)
			}
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("FetchCart() error = %v, want *Error", err)
			}
			if be.Status != tt.status {
				t.Errorf("Status = %d, want %d", be.Status, tt.status)
			}
			if be.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", be.Message, tt.wantMsg)
			}
		})
	}
}

func TestHTTPClientPlaceOrderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason CheckoutReason
		wantMsg    string
	}{
		{name: "emptyCart", status: http.StatusBadRequest, body: `{"message":"Cart is empty"}`, wantReason: CheckoutCartEmpty, wantMsg: "Cart is empty"},
		{name: "validation", status: http.StatusUnprocessableEntity, body: `{"message":"Item unavailable"}`, wantReason: CheckoutValidation, wantMsg: "Item unavailable"},
		{name: "serverFailure", status: http.StatusInternalServerError, body: `nope`, wantReason: CheckoutFailed, wantMsg: "Checkout failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, tt.status, tt.body)

			order, err := c.PlaceOrder(context.Background(), "c1")
			if order != nil {
				t.Errorf("PlaceOrder() order = %v, want nil", order)
			}
			if !errors.Is(err, ErrCheckout) {
				t.Fatalf("PlaceOrder() error = %v, want ErrCheckout", err)
			}
			reason, ok := ReasonOf(err)
			if !ok || reason != tt.wantReason {
				t.Errorf("ReasonOf() = %q, want %q", reason, tt.wantReason)
			}
			var be *Error
			errors.As(err, &be)
			if be.UserMessage() != tt.wantMsg {
				t.Errorf("UserMessage() = %q, want %q", be.UserMessage(), tt.wantMsg)
			}
		})
	}
}

func TestHTTPClientCreateCartFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "serverError", status: http.StatusInternalServerError, body: `{}`},
		{name: "missingID", status: http.StatusCreated, body: `{"items":[]}`},
		{name: "malformed", status: http.StatusCreated, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, tt.status, tt.body)

			id, err := c.CreateCart(context.Background())
			if id != "" {
				t.Errorf("CreateCart() id = %q, want empty", id)
			}
			if !errors.Is(err, ErrServiceUnavailable) {
				t.Errorf("CreateCart() error = %v, want ErrServiceUnavailable", err)
			}
		})
	}
}

func TestHTTPClientRejectsMalformedCart(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zeroQty", body: `{"_id":"c1","items":[{"menuItem":"m1","qty":0}]}`},
		{name: "duplicateLine", body: `{"_id":"c1","items":[{"menuItem":"m1","qty":1},{"menuItem":"m1","qty":2}]}`},
		{name: "notJSON", body: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, http.StatusOK, tt.body)

			_, err := c.FetchCart(context.Background(), "c1")
			if !errors.Is(err, ErrServiceError) {
				t.Errorf("FetchCart() error = %v, want ErrServiceError", err)
			}
		})
	}
}

func TestHTTPClientLocalValidation(t *testing.T) {
	c, reqs := newTestServer(t, http.StatusOK, `{}`)
	ctx := context.Background()

	calls := map[string]func() error{
		"zeroDelta":    func() error { _, err := c.AdjustQuantity(ctx, "c1", "m1", 0); return err },
		"noMenuItem":   func() error { _, err := c.AdjustQuantity(ctx, "c1", "", 1); return err },
		"noCartFetch":  func() error { _, err := c.FetchCart(ctx, ""); return err },
		"noCartRemove": func() error { _, err := c.RemoveItem(ctx, "", "m1"); return err },
		"noCartClear":  func() error { _, err := c.ClearCart(ctx, ""); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}

	if sent := reqs(); len(sent) != 0 {
		t.Errorf("requests = %d, want none sent", len(sent))
	}
}

func TestHTTPClientNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second, nil)
	_, err := c.FetchCart(context.Background(), "c1")
	if !errors.Is(err, ErrNetworkFailure) {
		t.Errorf("FetchCart() error = %v, want ErrNetworkFailure", err)
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := NewHTTPClient(srv.URL, 20*time.Millisecond, nil)
	_, err := c.ListMenu(context.Background())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("ListMenu() error = %v, want ErrServiceUnavailable", err)
	}
}
