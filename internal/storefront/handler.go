package storefront

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/lastbite/internal/backend"
	"github.com/appetiteclub/lastbite/internal/cart"
	"github.com/appetiteclub/lastbite/internal/menu"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 16

// Handler exposes the menu browser and cart widget interactions.
type Handler struct {
	menu   *menu.Loader
	cart   *cart.Controller
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
}

type HandlerDeps struct {
	Menu *menu.Loader
	Cart *cart.Controller
}

type addItemRequest struct {
	MenuItemID string `json:"menuItemId"`
}

type changeQtyRequest struct {
	Delta int `json:"delta"`
}

type checkoutResponse struct {
	Receipt *cart.Receipt `json:"receipt"`
	Cart    cart.View     `json:"cart"`
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		menu:   hd.Menu,
		cart:   hd.Cart,
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/storefront", func(r chi.Router) {
		r.Get("/menu", h.GetMenu)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/open", h.OpenCart)
			r.Post("/close", h.CloseCart)
			r.Post("/checkout", h.Checkout)
			r.Delete("/notice", h.DismissNotice)

			r.Post("/items", h.AddItem)
			r.Patch("/items/{menuItemID}", h.ChangeQty)
			r.Delete("/items/{menuItemID}", h.RemoveItem)
		})
	})
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

// GetMenu handles GET /storefront/menu
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetMenu")
	defer finish()

	apt.RespondSuccess(w, h.menu.Snapshot())
}

// GetCart handles GET /storefront/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetCart")
	defer finish()

	apt.RespondSuccess(w, h.cart.Snapshot())
}

// OpenCart handles POST /storefront/cart/open
func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenCart")
	defer finish()

	h.cart.OpenView()
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// CloseCart handles POST /storefront/cart/close
func (h *Handler) CloseCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseCart")
	defer finish()

	h.cart.CloseView()
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// DismissNotice handles DELETE /storefront/cart/notice
func (h *Handler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DismissNotice")
	defer finish()

	h.cart.DismissNotice()
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// AddItem handles POST /storefront/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddItem")
	defer finish()
	log := h.log(r)

	var req addItemRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	req.MenuItemID = strings.TrimSpace(req.MenuItemID)
	if req.MenuItemID == "" {
		apt.RespondError(w, http.StatusBadRequest, "menuItemId is required")
		return
	}

	if err := h.cart.Add(r.Context(), req.MenuItemID); err != nil {
		h.respondCartError(w, log, "add", err)
		return
	}
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// ChangeQty handles PATCH /storefront/cart/items/{menuItemID}
func (h *Handler) ChangeQty(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ChangeQty")
	defer finish()
	log := h.log(r)

	menuItemID := chi.URLParam(r, "menuItemID")
	if menuItemID == "" {
		apt.RespondError(w, http.StatusBadRequest, "Missing menu item id")
		return
	}

	var req changeQtyRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.Delta == 0 {
		apt.RespondError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}

	if err := h.cart.ChangeQty(r.Context(), menuItemID, req.Delta); err != nil {
		h.respondCartError(w, log, "change quantity", err)
		return
	}
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// RemoveItem handles DELETE /storefront/cart/items/{menuItemID}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveItem")
	defer finish()
	log := h.log(r)

	menuItemID := chi.URLParam(r, "menuItemID")
	if menuItemID == "" {
		apt.RespondError(w, http.StatusBadRequest, "Missing menu item id")
		return
	}

	if err := h.cart.Remove(r.Context(), menuItemID); err != nil {
		h.respondCartError(w, log, "remove", err)
		return
	}
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// ClearCart handles DELETE /storefront/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ClearCart")
	defer finish()
	log := h.log(r)

	if !h.cart.Snapshot().CanClear {
		apt.RespondSuccess(w, h.cart.Snapshot())
		return
	}

	if err := h.cart.Clear(r.Context()); err != nil {
		h.respondCartError(w, log, "clear", err)
		return
	}
	apt.RespondSuccess(w, h.cart.Snapshot())
}

// Checkout handles POST /storefront/cart/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Checkout")
	defer finish()
	log := h.log(r)

	if !h.cart.Snapshot().CanCheckout {
		apt.RespondError(w, http.StatusConflict, "Cart is empty")
		return
	}

	receipt, err := h.cart.Checkout(r.Context())
	if err != nil {
		h.respondCartError(w, log, "checkout", err)
		return
	}

	apt.RespondSuccess(w, checkoutResponse{Receipt: receipt, Cart: h.cart.Snapshot()})
}

func (h *Handler) respondCartError(w http.ResponseWriter, log apt.Logger, op string, err error) {
	log.Info("cart action failed", "op", op, "error", err)

	msg := h.cart.Notice()
	if msg == "" {
		msg = "Could not update cart"
	}

	switch {
	case errors.Is(err, cart.ErrCheckoutDisabled):
		apt.RespondError(w, http.StatusConflict, "Cart is empty")
	case errors.Is(err, backend.ErrValidation):
		apt.RespondError(w, http.StatusBadRequest, msg)
	case errors.Is(err, backend.ErrNotFound):
		apt.RespondError(w, http.StatusNotFound, msg)
	case errors.Is(err, backend.ErrCheckout):
		status := http.StatusBadGateway
		if reason, ok := backend.ReasonOf(err); ok && reason != backend.CheckoutFailed {
			status = http.StatusUnprocessableEntity
		}
		apt.RespondError(w, status, msg)
	default:
		apt.RespondError(w, http.StatusBadGateway, msg)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log apt.Logger, dest interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		log.Debug("cannot read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Debug("cannot decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
