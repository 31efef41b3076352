// Package httpapi exposes the storefront API over HTTP.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	cartapp "github.com/wyshkit/orderflow/internal/cart/app"
	cartdomain "github.com/wyshkit/orderflow/internal/cart/domain"
	checkoutapp "github.com/wyshkit/orderflow/internal/checkout/app"
	notifapp "github.com/wyshkit/orderflow/internal/notification/app"
	orderapp "github.com/wyshkit/orderflow/internal/order/app"
	orderdomain "github.com/wyshkit/orderflow/internal/order/domain"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
	previewapp "github.com/wyshkit/orderflow/internal/preview/app"
	"github.com/wyshkit/orderflow/pkg/metrics"
)

type Server struct {
	engine        *gin.Engine
	carts         *cartapp.Service
	checkout      *checkoutapp.Service
	orders        *orderapp.Service
	previews      *previewapp.Service
	notifications *notifapp.Service
	log           *slog.Logger
}

type Deps struct {
	Carts         *cartapp.Service
	Checkout      *checkoutapp.Service
	Orders        *orderapp.Service
	Previews      *previewapp.Service
	Notifications *notifapp.Service
	Log           *slog.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		engine:        r,
		carts:         deps.Carts,
		checkout:      deps.Checkout,
		orders:        deps.Orders,
		previews:      deps.Previews,
		notifications: deps.Notifications,
		log:           deps.Log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		cart := v1.Group("/customers/:customerId/cart")
		cart.GET("", s.getCart)
		cart.PUT("", s.replaceCart)
		cart.DELETE("", s.clearCart)
		cart.POST("/items", s.addCartItem)
		cart.PUT("/items/:itemId", s.updateCartItem)
		cart.DELETE("/items/:itemId", s.removeCartItem)

		v1.POST("/customers/:customerId/checkout", s.checkoutCart)
		v1.GET("/customers/:customerId/orders", s.listOrders)

		orders := v1.Group("/orders")
		orders.GET(":id", s.getOrder)
		orders.PATCH(":id/status", s.updateOrderStatus)

		previews := v1.Group("/order-items/:itemId/preview")
		previews.POST("", s.generatePreview)
		previews.POST("/approve", s.approvePreview)
		previews.POST("/revision", s.requestRevision)

		notifs := v1.Group("/customers/:customerId/notifications")
		notifs.GET("", s.listNotifications)
		notifs.POST(":id/read", s.markNotificationRead)
	}
}

// Cart handlers

func (s *Server) getCart(c *gin.Context) {
	cart, err := s.carts.GetCart(c, c.Param("customerId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(cart))
}

type cartItemReq struct {
	ProductRef       string                       `json:"product_ref"`
	PartnerID        string                       `json:"partner_id"`
	Name             string                       `json:"name"`
	ImageURL         string                       `json:"image_url"`
	UnitPrice        decimal.Decimal              `json:"unit_price"`
	Quantity         int32                        `json:"quantity"`
	Personalizations []cartdomain.Personalization `json:"personalizations"`
}

func (r cartItemReq) toDomain() cartdomain.CartItem {
	return cartdomain.CartItem{
		ProductRef:       r.ProductRef,
		PartnerID:        r.PartnerID,
		Name:             r.Name,
		ImageURL:         r.ImageURL,
		UnitPrice:        r.UnitPrice,
		Quantity:         r.Quantity,
		Personalizations: r.Personalizations,
	}
}

func (s *Server) addCartItem(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	res, err := s.carts.AddItem(c, c.Param("customerId"), req.toDomain())
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.Conflict != nil {
		c.JSON(http.StatusConflict, gin.H{
			"code":     "partner_conflict",
			"error":    "cart holds items from another partner",
			"conflict": res.Conflict,
			"cart":     cartView(res.Cart),
		})
		return
	}
	c.JSON(http.StatusOK, cartView(res.Cart))
}

func (s *Server) updateCartItem(c *gin.Context) {
	var req struct {
		Quantity int32 `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	cart, err := s.carts.UpdateQuantity(c, c.Param("customerId"), c.Param("itemId"), req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(cart))
}

func (s *Server) removeCartItem(c *gin.Context) {
	cart, err := s.carts.RemoveItem(c, c.Param("customerId"), c.Param("itemId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(cart))
}

// replaceCart resolves a partner conflict: the incoming item becomes the
// cart's sole content.
func (s *Server) replaceCart(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	cart, err := s.carts.ReplaceCart(c, c.Param("customerId"), req.toDomain())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(cart))
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.carts.Clear(c, c.Param("customerId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func cartView(cart cartdomain.Cart) gin.H {
	return gin.H{
		"customer_id": cart.CustomerID,
		"partner_id":  cart.PartnerID(),
		"items":       cart.Items,
		"count":       cart.Count(),
		"subtotal":    cart.Subtotal(),
	}
}

// Checkout

type checkoutReq struct {
	DeliveryAddress orderdomain.DeliveryAddress `json:"delivery_address"`
	PaymentMethod   string                      `json:"payment_method"`
	TaxID           string                      `json:"tax_id"`
}

func (s *Server) checkoutCart(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	order, err := s.checkout.Checkout(c, c.Param("customerId"), req.DeliveryAddress, req.PaymentMethod, req.TaxID)
	if err != nil && !errors.Is(err, checkoutapp.ErrCartClearFailed) {
		s.fail(c, err)
		return
	}
	// a clear failure still means a durably placed order
	c.JSON(http.StatusCreated, order)
}

// Orders

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.orders.GetOrder(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.orders.ListByCustomer(c, c.Param("customerId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type updateStatusReq struct {
	Status   orderdomain.Status `json:"status"`
	Metadata map[string]string  `json:"metadata"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	order, err := s.orders.UpdateStatus(c, c.Param("id"), req.Status, req.Metadata)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Preview workflow

type generatePreviewReq struct {
	URLs []string `json:"urls"`
}

func (s *Server) generatePreview(c *gin.Context) {
	var req generatePreviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	order, err := s.previews.GeneratePreview(c, c.Param("itemId"), req.URLs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) approvePreview(c *gin.Context) {
	order, err := s.previews.Approve(c, c.Param("itemId"))
	if err != nil {
		var capErr *previewapp.CaptureError
		if errors.As(err, &capErr) {
			// the approval committed; capture retries out of band
			c.JSON(http.StatusOK, gin.H{"order": order, "capture_pending": true})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "capture_pending": false})
}

type revisionReq struct {
	Notes string `json:"notes"`
}

func (s *Server) requestRevision(c *gin.Context) {
	var req revisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_json", "error": "invalid json"})
		return
	}
	order, err := s.previews.RequestRevision(c, c.Param("itemId"), req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Notifications

func (s *Server) listNotifications(c *gin.Context) {
	feed, err := s.notifications.ListByCustomer(c, c.Param("customerId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": feed})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	notif, err := s.notifications.MarkRead(c, c.Param("customerId"), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notif)
}

// fail maps application errors onto HTTP statuses with a stable code field.
func (s *Server) fail(c *gin.Context, err error) {
	code, status := "internal", http.StatusInternalServerError
	switch {
	case errors.Is(err, orderapp.ErrNotFound),
		errors.Is(err, previewapp.ErrItemNotFound),
		errors.Is(err, notifapp.ErrNotFound):
		code, status = "not_found", http.StatusNotFound
	case errors.Is(err, previewapp.ErrInvalidTransition):
		code, status = "invalid_transition", http.StatusConflict
	case errors.Is(err, cartapp.ErrInvalidItem),
		errors.Is(err, orderapp.ErrInvalidInput),
		errors.Is(err, notifapp.ErrInvalidInput),
		errors.Is(err, previewapp.ErrNoPreviewURL):
		code, status = "invalid_input", http.StatusUnprocessableEntity
	case errors.Is(err, checkoutapp.ErrEmptyCart):
		code, status = "empty_cart", http.StatusUnprocessableEntity
	case errors.Is(err, kvstore.ErrQuotaExceeded):
		code, status = "storage_quota_exceeded", http.StatusInsufficientStorage
	case errors.Is(err, kvstore.ErrUnavailable):
		code, status = "storage_unavailable", http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("err", err))
	}
	c.JSON(status, gin.H{"code": code, "error": err.Error()})
}
