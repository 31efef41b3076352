package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	cartapp "github.com/wyshkit/orderflow/internal/cart/app"
	cartkv "github.com/wyshkit/orderflow/internal/cart/infra/kv"
	checkoutapp "github.com/wyshkit/orderflow/internal/checkout/app"
	"github.com/wyshkit/orderflow/internal/checkout/infra/adapter"
	notifapp "github.com/wyshkit/orderflow/internal/notification/app"
	notifadapter "github.com/wyshkit/orderflow/internal/notification/infra/adapter"
	notifkv "github.com/wyshkit/orderflow/internal/notification/infra/kv"
	orderapp "github.com/wyshkit/orderflow/internal/order/app"
	orderkv "github.com/wyshkit/orderflow/internal/order/infra/kv"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
	previewapp "github.com/wyshkit/orderflow/internal/preview/app"
	"github.com/wyshkit/orderflow/internal/preview/infra/capture"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T) *Server {
	t.Helper()
	store := kvstore.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })

	orderRepo := orderkv.NewOrderRepo(store)
	carts := cartapp.NewService(cartkv.NewCartRepo(store), nil)
	orders := orderapp.NewService(orderRepo)
	checkout := checkoutapp.NewService(
		adapter.NewCartServiceReader(carts),
		adapter.NewOrderServicePlacer(orders),
		nil,
	)

	previews := previewapp.NewService(orderRepo, capture.NewLogCoordinator(nil), 48*time.Hour, nil)

	notifications := notifapp.NewService(notifkv.NewNotificationRepo(store), nil)
	previews.SetNotifier(notifadapter.NewWorkflowNotifier(notifications, nil))

	return NewServer(Deps{
		Carts:         carts,
		Checkout:      checkout,
		Orders:        orders,
		Previews:      previews,
		Notifications: notifications,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
}

func mugItem() map[string]any {
	return map[string]any{
		"product_ref": "mug", "partner_id": "P1", "name": "Custom Mug",
		"unit_price": "500", "quantity": 2,
		"personalizations": []map[string]any{
			{"id": "p1", "label": "Engraving", "price": "0"},
		},
	}
}

func TestCartFlow(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/cart/items", mugItem())
	if w.Code != http.StatusOK {
		t.Fatalf("add item code %v: %s", w.Code, w.Body.String())
	}

	var cart struct {
		PartnerID string `json:"partner_id"`
		Count     int32  `json:"count"`
		Items     []struct {
			ID       string `json:"id"`
			Quantity int32  `json:"quantity"`
		} `json:"items"`
	}
	decode(t, w, &cart)
	if cart.Count != 2 || len(cart.Items) != 1 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	itemID := cart.Items[0].ID

	t.Run("cross-partner add conflicts", func(t *testing.T) {
		other := mugItem()
		other["partner_id"] = "P2"
		w := doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/cart/items", other)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %v: %s", w.Code, w.Body.String())
		}
		var res struct {
			Code     string `json:"code"`
			Conflict struct {
				CurrentPartnerID  string `json:"current_partner_id"`
				IncomingPartnerID string `json:"incoming_partner_id"`
			} `json:"conflict"`
		}
		decode(t, w, &res)
		if res.Code != "partner_conflict" || res.Conflict.CurrentPartnerID != "P1" || res.Conflict.IncomingPartnerID != "P2" {
			t.Fatalf("unexpected conflict payload: %+v", res)
		}
	})

	t.Run("replace resolves the conflict", func(t *testing.T) {
		other := mugItem()
		other["partner_id"] = "P2"
		w := doJSON(t, s, http.MethodPut, "/api/v1/customers/cust-1/cart", other)
		if w.Code != http.StatusOK {
			t.Fatalf("replace code %v: %s", w.Code, w.Body.String())
		}
		decode(t, w, &cart)
		if cart.PartnerID != "P2" || len(cart.Items) != 1 {
			t.Fatalf("replace did not take over the cart: %+v", cart)
		}
		itemID = cart.Items[0].ID
	})

	t.Run("quantity update and removal", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPut, "/api/v1/customers/cust-1/cart/items/"+itemID, map[string]any{"quantity": 5})
		if w.Code != http.StatusOK {
			t.Fatalf("update code %v", w.Code)
		}
		decode(t, w, &cart)
		if cart.Items[0].Quantity != 5 {
			t.Fatalf("quantity not applied: %+v", cart)
		}

		w = doJSON(t, s, http.MethodDelete, "/api/v1/customers/cust-1/cart/items/"+itemID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("remove code %v", w.Code)
		}
		decode(t, w, &cart)
		if len(cart.Items) != 0 {
			t.Fatalf("item not removed: %+v", cart)
		}
	})

	t.Run("invalid item rejected", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/cart/items", map[string]any{"name": "no refs"})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %v", w.Code)
		}
	})
}

func TestCheckoutAndPreviewFlow(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/cart/items", mugItem())
	if w.Code != http.StatusOK {
		t.Fatalf("add item code %v", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/checkout", map[string]any{
		"delivery_address": map[string]any{"city": "Bangalore", "pincode": "560001"},
		"payment_method":   "card",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout code %v: %s", w.Code, w.Body.String())
	}
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Items  []struct {
			ID            string `json:"id"`
			PreviewStatus string `json:"preview_status"`
		} `json:"items"`
	}
	decode(t, w, &order)
	if order.Status != "preview_pending" {
		t.Fatalf("expected preview_pending, got %s", order.Status)
	}
	itemID := order.Items[0].ID

	t.Run("cart empties after checkout", func(t *testing.T) {
		w := doJSON(t, s, http.MethodGet, "/api/v1/customers/cust-1/cart", nil)
		var cart struct {
			Count int32 `json:"count"`
		}
		decode(t, w, &cart)
		if cart.Count != 0 {
			t.Fatalf("cart not cleared: %+v", cart)
		}
	})

	t.Run("empty cart cannot check out again", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/checkout", map[string]any{"payment_method": "card"})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %v", w.Code)
		}
	})

	t.Run("preview lifecycle over http", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/order-items/"+itemID+"/preview", map[string]any{
			"urls": []string{"https://cdn.example/p1.png"},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("generate code %v: %s", w.Code, w.Body.String())
		}

		w = doJSON(t, s, http.MethodPost, "/api/v1/order-items/"+itemID+"/preview/revision", map[string]any{
			"notes": "wrong color",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("revision code %v: %s", w.Code, w.Body.String())
		}
		decode(t, w, &order)
		if order.Status != "revision_requested" {
			t.Fatalf("expected revision_requested, got %s", order.Status)
		}

		w = doJSON(t, s, http.MethodPost, "/api/v1/order-items/"+itemID+"/preview", map[string]any{
			"urls": []string{"https://cdn.example/p2.png"},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("re-upload code %v", w.Code)
		}

		w = doJSON(t, s, http.MethodPost, "/api/v1/order-items/"+itemID+"/preview/approve", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("approve code %v: %s", w.Code, w.Body.String())
		}
		var approved struct {
			CapturePending bool `json:"capture_pending"`
			Order          struct {
				Status string `json:"status"`
			} `json:"order"`
		}
		decode(t, w, &approved)
		if approved.CapturePending {
			t.Fatal("capture should have succeeded")
		}
		if approved.Order.Status != "in_production" {
			t.Fatalf("expected in_production, got %s", approved.Order.Status)
		}
	})

	t.Run("double approve conflicts", func(t *testing.T) {
		w := doJSON(t, s, http.MethodPost, "/api/v1/order-items/"+itemID+"/preview/approve", nil)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %v", w.Code)
		}
	})

	t.Run("workflow events reached the feed", func(t *testing.T) {
		w := doJSON(t, s, http.MethodGet, "/api/v1/customers/cust-1/notifications", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list code %v", w.Code)
		}
		var res struct {
			Notifications []struct {
				ID   string `json:"id"`
				Kind string `json:"kind"`
			} `json:"notifications"`
		}
		decode(t, w, &res)
		if len(res.Notifications) != 4 {
			t.Fatalf("expected 4 notifications (ready, revision, ready, approved), got %d", len(res.Notifications))
		}
		if res.Notifications[0].Kind != "preview_approved" {
			t.Fatalf("newest first violated: %+v", res.Notifications)
		}

		w = doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/notifications/"+res.Notifications[0].ID+"/read", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("mark read code %v", w.Code)
		}
	})

	t.Run("order lookup", func(t *testing.T) {
		w := doJSON(t, s, http.MethodGet, "/api/v1/orders/"+order.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get code %v", w.Code)
		}
		w = doJSON(t, s, http.MethodGet, "/api/v1/orders/ghost", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %v", w.Code)
		}
		w = doJSON(t, s, http.MethodGet, "/api/v1/customers/cust-1/orders", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list code %v", w.Code)
		}
	})
}

func TestHealthz(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz code %v", w.Code)
	}
}

func TestStorageFailureSurfacesAs503(t *testing.T) {
	store := kvstore.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })
	store.FailWrites = kvstore.ErrUnavailable

	carts := cartapp.NewService(cartkv.NewCartRepo(store), nil)
	orders := orderapp.NewService(orderkv.NewOrderRepo(store))
	s := NewServer(Deps{Carts: carts, Orders: orders})

	w := doJSON(t, s, http.MethodPost, "/api/v1/customers/cust-1/cart/items", mugItem())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v: %s", w.Code, w.Body.String())
	}
	var res struct {
		Code string `json:"code"`
	}
	decode(t, w, &res)
	if res.Code != "storage_unavailable" {
		t.Fatalf("unexpected code %q", res.Code)
	}
}
