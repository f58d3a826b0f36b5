//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/ports/adapter"
	"kids-content-billing/internal/infra/security"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	tokens, err := security.NewM2MTokenService("test-m2m-secret", time.Minute)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	c, err := NewClient(baseURL, "kids-app", "billing", "payment-service", tokens, timeout)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	return c
}

func writeEnvelope(w http.ResponseWriter, code int, success bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "data": data})
}

func TestClientCreateOrder(t *testing.T) {
	t.Run("sends auth headers and parses the envelope", func(t *testing.T) {
		var gotAuth, gotAppID, gotPath string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotAppID = r.Header.Get("x-app-id")
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			writeEnvelope(w, http.StatusOK, true, map[string]any{
				"orderId":        "pay_ord_1",
				"gatewayOrderId": "gw_ord_1",
			})
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		res, err := c.CreateOrder(context.Background(), "user-1", 9900, "INR", "subscription", map[string]any{"description": "monthly"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if res.PaymentOrderID != "pay_ord_1" || res.GatewayOrderID != "gw_ord_1" {
			t.Errorf("unexpected result: %+v", res)
		}
		if gotPath != "/order" {
			t.Errorf("expected POST /order, got %s", gotPath)
		}
		if !strings.HasPrefix(gotAuth, "Bearer ") || len(gotAuth) < 20 {
			t.Errorf("expected a bearer token, got %q", gotAuth)
		}
		if gotAppID != "kids-app" {
			t.Errorf("expected x-app-id kids-app, got %q", gotAppID)
		}
		if gotBody["userId"] != "user-1" || gotBody["amount"] != float64(9900) {
			t.Errorf("unexpected request body: %+v", gotBody)
		}
	})

	t.Run("each request carries a parseable m2m token", func(t *testing.T) {
		tokens, _ := security.NewM2MTokenService("test-m2m-secret", time.Minute)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if _, err := tokens.Verify(raw, "billing", "payment-service"); err != nil {
				writeEnvelope(w, http.StatusUnauthorized, false, nil)
				return
			}
			writeEnvelope(w, http.StatusOK, true, map[string]any{"orderId": "pay_ord_1"})
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		if _, err := c.CreateOrder(context.Background(), "user-1", 100, "INR", "", nil); err != nil {
			t.Fatalf("expected the token to verify, but got: %v", err)
		}
	})

	t.Run("missing order id in a successful envelope is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, true, map[string]any{})
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		if _, err := c.CreateOrder(context.Background(), "user-1", 100, "INR", "", nil); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Errorf("expected ErrGatewayUnavailable, got %v", err)
		}
	})
}

func TestClientErrorMapping(t *testing.T) {
	t.Run("timeout maps to ErrGatewayTimeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			writeEnvelope(w, http.StatusOK, true, nil)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, 20*time.Millisecond)
		if _, err := c.TrialEligible(context.Background(), "user-1"); !errors.Is(err, domain.ErrGatewayTimeout) {
			t.Errorf("expected ErrGatewayTimeout, got %v", err)
		}
	})

	t.Run("context deadline maps to ErrGatewayTimeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			writeEnvelope(w, http.StatusOK, true, nil)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := c.TrialEligible(ctx, "user-1"); !errors.Is(err, domain.ErrGatewayTimeout) {
			t.Errorf("expected ErrGatewayTimeout, got %v", err)
		}
	})

	t.Run("5xx maps to ErrGatewayUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		if _, err := c.TrialEligible(context.Background(), "user-1"); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Errorf("expected ErrGatewayUnavailable, got %v", err)
		}
	})

	t.Run("connection refused maps to ErrGatewayUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // immediately; nothing listens anymore

		c := newTestClient(t, srv.URL, time.Second)
		if _, err := c.TrialEligible(context.Background(), "user-1"); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Errorf("expected ErrGatewayUnavailable, got %v", err)
		}
	})

	t.Run("unsuccessful envelope surfaces the remote message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"success":false,"error":["plan not found"]}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		_, err := c.CreateSubscription(context.Background(), "user-1", "rp_x", false, 0)
		if err == nil {
			t.Fatal("expected an error for a rejected request")
		}
		if !strings.Contains(err.Error(), "plan not found") {
			t.Errorf("expected the remote message in the error, got %v", err)
		}
	})
}

func TestClientVerifySuccess(t *testing.T) {
	t.Run("valid verification returns the remote order id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/verify-success" {
				t.Errorf("expected /verify-success, got %s", r.URL.Path)
			}
			writeEnvelope(w, http.StatusOK, true, map[string]any{"orderId": "pay_ord_1", "valid": true})
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		orderID, err := c.VerifySuccess(context.Background(), adapter.VerifyRequest{
			GatewayOrderID: "gw_ord_1", GatewayPaymentID: "gw_pay_1", GatewaySignature: "sig",
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if orderID != "pay_ord_1" {
			t.Errorf("expected pay_ord_1, got %s", orderID)
		}
	})

	t.Run("invalid verification is a credential failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, true, map[string]any{"valid": false})
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL, time.Second)
		if _, err := c.VerifySuccess(context.Background(), adapter.VerifyRequest{GatewayOrderID: "g", GatewayPaymentID: "p", GatewaySignature: "s"}); !errors.Is(err, domain.ErrInvalidCredential) {
			t.Errorf("expected ErrInvalidCredential, got %v", err)
		}
	})
}

func TestClientListEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders":
			if r.URL.Query().Get("userId") != "user 1" {
				t.Errorf("expected escaped userId, got %q", r.URL.Query().Get("userId"))
			}
			writeEnvelope(w, http.StatusOK, true, []map[string]any{
				{"orderId": "pay_ord_1", "status": "paid", "amount": 9900, "currency": "INR"},
			})
		case "/subscriptions":
			writeEnvelope(w, http.StatusOK, true, []map[string]any{
				{"subscriptionId": "pay_sub_1", "planId": "rp_m", "status": "active"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)

	orders, err := c.ListOrders(context.Background(), "user 1")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if len(orders) != 1 || orders[0].PaymentOrderID != "pay_ord_1" || orders[0].Amount != 9900 {
		t.Errorf("unexpected orders: %+v", orders)
	}

	subs, err := c.ListSubscriptions(context.Background(), "user 1")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if len(subs) != 1 || subs[0].PaymentSubscriptionID != "pay_sub_1" {
		t.Errorf("unexpected subscriptions: %+v", subs)
	}
}

func TestNewClientValidation(t *testing.T) {
	tokens, _ := security.NewM2MTokenService("s", time.Minute)
	if _, err := NewClient("", "app", "i", "a", tokens, time.Second); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty base url, got %v", err)
	}
	if _, err := NewClient("http://x", "", "i", "a", tokens, time.Second); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty app id, got %v", err)
	}
	if _, err := NewClient("http://x", "app", "i", "a", nil, time.Second); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil token service, got %v", err)
	}
}
