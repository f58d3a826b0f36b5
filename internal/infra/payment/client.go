package payment

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

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/ports/adapter"
	"kids-content-billing/internal/infra/metrics"
	"kids-content-billing/internal/infra/security"
)

var _ adapter.PaymentService = (*Client)(nil)

// Client is the typed HTTP client for the payment microservice. Every request
// carries a freshly minted M2M bearer token plus the application id header.
type Client struct {
	baseURL  string
	appID    string
	issuer   string
	audience string
	tokens   *security.M2MTokenService
	http     *http.Client
}

func NewClient(baseURL, appID, issuer, audience string, tokens *security.M2MTokenService, timeout time.Duration) (*Client, error) {
	if baseURL == "" || appID == "" || tokens == nil {
		return nil, domain.ErrInvalidArgument
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		appID:    appID,
		issuer:   issuer,
		audience: audience,
		tokens:   tokens,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// envelope is the remote service's shared response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   []string        `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token, err := c.tokens.Mint(c.issuer, c.audience)
	if err != nil {
		return fmt.Errorf("mint m2m token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveGatewayCall(method+" "+path, time.Since(start), err == nil)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrGatewayUnavailable
	}
	if resp.StatusCode >= 500 {
		return domain.ErrGatewayUnavailable
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: malformed response", domain.ErrGatewayUnavailable)
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" && len(env.Error) > 0 {
			msg = strings.Join(env.Error, "; ")
		}
		return fmt.Errorf("payment service rejected request: %s", msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrGatewayTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ErrGatewayTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return domain.ErrGatewayTimeout
	}
	return domain.ErrGatewayUnavailable
}

type createOrderRequest struct {
	UserID    string         `json:"userId"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	OrderType string         `json:"orderType"`
	Context   map[string]any `json:"paymentContext,omitempty"`
}

type createOrderResponse struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
}

func (c *Client) CreateOrder(ctx context.Context, userID string, amount int64, currency, orderType string, pc map[string]any) (*adapter.CreateOrderResult, error) {
	var out createOrderResponse
	err := c.do(ctx, http.MethodPost, "/order", createOrderRequest{
		UserID: userID, Amount: amount, Currency: currency, OrderType: orderType, Context: pc,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", domain.ErrGatewayUnavailable)
	}
	return &adapter.CreateOrderResult{PaymentOrderID: out.OrderID, GatewayOrderID: out.GatewayOrderID}, nil
}

type createSubscriptionRequest struct {
	UserID      string `json:"userId"`
	PlanID      string `json:"planId"`
	Trial       bool   `json:"trial"`
	TotalCycles int    `json:"totalCycles,omitempty"`
}

type createSubscriptionResponse struct {
	SubscriptionID        string `json:"subscriptionId"`
	GatewaySubscriptionID string `json:"gatewaySubscriptionId"`
	AuthorizationURL      string `json:"authorizationUrl"`
}

func (c *Client) CreateSubscription(ctx context.Context, userID, remotePlanID string, trial bool, totalCycles int) (*adapter.CreateSubscriptionResult, error) {
	var out createSubscriptionResponse
	err := c.do(ctx, http.MethodPost, "/subscription", createSubscriptionRequest{
		UserID: userID, PlanID: remotePlanID, Trial: trial, TotalCycles: totalCycles,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: missing subscription id", domain.ErrGatewayUnavailable)
	}
	return &adapter.CreateSubscriptionResult{
		PaymentSubscriptionID: out.SubscriptionID,
		GatewaySubscriptionID: out.GatewaySubscriptionID,
		AuthorizationURL:      out.AuthorizationURL,
	}, nil
}

type remoteOrderDTO struct {
	OrderID          string    `json:"orderId"`
	Status           string    `json:"status"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	GatewayPaymentID string    `json:"gatewayPaymentId"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (c *Client) ListOrders(ctx context.Context, userID string) ([]adapter.RemoteOrder, error) {
	var out []remoteOrderDTO
	if err := c.do(ctx, http.MethodGet, "/orders?userId="+url.QueryEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	orders := make([]adapter.RemoteOrder, 0, len(out))
	for _, o := range out {
		orders = append(orders, adapter.RemoteOrder{
			PaymentOrderID:   o.OrderID,
			Status:           o.Status,
			Amount:           o.Amount,
			Currency:         o.Currency,
			GatewayPaymentID: o.GatewayPaymentID,
			CreatedAt:        o.CreatedAt,
		})
	}
	return orders, nil
}

type remoteSubscriptionDTO struct {
	SubscriptionID string     `json:"subscriptionId"`
	PlanID         string     `json:"planId"`
	Status         string     `json:"status"`
	NextBillingAt  *time.Time `json:"nextBillingAt"`
}

func (c *Client) ListSubscriptions(ctx context.Context, userID string) ([]adapter.RemoteSubscription, error) {
	var out []remoteSubscriptionDTO
	if err := c.do(ctx, http.MethodGet, "/subscriptions?userId="+url.QueryEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	subs := make([]adapter.RemoteSubscription, 0, len(out))
	for _, s := range out {
		subs = append(subs, adapter.RemoteSubscription{
			PaymentSubscriptionID: s.SubscriptionID,
			PlanID:                s.PlanID,
			Status:                s.Status,
			NextBillingAt:         s.NextBillingAt,
		})
	}
	return subs, nil
}

type verifyRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewaySignature string `json:"gatewaySignature"`
}

type verifyResponse struct {
	OrderID string `json:"orderId"`
	Valid   bool   `json:"valid"`
}

func (c *Client) VerifySuccess(ctx context.Context, req adapter.VerifyRequest) (string, error) {
	var out verifyResponse
	err := c.do(ctx, http.MethodPost, "/verify-success", verifyRequest{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
	}, &out)
	if err != nil {
		return "", err
	}
	if !out.Valid {
		return "", domain.ErrInvalidCredential
	}
	return out.OrderID, nil
}

type trialEligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

func (c *Client) TrialEligible(ctx context.Context, userID string) (bool, error) {
	var out trialEligibilityResponse
	if err := c.do(ctx, http.MethodGet, "/trial-eligibility?userId="+url.QueryEscape(userID), nil, &out); err != nil {
		return false, err
	}
	return out.Eligible, nil
}
