// File: internal/infra/api/server.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"kids-content-billing/internal/infra/security"
	"kids-content-billing/internal/usecase"
)

// Server wires billing routes to the orchestration usecases.
type Server struct {
	orderUC    usecase.OrderUseCase
	subUC      usecase.SubscriptionUseCase
	planUC     usecase.PlanUseCase
	callbackUC usecase.CallbackUseCase

	tokens        *security.M2MTokenService
	paymentIssuer string // issuer expected on inbound callback tokens
	serviceName   string // our audience on inbound callback tokens
	webhookSecret string
	reqTimeout    time.Duration
	log           *zerolog.Logger
}

func NewServer(
	orderUC usecase.OrderUseCase,
	subUC usecase.SubscriptionUseCase,
	planUC usecase.PlanUseCase,
	callbackUC usecase.CallbackUseCase,
	tokens *security.M2MTokenService,
	paymentIssuer, serviceName, webhookSecret string,
	reqTimeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	if reqTimeout <= 0 {
		reqTimeout = 30 * time.Second
	}
	return &Server{
		orderUC:       orderUC,
		subUC:         subUC,
		planUC:        planUC,
		callbackUC:    callbackUC,
		tokens:        tokens,
		paymentIssuer: paymentIssuer,
		serviceName:   serviceName,
		webhookSecret: webhookSecret,
		reqTimeout:    reqTimeout,
		log:           logger,
	}
}

// Router builds the chi router with the middleware chain applied.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.reqTimeout))
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders", s.handleListOrders)
		r.Post("/subscriptions", s.handleCreateSubscription)
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Get("/subscriptions/current", s.handleCurrentSubscription)
		r.Post("/subscriptions/{id}/cancel", s.handleCancelSubscription)
		r.Get("/plans", s.handleResolvePlans)
		r.Post("/payments/verify", s.handleVerifyPayment)
	})

	// Callbacks carry the payment service's own m2m token.
	r.With(Timeout(s.reqTimeout), M2MAuth(s.tokens, s.paymentIssuer, s.serviceName, s.log)).
		Post("/payment/callback", s.handleCallback)

	return r
}
