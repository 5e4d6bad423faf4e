// Package payment creates hosted checkout sessions at Stripe and verifies
// their webhook callbacks.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
)

const eventCheckoutCompleted = "checkout.session.completed"

// Config stores payment gateway configuration
type Config struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string `yaml:"currency" env:"STRIPE_CURRENCY"`
}

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeGateway struct {
	sessions      sessionCreator
	webhookSecret string
	currency      string
	breaker       *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	tracer        trace.Tracer
}

// NewStripeGateway will create an object that represent the domain.PaymentGateway interface
func NewStripeGateway(cfg Config, logger *zap.Logger, tracer trace.Tracer) domain.PaymentGateway {
	return newStripeGateway(cfg, &session.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: cfg.SecretKey,
	}, logger, tracer)
}

func newStripeGateway(cfg Config, sessions sessionCreator, logger *zap.Logger, tracer trace.Tracer) *stripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &stripeGateway{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		tracer:        tracer,
		breaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
			Name:        "stripe",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, r domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	ctx, span := g.tracer.Start(
		ctx,
		"gateway CreateCheckoutSession",
		trace.WithAttributes(
			attribute.String("tourid", r.TourID)),
	)
	defer span.End()

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(r.SuccessURL),
		CancelURL:          stripe.String(r.CancelURL),
		CustomerEmail:      stripe.String(r.CustomerEmail),
		ClientReferenceID:  stripe.String(r.TourID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(int64(math.Round(r.Price * 100))),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(r.TourName + " Tour"),
						Description: stripe.String(r.Summary),
						Images:      stripe.StringSlice(r.Images),
					},
				},
			},
		},
	}
	params.Context = ctx

	s, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't create checkout session: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return &domain.CheckoutSession{
		ID:  s.ID,
		URL: s.URL,
	}, nil
}

func (g *stripeGateway) ParseWebhook(payload []byte, signature string) (*domain.CheckoutCompleted, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, err
	}

	if event.Type != eventCheckoutCompleted {
		return nil, nil
	}

	var s stripe.CheckoutSession
	if err = json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("can't unmarshal checkout session: %w", err)
	}

	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}

	return &domain.CheckoutCompleted{
		TourID:        s.ClientReferenceID,
		CustomerEmail: email,
		AmountTotal:   s.AmountTotal,
	}, nil
}
