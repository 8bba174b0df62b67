package payments

import (
	"errors"
	"math"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"telehealth-app-server/internal/config"
)

// ErrDisabled is returned when no Stripe secret key is configured.
var ErrDisabled = errors.New("payment gateway is not configured")

// Gateway is a thin wrapper over the Stripe client. The billing core
// treats a succeeded PaymentIntent as the opaque confirmation that money
// has been captured; nothing here verifies payments beyond retrieving
// the intent.
type Gateway struct {
	sc       *client.API
	currency string
}

// NewGateway returns a configured gateway, or one that fails with
// ErrDisabled when no secret key is set.
func NewGateway(cfg config.StripeConfig) *Gateway {
	g := &Gateway{currency: cfg.Currency}
	if cfg.SecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		g.sc = sc
	}
	return g
}

// CreateIntent opens a PaymentIntent for the given amount (currency
// units) with metadata the confirm step uses to route settlement.
func (g *Gateway) CreateIntent(amount float64, metadata map[string]string) (*stripe.PaymentIntent, error) {
	if g.sc == nil {
		return nil, ErrDisabled
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(g.currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return g.sc.PaymentIntents.New(params)
}

// RetrieveIntent fetches a PaymentIntent by id.
func (g *Gateway) RetrieveIntent(id string) (*stripe.PaymentIntent, error) {
	if g.sc == nil {
		return nil, ErrDisabled
	}
	return g.sc.PaymentIntents.Get(id, nil)
}

// Succeeded reports whether the intent has captured the money.
func Succeeded(intent *stripe.PaymentIntent) bool {
	return intent != nil && intent.Status == stripe.PaymentIntentStatusSucceeded
}
