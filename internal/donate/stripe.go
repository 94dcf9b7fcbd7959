package donate

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
)

// StripeIntents creates payment intents through the Stripe API.
type StripeIntents struct {
	client paymentintent.Client
}

// NewStripe returns a Stripe-backed PaymentIntents using secretKey.
func NewStripe(secretKey string) *StripeIntents {
	return &StripeIntents{
		client: paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

// Create creates a payment intent with automatic payment methods enabled.
// req is expected to have been through Normalize.
func (s *StripeIntents) Create(ctx context.Context, req Request) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.client.New(params)
	if err != nil {
		return Intent{}, errors.NewUpstream("stripe", "create payment intent", stripeMessage(err))
	}
	return Intent{ClientSecret: pi.ClientSecret, PaymentIntentID: pi.ID}, nil
}

// stripeMessage replaces a *stripe.Error with its human-readable message;
// its Error method renders the whole JSON payload.
func stripeMessage(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return fmt.Errorf("%s", se.Msg)
	}
	return err
}
