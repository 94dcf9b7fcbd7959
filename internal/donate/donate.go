// Package donate creates payment intents for site donations.
package donate

import (
	"context"
	"maps"
	"strings"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
)

// MinAmount is the smallest donation accepted, in cents.
const MinAmount = 50

// DefaultCurrency is used when a request names none.
const DefaultCurrency = "usd"

// SourceTag is the metadata value every intent carries under "source".
const SourceTag = "reformed-chapter-donation"

// Request is a donation as submitted by the browser.
type Request struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Intent is the part of a created payment intent the client needs to
// confirm the payment.
type Intent struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// PaymentIntents creates payment intents with a payment provider.
type PaymentIntents interface {
	Create(ctx context.Context, req Request) (Intent, error)
}

// Normalize validates req and returns a copy with the currency lower-cased,
// defaulted and the source tag added to the metadata.
func Normalize(req Request) (Request, error) {
	if req.Amount < MinAmount {
		return Request{}, &errors.ValidationError{Field: "amount", Message: "Amount must be at least $0.50"}
	}

	cur := strings.ToLower(strings.TrimSpace(req.Currency))
	if cur == "" {
		cur = DefaultCurrency
	}
	if !isCurrencyCode(cur) {
		return Request{}, &errors.ValidationError{Field: "currency", Value: req.Currency, Message: "must be a three-letter currency code"}
	}

	meta := make(map[string]string, len(req.Metadata)+1)
	maps.Copy(meta, req.Metadata)
	meta["source"] = SourceTag

	return Request{Amount: req.Amount, Currency: cur, Metadata: meta}, nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// Service validates donations and passes them to a provider.
type Service struct {
	intents PaymentIntents
}

// NewService creates a donation service over intents.
func NewService(intents PaymentIntents) *Service {
	return &Service{intents: intents}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.intents != nil
}

// CreateIntent validates req and creates a payment intent for it.
func (s *Service) CreateIntent(ctx context.Context, req Request) (Intent, error) {
	if !s.Enabled() {
		return Intent{}, errors.NewUnsupported("donations", "no payment provider configured")
	}
	req, err := Normalize(req)
	if err != nil {
		return Intent{}, err
	}

	intent, err := s.intents.Create(ctx, req)
	if err != nil {
		logging.ErrorContext(ctx, "payment intent failed", "amount", req.Amount, "currency", req.Currency, "error", err)
		return Intent{}, err
	}
	logging.DonationEvent(ctx, intent.PaymentIntentID, req.Amount, req.Currency)
	return intent, nil
}
