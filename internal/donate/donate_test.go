package donate

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
)

type fakeIntents struct {
	got  Request
	err  error
	call int
}

func (f *fakeIntents) Create(_ context.Context, req Request) (Intent, error) {
	f.call++
	f.got = req
	if f.err != nil {
		return Intent{}, f.err
	}
	return Intent{ClientSecret: "pi_123_secret_456", PaymentIntentID: "pi_123"}, nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    Request
		wantErr string
	}{
		{
			name: "defaults currency",
			req:  Request{Amount: 500},
			want: Request{Amount: 500, Currency: "usd", Metadata: map[string]string{"source": SourceTag}},
		},
		{
			name: "lower cases currency and keeps metadata",
			req:  Request{Amount: 50, Currency: " EUR ", Metadata: map[string]string{"page": "john-3"}},
			want: Request{Amount: 50, Currency: "eur", Metadata: map[string]string{"page": "john-3", "source": SourceTag}},
		},
		{
			name: "source cannot be overridden",
			req:  Request{Amount: 100, Metadata: map[string]string{"source": "elsewhere"}},
			want: Request{Amount: 100, Currency: "usd", Metadata: map[string]string{"source": SourceTag}},
		},
		{
			name:    "below minimum",
			req:     Request{Amount: 49},
			wantErr: "validation failed for amount: Amount must be at least $0.50",
		},
		{
			name:    "negative",
			req:     Request{Amount: -100},
			wantErr: "validation failed for amount: Amount must be at least $0.50",
		},
		{
			name:    "bad currency",
			req:     Request{Amount: 100, Currency: "dollars"},
			wantErr: "validation failed for currency: must be a three-letter currency code",
		},
		{
			name:    "non letter currency",
			req:     Request{Amount: 100, Currency: "u$d"},
			wantErr: "validation failed for currency: must be a three-letter currency code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.req)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("Normalize() error = %v, want %q", err, tt.wantErr)
				}
				if !errors.Is(err, errors.ErrInvalidInput) {
					t.Error("error should match ErrInvalidInput")
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	meta := map[string]string{"page": "ruth-1"}
	if _, err := Normalize(Request{Amount: 100, Metadata: meta}); err != nil {
		t.Fatal(err)
	}
	if _, ok := meta["source"]; ok {
		t.Error("caller metadata was modified")
	}
}

func TestServiceCreateIntent(t *testing.T) {
	fake := &fakeIntents{}
	svc := NewService(fake)

	intent, err := svc.CreateIntent(context.Background(), Request{Amount: 2500, Currency: "USD"})
	if err != nil {
		t.Fatalf("CreateIntent() error = %v", err)
	}
	if intent.ClientSecret != "pi_123_secret_456" || intent.PaymentIntentID != "pi_123" {
		t.Errorf("intent = %+v", intent)
	}
	if fake.got.Currency != "usd" || fake.got.Metadata["source"] != SourceTag {
		t.Errorf("provider received %+v", fake.got)
	}
}

func TestServiceRejectsBeforeProvider(t *testing.T) {
	fake := &fakeIntents{}
	_, err := NewService(fake).CreateIntent(context.Background(), Request{Amount: 10})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if fake.call != 0 {
		t.Error("provider should not be called for invalid requests")
	}
}

func TestServiceProviderFailure(t *testing.T) {
	fake := &fakeIntents{err: errors.NewUpstream("stripe", "create payment intent", fmt.Errorf("Your card was declined."))}
	_, err := NewService(fake).CreateIntent(context.Background(), Request{Amount: 1000})
	if !errors.Is(err, errors.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestServiceDisabled(t *testing.T) {
	var svc *Service
	if svc.Enabled() {
		t.Error("nil service should not be enabled")
	}
	_, err := NewService(nil).CreateIntent(context.Background(), Request{Amount: 1000})
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
