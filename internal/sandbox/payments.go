package sandbox

import (
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/mototaxi/internal/models"
)

// PaymentClient wraps stripe PaymentIntent hold/capture/release for card
// trips: a hold when the trip is accepted, captured on completion,
// released on cancellation. Cash trips never reach this code.
type PaymentClient struct {
	currency string
}

// NewPaymentClient initializes stripe from the STRIPE_API_KEY env var and
// returns nil when the key is absent, which disables card settlement.
func NewPaymentClient(currency string) *PaymentClient {
	key := os.Getenv("STRIPE_API_KEY")
	if key == "" {
		return nil
	}
	stripe.Key = key
	if currency == "" {
		currency = "usd"
	}
	return &PaymentClient{currency: currency}
}

// Hold places a manual-capture PaymentIntent for the agreed price and
// returns its ID.
func (p *PaymentClient) Hold(amount float64, passenger *models.User) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(amount * 100)),
		Currency:      stripe.String(p.currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	if passenger != nil {
		params.Description = stripe.String("mototaxi trip for " + passenger.Username)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

func (p *PaymentClient) Capture(paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

func (p *PaymentClient) Release(paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}
