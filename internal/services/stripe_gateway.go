// internal/services/stripe_gateway.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
)

var ErrAmountOverflow = errors.New("amount exceeds payment provider limit")

// StripeGateway turns intents into Stripe PaymentIntents. Escrow deposits
// are created with manual capture so the funds stay held until released.
type StripeGateway struct {
	currency string
	create   func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	// Initialize Stripe
	stripe.Key = secretKey

	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{
		currency: currency,
		create:   paymentintent.New,
	}
}

func (g *StripeGateway) Execute(ctx context.Context, intent models.ValueIntent) (string, error) {
	params, err := g.params(ctx, intent)
	if err != nil {
		return "", err
	}

	pi, err := g.create(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return pi.ID, nil
}

func (g *StripeGateway) params(ctx context.Context, intent models.ValueIntent) (*stripe.PaymentIntentParams, error) {
	if intent.Amount > math.MaxInt64 {
		return nil, ErrAmountOverflow
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(intent.Amount)),
		Currency: stripe.String(g.currency),
	}
	params.Context = ctx
	params.SetIdempotencyKey("intent_" + intent.ID.String())

	params.AddMetadata("intent_id", intent.ID.String())
	params.AddMetadata("kind", intent.Kind)
	params.AddMetadata("from", intent.FromPrincipal)
	params.AddMetadata("receipt_sequence", strconv.FormatUint(intent.ReceiptSequence, 10))

	switch licensing.IntentKind(intent.Kind) {
	case licensing.IntentEscrowDeposit:
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
		if intent.AgreementID != nil {
			agreementID := strconv.FormatUint(*intent.AgreementID, 10)
			params.AddMetadata("agreement_id", agreementID)
			params.Description = stripe.String("Escrow deposit for agreement " + agreementID)
		}
	case licensing.IntentFeeTransfer:
		params.AddMetadata("to", intent.ToPrincipal)
		params.Description = stripe.String("Platform fee to " + intent.ToPrincipal)
	default:
		return nil, fmt.Errorf("unknown intent kind %q", intent.Kind)
	}

	return params, nil
}
