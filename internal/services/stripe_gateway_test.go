// internal/services/stripe_gateway_test.go
package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
)

func stripeTestGateway(create func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)) *StripeGateway {
	return &StripeGateway{currency: "usd", create: create}
}

func TestStripeGatewayEscrowHoldsFunds(t *testing.T) {
	var got *stripe.PaymentIntentParams
	gateway := stripeTestGateway(func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = p
		return &stripe.PaymentIntent{ID: "pi_123"}, nil
	})

	row := models.NewValueIntent(4, 0, licensing.NewEscrowDeposit(9, "licensee", 1500))
	row.ID = uuid.New()

	ref, err := gateway.Execute(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", ref)

	require.NotNil(t, got)
	assert.Equal(t, int64(1500), *got.Amount)
	assert.Equal(t, "usd", *got.Currency)
	assert.Equal(t, string(stripe.PaymentIntentCaptureMethodManual), *got.CaptureMethod)
	assert.Equal(t, "9", got.Metadata["agreement_id"])
	assert.Equal(t, "licensee", got.Metadata["from"])
	assert.Equal(t, "intent_"+row.ID.String(), *got.IdempotencyKey)
}

func TestStripeGatewayFeeTransfer(t *testing.T) {
	var got *stripe.PaymentIntentParams
	gateway := stripeTestGateway(func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = p
		return &stripe.PaymentIntent{ID: "pi_fee"}, nil
	})

	row := models.NewValueIntent(4, 1, licensing.NewFeeTransfer(100, "licensee", "treasury"))
	_, err := gateway.Execute(context.Background(), row)
	require.NoError(t, err)

	assert.Nil(t, got.CaptureMethod)
	assert.Equal(t, "treasury", got.Metadata["to"])
}

func TestStripeGatewayErrors(t *testing.T) {
	gateway := stripeTestGateway(func(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, errors.New("api down")
	})

	_, err := gateway.Execute(context.Background(), models.NewValueIntent(1, 0, licensing.NewFeeTransfer(1, "a", "b")))
	assert.Error(t, err)

	_, err = gateway.Execute(context.Background(), models.NewValueIntent(1, 0, licensing.NewFeeTransfer(math.MaxUint64, "a", "b")))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = gateway.Execute(context.Background(), models.ValueIntent{Kind: "refund", Amount: 1})
	assert.Error(t, err)
}
