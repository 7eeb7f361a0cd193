package payment

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Gateway exchanges an order id and gross amount for an opaque transaction
// token the frontend completes payment with. No webhook verification is done
// here; staff confirm manually or via the proof-of-payment flow.
type Gateway struct {
	api      *client.API
	currency string
}

func NewGateway(secretKey, currency string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{api: api, currency: currency}
}

// CreateTransactionToken creates a payment intent for the order and returns
// its client secret as the opaque token.
func (g *Gateway) CreateTransactionToken(orderID string, grossAmount float64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(grossAmount * 100)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", orderID)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("payment gateway: %w", err)
	}
	return intent.ClientSecret, nil
}
