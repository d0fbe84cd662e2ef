package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/vendora-market/vendora-backend/pkg/config"
	"github.com/vendora-market/vendora-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	currency      string
	signingSecret string
}

// SessionLine is one display line of a hosted checkout page. UnitPrice is in
// major currency units; the conversion to minor units happens here.
type SessionLine struct {
	Name      string
	UnitPrice decimal.Decimal
	Qty       int64
}

// CheckoutSessionInput carries everything needed to open a hosted payment page.
type CheckoutSessionInput struct {
	OrderID     string
	OrderNumber string
	Lines       []SessionLine
	Shipping    decimal.Decimal
	SuccessURL  string
	CancelURL   string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           api,
		environment:   env,
		currency:      normalizeCurrency(cfg.Currency),
		signingSecret: signingSecret,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateCheckoutSession opens a hosted payment page for an order. The order id
// rides along as session metadata so webhook delivery can find its way back.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if in.OrderID == "" {
		return nil, errors.New("order id is required")
	}
	if len(in.Lines) == 0 {
		return nil, errors.New("at least one line is required")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(in.Lines)+1)
	for _, line := range in.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			Quantity: stripe.Int64(line.Qty),
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(c.currency),
				UnitAmount: stripe.Int64(toMinorUnits(line.UnitPrice)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}
	if in.Shipping.IsPositive() {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(c.currency),
				UnitAmount: stripe.Int64(toMinorUnits(in.Shipping)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping"),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.OrderNumber),
		LineItems:         lineItems,
		Metadata: map[string]string{
			"order_id": in.OrderID,
		},
	}

	session, err := c.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

// RetrieveSession pulls the current state of a hosted checkout session.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	session, err := c.api.V1CheckoutSessions.Retrieve(ctx, sessionID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return session, nil
}

// CreateTransfer moves a vendor's net share to their connected account and
// returns the transfer reference.
func (c *Client) CreateTransfer(ctx context.Context, destination string, amount decimal.Decimal, payoutID string) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("stripe client not initialized")
	}
	if destination == "" {
		return "", errors.New("transfer destination is required")
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	transfer, err := c.api.V1Transfers.Create(ctx, &stripe.TransferCreateParams{
		Amount:      stripe.Int64(toMinorUnits(amount)),
		Currency:    stripe.String(c.currency),
		Destination: stripe.String(destination),
		Metadata: map[string]string{
			"payout_id": payoutID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create transfer: %w", err)
	}
	return transfer.ID, nil
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func normalizeCurrency(raw string) string {
	currency := strings.TrimSpace(strings.ToLower(raw))
	if currency == "" {
		return "usd"
	}
	return currency
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
