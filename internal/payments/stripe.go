package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/types"
	"github.com/gramsight/gramsight-backend/internal/utils"
)

// StripeGateway implements Gateway over the Stripe REST API using
// form-encoded checkout session calls.
type StripeGateway struct {
	apiKey        string
	webhookSecret string
	successURL    string
	cancelURL     string
	baseURL       string
	httpClient    *http.Client
	log           *logger.Logger
}

func NewStripeGateway(log *logger.Logger) (*StripeGateway, error) {
	gatewayLog := log.With("service", "StripeGateway")
	apiKey := utils.GetEnv("STRIPE_API_KEY", "", log)
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigurationError{Setting: "STRIPE_API_KEY"}
	}
	return &StripeGateway{
		apiKey:        apiKey,
		webhookSecret: utils.GetEnv("STRIPE_WEBHOOK_SECRET", "", log),
		successURL:    utils.GetEnv("STRIPE_SUCCESS_URL", "", log),
		cancelURL:     utils.GetEnv("STRIPE_CANCEL_URL", "", log),
		baseURL:       utils.GetEnv("STRIPE_BASE_URL", "https://api.stripe.com", log),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           gatewayLog,
	}, nil
}

func (g *StripeGateway) Name() string { return types.ReferenceTypeStripe }

type stripeSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	AmountTotal   int64             `json:"amount_total"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *StripeGateway) doRequest(ctx context.Context, method, path string, values url.Values, idempotencyKey string) ([]byte, error) {
	var bodyReader io.Reader = strings.NewReader("")
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe api error: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stripe api error: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if jsonErr := json.Unmarshal(raw, &stripeErr); jsonErr == nil && strings.TrimSpace(stripeErr.Error.Message) != "" {
			return nil, fmt.Errorf("stripe api error: %s", stripeErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe api error: unexpected status %d", resp.StatusCode)
	}
	return raw, nil
}

func productNameFor(paymentType string, quantity int) (string, error) {
	switch paymentType {
	case types.PaymentTypeStoryCredit:
		return fmt.Sprintf("Auto Update Story Credits (x%d)", quantity), nil
	case types.PaymentTypeProfileCredit:
		return fmt.Sprintf("Profile Credits (x%d)", quantity), nil
	default:
		return "", fmt.Errorf("unknown payment type: %s", paymentType)
	}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, user *types.User, paymentType, target string, quantity int) (*CheckoutResult, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required for checkout")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	productName, err := productNameFor(paymentType, quantity)
	if err != nil {
		return nil, err
	}
	unitAmount := utils.GetEnvAsInt("STRIPE_CREDIT_UNIT_AMOUNT", 100, g.log)

	values := url.Values{}
	values.Set("payment_method_types[]", "card")
	values.Set("mode", "payment")
	values.Set("success_url", g.successURL)
	values.Set("cancel_url", g.cancelURL)
	values.Set("line_items[0][price_data][currency]", "usd")
	values.Set("line_items[0][price_data][product_data][name]", productName)
	values.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(unitAmount))
	values.Set("line_items[0][quantity]", strconv.Itoa(quantity))
	values.Set("metadata[user_id]", user.ID.String())
	values.Set("metadata[payment_type]", paymentType)
	values.Set("metadata[target]", target)
	values.Set("metadata[quantity]", strconv.Itoa(quantity))

	raw, err := g.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, "checkout:"+user.ID.String()+":"+target)
	if err != nil {
		return nil, err
	}
	var session stripeSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("stripe api error: malformed session payload: %w", err)
	}
	if session.ID == "" {
		return nil, errors.New("stripe api error: session payload missing id")
	}
	return &CheckoutResult{
		Reference: session.ID,
		URL:       session.URL,
		Amount:    decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100)),
		RawData:   raw,
	}, nil
}

func (g *StripeGateway) RetrieveStatus(ctx context.Context, reference string) (*StatusResult, error) {
	raw, err := g.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(reference), nil, "")
	if err != nil {
		return nil, err
	}
	var session stripeSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("stripe api error: malformed session payload: %w", err)
	}
	return &StatusResult{
		Status:   session.PaymentStatus,
		RawData:  raw,
		Metadata: session.Metadata,
	}, nil
}

// SessionsByPaymentIntent lists checkout sessions created for a payment
// intent. Used by the intent-succeeded webhook processor to recover the
// session reference.
func (g *StripeGateway) SessionsByPaymentIntent(ctx context.Context, paymentIntentID string) ([]string, error) {
	values := url.Values{}
	values.Set("payment_intent", paymentIntentID)
	raw, err := g.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions?"+values.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	var list struct {
		Data []stripeSession `json:"data"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("stripe api error: malformed session list: %w", err)
	}
	refs := make([]string, 0, len(list.Data))
	for _, s := range list.Data {
		if s.ID != "" {
			refs = append(refs, s.ID)
		}
	}
	return refs, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the
// webhook secret. Mismatch returns false with no error; a missing secret is
// a ConfigurationError.
func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signatureHeader string) (bool, error) {
	if strings.TrimSpace(g.webhookSecret) == "" {
		return false, &ConfigurationError{Setting: "STRIPE_WEBHOOK_SECRET"}
	}
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return false, nil
	}
	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return true, nil
		}
	}
	return false, nil
}

// parseSignatureHeader splits "t=<ts>,v1=<sig>[,v1=<sig>...]".
func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid signature header")
	}
	return timestamp, signatures, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeSession `json:"object"`
	} `json:"data"`
}

func (g *StripeGateway) ProcessWebhookEvent(rawEvent []byte) (*WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(rawEvent, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook event: %w", err)
	}
	return &WebhookEvent{
		EventID:   event.ID,
		EventType: event.Type,
		Reference: event.Data.Object.ID,
		Status:    event.Data.Object.PaymentStatus,
		Metadata:  event.Data.Object.Metadata,
	}, nil
}
