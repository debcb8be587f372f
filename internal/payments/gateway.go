package payments

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/gramsight/gramsight-backend/internal/types"
)

// ConfigurationError signals an absent gateway credential or setting. It is
// distinct from an invalid signature: verification failures fail closed,
// configuration failures surface immediately.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment setting %q is not configured", e.Setting)
}

// CheckoutResult is the outcome of creating a checkout session.
type CheckoutResult struct {
	Reference string
	URL       string
	Amount    decimal.Decimal
	RawData   datatypes.JSON
}

// StatusResult is the outcome of a gateway status retrieval.
type StatusResult struct {
	Status   string
	RawData  datatypes.JSON
	Metadata map[string]string
}

// WebhookEvent is a normalized inbound gateway event.
type WebhookEvent struct {
	EventID   string
	EventType string
	Reference string
	Status    string
	Metadata  map[string]string
}

// Gateway abstracts one payment provider. Implementations register under
// their name; call sites never branch on provider identity.
type Gateway interface {
	CreateCheckout(ctx context.Context, user *types.User, paymentType, target string, quantity int) (*CheckoutResult, error)
	RetrieveStatus(ctx context.Context, reference string) (*StatusResult, error)
	VerifyWebhookSignature(payload []byte, signatureHeader string) (bool, error)
	ProcessWebhookEvent(rawEvent []byte) (*WebhookEvent, error)
	Name() string
}

// Registry maps gateway names to implementations.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: map[string]Gateway{}}
}

func (r *Registry) Register(g Gateway) {
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("unsupported payment gateway: %s", name)
	}
	return g, nil
}

// Names lists registered gateways in stable order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
