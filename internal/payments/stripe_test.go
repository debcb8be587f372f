package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

func testGateway(t *testing.T, webhookSecret string) *StripeGateway {
	t.Helper()
	t.Setenv("STRIPE_API_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	gateway, err := NewStripeGateway(log)
	if err != nil {
		t.Fatalf("init gateway: %v", err)
	}
	return gateway
}

func signPayload(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	secret := "whsec_test"
	gateway := testGateway(t, secret)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := "t=1700000000,v1=" + signPayload(secret, "1700000000", payload)

	ok, err := gateway.VerifyWebhookSignature(payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected valid signature")
	}
}

func TestVerifyWebhookSignature_Mismatch(t *testing.T) {
	gateway := testGateway(t, "whsec_test")
	payload := []byte(`{"id":"evt_1"}`)
	header := "t=1700000000,v1=" + signPayload("other_secret", "1700000000", payload)

	ok, err := gateway.VerifyWebhookSignature(payload, header)
	if err != nil {
		t.Fatalf("mismatch must not error, got %v", err)
	}
	if ok {
		t.Fatalf("expected invalid signature")
	}
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	secret := "whsec_test"
	gateway := testGateway(t, secret)
	header := "t=1700000000,v1=" + signPayload(secret, "1700000000", []byte(`{"id":"evt_1"}`))

	ok, err := gateway.VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected invalid signature for tampered payload")
	}
}

func TestVerifyWebhookSignature_MalformedHeader(t *testing.T) {
	gateway := testGateway(t, "whsec_test")
	for _, header := range []string{"", "garbage", "t=123", "v1=abc"} {
		ok, err := gateway.VerifyWebhookSignature([]byte("{}"), header)
		if err != nil {
			t.Fatalf("header %q: unexpected error: %v", header, err)
		}
		if ok {
			t.Fatalf("header %q: expected invalid signature", header)
		}
	}
}

func TestVerifyWebhookSignature_MissingSecret(t *testing.T) {
	gateway := testGateway(t, "")
	ok, err := gateway.VerifyWebhookSignature([]byte("{}"), "t=1,v1=deadbeef")
	if ok {
		t.Fatalf("expected invalid signature")
	}
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestParseSignatureHeader_MultipleV1(t *testing.T) {
	timestamp, signatures, err := parseSignatureHeader("t=123, v1=aaa, v1=bbb, v0=ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timestamp != "123" {
		t.Fatalf("expected timestamp 123, got %q", timestamp)
	}
	if len(signatures) != 2 || signatures[0] != "aaa" || signatures[1] != "bbb" {
		t.Fatalf("unexpected signatures: %v", signatures)
	}
}

func TestProcessWebhookEvent(t *testing.T) {
	gateway := testGateway(t, "whsec_test")
	raw := []byte(`{
		"id": "evt_42",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"payment_status": "paid",
			"metadata": {"target": "abc", "quantity": "3"}
		}}
	}`)
	event, err := gateway.ProcessWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.EventID != "evt_42" || event.EventType != "checkout.session.completed" {
		t.Fatalf("unexpected event identity: %+v", event)
	}
	if event.Reference != "cs_test_1" || event.Status != "paid" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
	if event.Metadata["quantity"] != "3" {
		t.Fatalf("expected metadata to survive, got %v", event.Metadata)
	}
}

func TestProcessWebhookEvent_Malformed(t *testing.T) {
	gateway := testGateway(t, "whsec_test")
	if _, err := gateway.ProcessWebhookEvent([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed event")
	}
}

func TestProductNameFor(t *testing.T) {
	name, err := productNameFor("add-story-credit", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Auto Update Story Credits (x5)" {
		t.Fatalf("unexpected product name: %q", name)
	}
	if _, err := productNameFor("bogus", 1); err == nil {
		t.Fatalf("expected error for unknown payment type")
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	gateway := testGateway(t, "whsec_test")
	registry.Register(gateway)

	got, err := registry.Get("STRIPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name() != "STRIPE" {
		t.Fatalf("unexpected gateway: %s", got.Name())
	}
	if _, err := registry.Get("PAYPAL"); err == nil {
		t.Fatalf("expected error for unregistered gateway")
	}
	names := registry.Names()
	if len(names) != 1 || names[0] != "STRIPE" {
		t.Fatalf("unexpected names: %v", names)
	}
}
