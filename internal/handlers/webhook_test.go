package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type fakePaymentService struct {
	webhookCalls int
	webhookErr   error
}

func (f *fakePaymentService) CreateCheckout(_ context.Context, _ *types.User, _, _, _ string, _ int) (*types.Payment, error) {
	return nil, nil
}
func (f *fakePaymentService) GetByID(_ context.Context, _ uuid.UUID) (*types.Payment, error) {
	return nil, nil
}
func (f *fakePaymentService) ListForUser(_ context.Context, _ uuid.UUID, _, _ int) ([]*types.Payment, error) {
	return nil, nil
}
func (f *fakePaymentService) History(_ context.Context, _ uuid.UUID) ([]*types.PaymentHistory, error) {
	return nil, nil
}
func (f *fakePaymentService) GatewayNames() []string { return []string{"STRIPE"} }
func (f *fakePaymentService) UpdateStatus(_ context.Context, _ uuid.UUID) (*types.Payment, error) {
	return nil, nil
}
func (f *fakePaymentService) HandleWebhook(_ context.Context, _ string, _ []byte, _ string) error {
	f.webhookCalls++
	return f.webhookErr
}
func (f *fakePaymentService) ProcessCheckoutCompleted(_ context.Context, _ string) error { return nil }
func (f *fakePaymentService) ProcessIntentSucceeded(_ context.Context, _, _ string) (int, error) {
	return 0, nil
}

func webhookRequest(t *testing.T, svc services.PaymentService, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	router := gin.New()
	router.POST("/api/payments/webhooks/stripe", NewWebhookHandler(log, svc).Stripe)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/stripe", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestStripeWebhook_MissingHeader(t *testing.T) {
	svc := &fakePaymentService{}
	recorder := webhookRequest(t, svc, `{"id":"evt_1"}`, "")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if svc.webhookCalls != 0 {
		t.Fatalf("missing header must short-circuit before the service")
	}
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	svc := &fakePaymentService{webhookErr: services.ErrInvalidWebhookSignature}
	recorder := webhookRequest(t, svc, `{"id":"evt_1"}`, "t=1,v1=bad")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if svc.webhookCalls != 1 {
		t.Fatalf("expected one service call, got %d", svc.webhookCalls)
	}
}

func TestStripeWebhook_Accepted(t *testing.T) {
	svc := &fakePaymentService{}
	recorder := webhookRequest(t, svc, `{"id":"evt_1"}`, "t=1,v1=good")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}
