package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/payments"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type fakePaymentRepo struct {
	payments    map[uuid.UUID]*types.Payment
	lockCalls   int
	updateCalls int
}

func (f *fakePaymentRepo) Create(_ context.Context, _ *gorm.DB, rows []*types.Payment) ([]*types.Payment, error) {
	for _, p := range rows {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		f.payments[p.ID] = p
	}
	return rows, nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Payment, error) {
	return f.payments[id], nil
}

func (f *fakePaymentRepo) GetByReference(_ context.Context, _ *gorm.DB, reference string) (*types.Payment, error) {
	for _, p := range f.payments {
		if p.Reference == reference {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) LockByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Payment, error) {
	f.lockCalls++
	return f.payments[id], nil
}

func (f *fakePaymentRepo) ListByUser(_ context.Context, _ *gorm.DB, _ uuid.UUID, _, _ int) ([]*types.Payment, error) {
	return nil, nil
}

func (f *fakePaymentRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.updateCalls++
	p := f.payments[id]
	if status, ok := updates["status"].(string); ok {
		p.Status = status
	}
	if raw, ok := updates["raw_data"].(datatypes.JSON); ok {
		p.RawData = raw
	}
	return nil
}

type fakeHistoryRepo struct {
	rows []*types.PaymentHistory
}

func (f *fakeHistoryRepo) Create(_ context.Context, _ *gorm.DB, rows []*types.PaymentHistory) ([]*types.PaymentHistory, error) {
	f.rows = append(f.rows, rows...)
	return rows, nil
}

func (f *fakeHistoryRepo) ListByPayment(_ context.Context, _ *gorm.DB, paymentID uuid.UUID) ([]*types.PaymentHistory, error) {
	var out []*types.PaymentHistory
	for _, row := range f.rows {
		if row.PaymentID == paymentID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeGateway struct {
	retrieveCalls int
	status        *payments.StatusResult
}

func (f *fakeGateway) CreateCheckout(_ context.Context, _ *types.User, _, _ string, _ int) (*payments.CheckoutResult, error) {
	return &payments.CheckoutResult{Reference: "cs_fake", Amount: decimal.Zero}, nil
}

func (f *fakeGateway) RetrieveStatus(_ context.Context, _ string) (*payments.StatusResult, error) {
	f.retrieveCalls++
	return f.status, nil
}

func (f *fakeGateway) VerifyWebhookSignature(_ []byte, _ string) (bool, error) { return true, nil }

func (f *fakeGateway) ProcessWebhookEvent(_ []byte) (*payments.WebhookEvent, error) {
	return &payments.WebhookEvent{}, nil
}

func (f *fakeGateway) Name() string { return types.ReferenceTypeStripe }

type fakeCreditService struct {
	grants []*types.Payment
}

func (f *fakeCreditService) GrantFromPayment(_ context.Context, _ *gorm.DB, payment *types.Payment, _ map[string]string) error {
	f.grants = append(f.grants, payment)
	return nil
}

func (f *fakeCreditService) BalanceForAccount(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func paymentTestService(t *testing.T, gateway *fakeGateway, paymentRepo *fakePaymentRepo, historyRepo *fakeHistoryRepo, credits *fakeCreditService) PaymentService {
	t.Helper()
	registry := payments.NewRegistry()
	registry.Register(gateway)
	return NewPaymentService(nil, registry, paymentRepo, historyRepo, nil, credits, nil, testLogger(t))
}

func TestUpdateStatus_PaidStaysPaid(t *testing.T) {
	paid := &types.Payment{
		ID:            uuid.New(),
		ReferenceType: types.ReferenceTypeStripe,
		Reference:     "cs_paid",
		Status:        types.PaymentStatusPaid,
		Type:          types.PaymentTypeStoryCredit,
	}
	paymentRepo := &fakePaymentRepo{payments: map[uuid.UUID]*types.Payment{paid.ID: paid}}
	historyRepo := &fakeHistoryRepo{}
	gateway := &fakeGateway{status: &payments.StatusResult{Status: types.PaymentStatusUnpaid}}
	credits := &fakeCreditService{}
	svc := paymentTestService(t, gateway, paymentRepo, historyRepo, credits)

	out, err := svc.UpdateStatus(context.Background(), paid.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != types.PaymentStatusPaid {
		t.Fatalf("expected paid status, got %q", out.Status)
	}
	if gateway.retrieveCalls != 0 {
		t.Errorf("expected zero gateway calls for a paid payment, got %d", gateway.retrieveCalls)
	}
	if paymentRepo.updateCalls != 0 {
		t.Errorf("expected zero payment writes, got %d", paymentRepo.updateCalls)
	}
	if len(historyRepo.rows) != 0 {
		t.Errorf("expected no history rows, got %d", len(historyRepo.rows))
	}
	if len(credits.grants) != 0 {
		t.Errorf("expected no credit grants, got %d", len(credits.grants))
	}
}

func TestUpdateStatus_TransitionToPaidGrantsCredits(t *testing.T) {
	unpaid := &types.Payment{
		ID:            uuid.New(),
		ReferenceType: types.ReferenceTypeStripe,
		Reference:     "cs_open",
		Status:        types.PaymentStatusUnpaid,
		Type:          types.PaymentTypeStoryCredit,
	}
	paymentRepo := &fakePaymentRepo{payments: map[uuid.UUID]*types.Payment{unpaid.ID: unpaid}}
	historyRepo := &fakeHistoryRepo{}
	gateway := &fakeGateway{status: &payments.StatusResult{
		Status:   types.PaymentStatusPaid,
		RawData:  datatypes.JSON(`{"payment_status":"paid"}`),
		Metadata: map[string]string{"target": uuid.NewString(), "quantity": "2"},
	}}
	credits := &fakeCreditService{}
	svc := paymentTestService(t, gateway, paymentRepo, historyRepo, credits)

	out, err := svc.UpdateStatus(context.Background(), unpaid.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != types.PaymentStatusPaid {
		t.Fatalf("expected paid status, got %q", out.Status)
	}
	if gateway.retrieveCalls != 1 {
		t.Fatalf("expected one gateway call, got %d", gateway.retrieveCalls)
	}
	if paymentRepo.updateCalls != 1 {
		t.Errorf("expected one payment write, got %d", paymentRepo.updateCalls)
	}
	if len(historyRepo.rows) != 1 || historyRepo.rows[0].Status != types.PaymentStatusPaid {
		t.Fatalf("expected one paid history row, got %+v", historyRepo.rows)
	}
	if len(credits.grants) != 1 {
		t.Fatalf("expected one credit grant, got %d", len(credits.grants))
	}

	// A webhook re-delivery reconciles the same payment again; the paid
	// status must hold without another gateway call or write.
	if _, err := svc.UpdateStatus(context.Background(), unpaid.ID); err != nil {
		t.Fatalf("unexpected error on re-delivery: %v", err)
	}
	if gateway.retrieveCalls != 1 {
		t.Errorf("expected gateway calls to stay at 1, got %d", gateway.retrieveCalls)
	}
	if paymentRepo.updateCalls != 1 {
		t.Errorf("expected payment writes to stay at 1, got %d", paymentRepo.updateCalls)
	}
	if len(historyRepo.rows) != 1 {
		t.Errorf("expected history rows to stay at 1, got %d", len(historyRepo.rows))
	}
	if len(credits.grants) != 1 {
		t.Errorf("expected credit grants to stay at 1, got %d", len(credits.grants))
	}
}

func TestUpdateStatus_NonCreditTypeDoesNotGrant(t *testing.T) {
	unpaid := &types.Payment{
		ID:            uuid.New(),
		ReferenceType: types.ReferenceTypeStripe,
		Reference:     "cs_profile",
		Status:        types.PaymentStatusUnpaid,
		Type:          types.PaymentTypeProfileCredit,
	}
	paymentRepo := &fakePaymentRepo{payments: map[uuid.UUID]*types.Payment{unpaid.ID: unpaid}}
	historyRepo := &fakeHistoryRepo{}
	gateway := &fakeGateway{status: &payments.StatusResult{Status: types.PaymentStatusPaid}}
	credits := &fakeCreditService{}
	svc := paymentTestService(t, gateway, paymentRepo, historyRepo, credits)

	if _, err := svc.UpdateStatus(context.Background(), unpaid.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(credits.grants) != 0 {
		t.Errorf("profile credit payments must not grant story credits, got %d grants", len(credits.grants))
	}
}
