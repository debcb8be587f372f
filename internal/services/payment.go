package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/payments"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/types"
)

const (
	JobPaymentCheckoutCompleted = "payment.checkout_completed"
	JobPaymentIntentSucceeded   = "payment.intent_succeeded"
)

// Webhook event types the processor reacts to. Other event types are
// logged and ignored.
const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventIntentSucceeded   = "payment_intent.succeeded"
)

// ErrInvalidWebhookSignature is returned when a webhook payload fails
// signature verification. Nothing about the payload is persisted in that
// case.
var ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

// intentLister is the optional gateway capability of resolving checkout
// sessions from a payment intent id.
type intentLister interface {
	SessionsByPaymentIntent(ctx context.Context, paymentIntentID string) ([]string, error)
}

// PaymentService owns the payment lifecycle: checkout creation, status
// reconciliation and webhook intake. Status updates are monotonic; once a
// payment is paid no further gateway call or write happens for it.
type PaymentService interface {
	CreateCheckout(ctx context.Context, user *types.User, referenceType, paymentType, target string, quantity int) (*types.Payment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Payment, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Payment, error)
	History(ctx context.Context, paymentID uuid.UUID) ([]*types.PaymentHistory, error)
	GatewayNames() []string
	UpdateStatus(ctx context.Context, paymentID uuid.UUID) (*types.Payment, error)
	HandleWebhook(ctx context.Context, referenceType string, payload []byte, signatureHeader string) error
	ProcessCheckoutCompleted(ctx context.Context, reference string) error
	ProcessIntentSucceeded(ctx context.Context, referenceType, intentID string) (int, error)
}

type paymentService struct {
	db          *gorm.DB
	registry    *payments.Registry
	paymentRepo repos.PaymentRepo
	historyRepo repos.PaymentHistoryRepo
	webhookRepo repos.WebhookLogRepo
	credits     CreditService
	enqueuer    jobs.Enqueuer
	log         *logger.Logger
}

func NewPaymentService(
	db *gorm.DB,
	registry *payments.Registry,
	paymentRepo repos.PaymentRepo,
	historyRepo repos.PaymentHistoryRepo,
	webhookRepo repos.WebhookLogRepo,
	credits CreditService,
	enqueuer jobs.Enqueuer,
	baseLog *logger.Logger,
) PaymentService {
	return &paymentService{
		db:          db,
		registry:    registry,
		paymentRepo: paymentRepo,
		historyRepo: historyRepo,
		webhookRepo: webhookRepo,
		credits:     credits,
		enqueuer:    enqueuer,
		log:         baseLog.With("service", "PaymentService"),
	}
}

func (s *paymentService) CreateCheckout(ctx context.Context, user *types.User, referenceType, paymentType, target string, quantity int) (*types.Payment, error) {
	gateway, err := s.registry.Get(referenceType)
	if err != nil {
		return nil, err
	}
	if paymentType != types.PaymentTypeStoryCredit && paymentType != types.PaymentTypeProfileCredit {
		return nil, &PreconditionError{Msg: fmt.Sprintf("unknown payment type: %s", paymentType)}
	}
	if quantity < 1 {
		return nil, &PreconditionError{Msg: "quantity must be at least 1"}
	}

	checkout, err := gateway.CreateCheckout(ctx, user, paymentType, target, quantity)
	if err != nil {
		return nil, err
	}

	payment := &types.Payment{
		UserID:        user.ID,
		ReferenceType: gateway.Name(),
		Reference:     checkout.Reference,
		URL:           checkout.URL,
		Status:        types.PaymentStatusUnpaid,
		Type:          paymentType,
		Amount:        checkout.Amount,
		RawData:       checkout.RawData,
	}
	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		created, txErr := s.paymentRepo.Create(ctx, tx, []*types.Payment{payment})
		if txErr != nil {
			return txErr
		}
		payment = created[0]
		_, txErr = s.historyRepo.Create(ctx, tx, []*types.PaymentHistory{{
			PaymentID: payment.ID,
			Status:    payment.Status,
			RawData:   payment.RawData,
		}})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("created checkout", "payment_id", payment.ID, "reference", payment.Reference, "type", paymentType)
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, id uuid.UUID) (*types.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("payment %s not found", id)}
	}
	return payment, nil
}

func (s *paymentService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, nil, userID, limit, offset)
}

func (s *paymentService) History(ctx context.Context, paymentID uuid.UUID) ([]*types.PaymentHistory, error) {
	return s.historyRepo.ListByPayment(ctx, nil, paymentID)
}

func (s *paymentService) GatewayNames() []string {
	return s.registry.Names()
}

// UpdateStatus reconciles one payment against its gateway. The row lock is
// held across the gateway call so concurrent updates for the same payment
// serialize; whichever arrives second observes the paid status and exits
// without calling the gateway.
func (s *paymentService) UpdateStatus(ctx context.Context, paymentID uuid.UUID) (*types.Payment, error) {
	var out *types.Payment
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		payment, txErr := s.paymentRepo.LockByID(ctx, tx, paymentID)
		if txErr != nil {
			return txErr
		}
		if payment == nil {
			return &NotFoundError{Msg: fmt.Sprintf("payment %s not found", paymentID)}
		}
		if payment.Status == types.PaymentStatusPaid {
			out = payment
			return nil
		}

		gateway, txErr := s.registry.Get(payment.ReferenceType)
		if txErr != nil {
			return txErr
		}
		status, txErr := gateway.RetrieveStatus(ctx, payment.Reference)
		if txErr != nil {
			return txErr
		}

		updates := map[string]interface{}{
			"status":   status.Status,
			"raw_data": status.RawData,
		}
		if txErr = s.paymentRepo.UpdateFields(ctx, tx, payment.ID, updates); txErr != nil {
			return txErr
		}
		_, txErr = s.historyRepo.Create(ctx, tx, []*types.PaymentHistory{{
			PaymentID: payment.ID,
			Status:    status.Status,
			RawData:   status.RawData,
		}})
		if txErr != nil {
			return txErr
		}

		payment.Status = status.Status
		payment.RawData = status.RawData
		if status.Status == types.PaymentStatusPaid && payment.Type == types.PaymentTypeStoryCredit {
			if txErr = s.credits.GrantFromPayment(ctx, tx, payment, status.Metadata); txErr != nil {
				return txErr
			}
		}
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HandleWebhook verifies and records one webhook delivery, then defers the
// actual reconciliation to the job queue. Verification failures leave no
// trace in the webhook log.
func (s *paymentService) HandleWebhook(ctx context.Context, referenceType string, payload []byte, signatureHeader string) error {
	gateway, err := s.registry.Get(referenceType)
	if err != nil {
		return err
	}
	ok, err := gateway.VerifyWebhookSignature(payload, signatureHeader)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidWebhookSignature
	}

	event, err := gateway.ProcessWebhookEvent(payload)
	if err != nil {
		return err
	}
	return runInTx(ctx, s.db, func(tx *gorm.DB) error {
		_, txErr := s.webhookRepo.Create(ctx, tx, []*types.WebhookLog{{
			ReferenceType: gateway.Name(),
			EventID:       event.EventID,
			EventType:     event.EventType,
			RawData:       datatypes.JSON(payload),
		}})
		if txErr != nil {
			return txErr
		}
		switch event.EventType {
		case eventCheckoutCompleted:
			_, txErr = s.enqueuer.Enqueue(ctx, tx, JobPaymentCheckoutCompleted, event.Reference, map[string]interface{}{
				"reference_type": gateway.Name(),
			})
		case eventIntentSucceeded:
			_, txErr = s.enqueuer.Enqueue(ctx, tx, JobPaymentIntentSucceeded, event.Reference, map[string]interface{}{
				"reference_type": gateway.Name(),
			})
		default:
			s.log.Info("ignoring webhook event type", "event_type", event.EventType, "event_id", event.EventID)
		}
		return txErr
	})
}

func (s *paymentService) ProcessCheckoutCompleted(ctx context.Context, reference string) error {
	payment, err := s.paymentRepo.GetByReference(ctx, nil, reference)
	if err != nil {
		return err
	}
	if payment == nil {
		return &NotFoundError{Msg: fmt.Sprintf("payment with reference %s not found", reference)}
	}
	_, err = s.UpdateStatus(ctx, payment.ID)
	return err
}

// ProcessIntentSucceeded resolves the checkout sessions behind a payment
// intent and reconciles each known payment. Returns the number of payments
// updated.
func (s *paymentService) ProcessIntentSucceeded(ctx context.Context, referenceType, intentID string) (int, error) {
	gateway, err := s.registry.Get(referenceType)
	if err != nil {
		return 0, err
	}
	lister, ok := gateway.(intentLister)
	if !ok {
		s.log.Warn("gateway cannot resolve payment intents", "gateway", gateway.Name())
		return 0, nil
	}
	references, err := lister.SessionsByPaymentIntent(ctx, intentID)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, reference := range references {
		payment, err := s.paymentRepo.GetByReference(ctx, nil, reference)
		if err != nil {
			return updated, err
		}
		if payment == nil {
			s.log.Warn("no payment for checkout session", "reference", reference)
			continue
		}
		if _, err := s.UpdateStatus(ctx, payment.ID); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
