package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/types"
)

// CreditService grants story credits funded by payments. Grants are
// idempotent per payment: the story_credit_payment link row has a unique
// payment_id, and existence is checked before any balance change.
type CreditService interface {
	GrantFromPayment(ctx context.Context, tx *gorm.DB, payment *types.Payment, metadata map[string]string) error
	BalanceForAccount(ctx context.Context, accountID uuid.UUID) (int, error)
}

type creditService struct {
	db          *gorm.DB
	creditRepo  repos.StoryCreditRepo
	linkRepo    repos.StoryCreditPaymentRepo
	accountRepo repos.AccountRepo
	log         *logger.Logger
}

func NewCreditService(
	db *gorm.DB,
	creditRepo repos.StoryCreditRepo,
	linkRepo repos.StoryCreditPaymentRepo,
	accountRepo repos.AccountRepo,
	baseLog *logger.Logger,
) CreditService {
	return &creditService{
		db:          db,
		creditRepo:  creditRepo,
		linkRepo:    linkRepo,
		accountRepo: accountRepo,
		log:         baseLog.With("service", "CreditService"),
	}
}

func (s *creditService) GrantFromPayment(ctx context.Context, tx *gorm.DB, payment *types.Payment, metadata map[string]string) error {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	exists, err := s.linkRepo.ExistsForPayment(ctx, transaction, payment.ID)
	if err != nil {
		return err
	}
	if exists {
		s.log.Info("credits already granted for payment", "payment_id", payment.ID)
		return nil
	}

	target, quantity, err := grantParams(payment, metadata)
	if err != nil {
		return err
	}

	account, err := s.accountRepo.GetByID(ctx, transaction, target)
	if err != nil {
		return err
	}
	if account == nil {
		return &NotFoundError{Msg: fmt.Sprintf("account %s not found for credit grant", target)}
	}

	credit, err := s.creditRepo.GetOrCreateForAccount(ctx, transaction, account.ID)
	if err != nil {
		return err
	}
	if err := s.creditRepo.AddBalance(ctx, transaction, credit.ID, quantity); err != nil {
		return err
	}
	_, err = s.linkRepo.Create(ctx, transaction, []*types.StoryCreditPayment{{
		StoryCreditID: credit.ID,
		PaymentID:     payment.ID,
		Quantity:      quantity,
	}})
	if err != nil {
		return err
	}
	s.log.Info("granted story credits", "account_id", account.ID, "payment_id", payment.ID, "quantity", quantity)
	return nil
}

func (s *creditService) BalanceForAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	credit, err := s.creditRepo.GetOrCreateForAccount(ctx, nil, accountID)
	if err != nil {
		return 0, err
	}
	if credit == nil {
		return 0, nil
	}
	return credit.Balance, nil
}

// grantParams resolves the target account and quantity, preferring live
// gateway metadata and falling back to the metadata captured in the
// payment's raw session data.
func grantParams(payment *types.Payment, metadata map[string]string) (uuid.UUID, int, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	target := metadata["target"]
	quantityStr := metadata["quantity"]
	if target == "" && len(payment.RawData) > 0 {
		var raw struct {
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(payment.RawData, &raw); err == nil {
			if target == "" {
				target = raw.Metadata["target"]
			}
			if quantityStr == "" {
				quantityStr = raw.Metadata["quantity"]
			}
		}
	}
	if target == "" {
		return uuid.Nil, 0, fmt.Errorf("payment %s has no credit target", payment.ID)
	}
	accountID, err := uuid.Parse(target)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("payment %s has invalid credit target %q", payment.ID, target)
	}
	quantity := 1
	if quantityStr != "" {
		parsed, err := strconv.Atoi(quantityStr)
		if err != nil || parsed < 1 {
			return uuid.Nil, 0, fmt.Errorf("payment %s has invalid credit quantity %q", payment.ID, quantityStr)
		}
		quantity = parsed
	}
	return accountID, quantity, nil
}
