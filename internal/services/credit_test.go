package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/gramsight/gramsight-backend/internal/types"
)

func TestGrantParams_FromMetadata(t *testing.T) {
	target := uuid.New()
	payment := &types.Payment{ID: uuid.New()}
	accountID, quantity, err := grantParams(payment, map[string]string{
		"target":   target.String(),
		"quantity": "4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accountID != target {
		t.Fatalf("unexpected account id: %s", accountID)
	}
	if quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", quantity)
	}
}

func TestGrantParams_FallsBackToRawData(t *testing.T) {
	target := uuid.New()
	payment := &types.Payment{
		ID:      uuid.New(),
		RawData: datatypes.JSON(`{"metadata":{"target":"` + target.String() + `","quantity":"2"}}`),
	}
	accountID, quantity, err := grantParams(payment, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accountID != target || quantity != 2 {
		t.Fatalf("unexpected result: %s / %d", accountID, quantity)
	}
}

func TestGrantParams_DefaultsQuantityToOne(t *testing.T) {
	target := uuid.New()
	_, quantity, err := grantParams(&types.Payment{ID: uuid.New()}, map[string]string{"target": target.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", quantity)
	}
}

func TestGrantParams_Invalid(t *testing.T) {
	payment := &types.Payment{ID: uuid.New()}
	if _, _, err := grantParams(payment, nil); err == nil {
		t.Fatalf("expected error for missing target")
	}
	if _, _, err := grantParams(payment, map[string]string{"target": "not-a-uuid"}); err == nil {
		t.Fatalf("expected error for malformed target")
	}
	if _, _, err := grantParams(payment, map[string]string{"target": uuid.NewString(), "quantity": "zero"}); err == nil {
		t.Fatalf("expected error for malformed quantity")
	}
	if _, _, err := grantParams(payment, map[string]string{"target": uuid.NewString(), "quantity": "0"}); err == nil {
		t.Fatalf("expected error for non-positive quantity")
	}
}
