package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type paymentCheckoutCompletedTask struct {
	payments services.PaymentService
}

func (t *paymentCheckoutCompletedTask) Type() string { return services.JobPaymentCheckoutCompleted }

func (t *paymentCheckoutCompletedTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	if err := t.payments.ProcessCheckoutCompleted(ctx, job.EntityID); err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok("Successfully processed checkout completion")
}

type paymentIntentSucceededTask struct {
	payments services.PaymentService
}

func (t *paymentIntentSucceededTask) Type() string { return services.JobPaymentIntentSucceeded }

func (t *paymentIntentSucceededTask) Run(ctx context.Context, job *types.JobRun) jobs.Result {
	referenceType := types.ReferenceTypeStripe
	if len(job.Payload) > 0 {
		var payload struct {
			ReferenceType string `json:"reference_type"`
		}
		if err := json.Unmarshal(job.Payload, &payload); err == nil && payload.ReferenceType != "" {
			referenceType = payload.ReferenceType
		}
	}
	updated, err := t.payments.ProcessIntentSucceeded(ctx, referenceType, job.EntityID)
	if err != nil {
		return jobs.Fail(err.Error())
	}
	return jobs.Ok(fmt.Sprintf("Successfully reconciled %d payments", updated)).With("updated", updated)
}
