package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeEnqueuer struct {
	calls   []string
	failFor map[string]bool
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, _ *gorm.DB, jobType, entityID string, _ map[string]interface{}) (uuid.UUID, error) {
	f.calls = append(f.calls, jobType+":"+entityID)
	if f.failFor[entityID] {
		return uuid.Nil, errors.New("queue unavailable")
	}
	return uuid.New(), nil
}

func TestDispatchAll_PartialFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{failFor: map[string]bool{"bad": true}}
	result := dispatchAll(context.Background(), enqueuer, []dispatchTarget{
		{JobType: "post.generate_blur", EntityID: "good"},
		{JobType: "post.generate_blur", EntityID: "bad"},
	})

	if !result.Success {
		t.Fatalf("sweep envelope must succeed even with item failures")
	}
	if result.Extra["total"] != 2 {
		t.Fatalf("expected total=2, got %v", result.Extra["total"])
	}
	if result.Extra["queued"] != 1 {
		t.Fatalf("expected queued=1, got %v", result.Extra["queued"])
	}
	if result.Extra["errors"] != 1 {
		t.Fatalf("expected errors=1, got %v", result.Extra["errors"])
	}
	details, ok := result.Extra["error_details"].([]string)
	if !ok || len(details) != 1 {
		t.Fatalf("expected one error detail, got %v", result.Extra["error_details"])
	}
	ids, ok := result.Extra["task_ids"].([]string)
	if !ok || len(ids) != 1 {
		t.Fatalf("expected one task id, got %v", result.Extra["task_ids"])
	}
	if len(enqueuer.calls) != 2 {
		t.Fatalf("expected both targets attempted, got %v", enqueuer.calls)
	}
}

func TestDispatchAll_Empty(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	result := dispatchAll(context.Background(), enqueuer, nil)
	if !result.Success {
		t.Fatalf("empty sweep must succeed")
	}
	if result.Extra["total"] != 0 || result.Extra["queued"] != 0 || result.Extra["errors"] != 0 {
		t.Fatalf("unexpected counters: %v", result.Extra)
	}
	if _, ok := result.Extra["error_details"]; ok {
		t.Fatalf("empty sweep must not carry error details")
	}
}
