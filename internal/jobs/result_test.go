package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gramsight/gramsight-backend/internal/types"
)

func TestResultToJSON(t *testing.T) {
	result := Ok("Successfully updated 3 stories").With("count", 3)
	result.Attempts = 2

	var decoded map[string]any
	if err := json.Unmarshal(result.ToJSON(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != true {
		t.Fatalf("expected success=true, got %v", decoded["success"])
	}
	if decoded["message"] != "Successfully updated 3 stories" {
		t.Fatalf("unexpected message: %v", decoded["message"])
	}
	if decoded["count"] != float64(3) {
		t.Fatalf("expected count=3, got %v", decoded["count"])
	}
	if decoded["attempts"] != float64(2) {
		t.Fatalf("expected attempts=2, got %v", decoded["attempts"])
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("success envelope must not carry an error field")
	}
}

func TestResultFail(t *testing.T) {
	result := Fail("Invalid image format")
	if result.Success {
		t.Fatalf("expected failure envelope")
	}
	var decoded map[string]any
	if err := json.Unmarshal(result.ToJSON(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != false || decoded["error"] != "Invalid image format" {
		t.Fatalf("unexpected envelope: %v", decoded)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(stubHandler{}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(stubHandler{}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

type stubHandler struct{}

func (stubHandler) Type() string { return "stub.noop" }
func (stubHandler) Run(_ context.Context, _ *types.JobRun) Result {
	return Ok("noop")
}
