package backend

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ResultCode
	}{
		{"nil", nil, Success},
		{"bare code", Timeout, Timeout},
		{"structured", Errorf(InvalidArguments, "Init", "bad %s", "desc"), InvalidArguments},
		{"wrapped twice", fmt.Errorf("outer: %w", Wrap(OutOfMemory, "Alloc", errors.New("native"))), OutOfMemory},
		{"foreign", errors.New("plain"), Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("vkAllocateMemory")
	err := Wrap(OutOfMemory, "DeviceMemory.Init", cause)

	if !errors.Is(err, OutOfMemory) {
		t.Errorf("expected errors.Is(err, OutOfMemory)")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the cause to be reachable")
	}
	if errors.Is(err, Timeout) {
		t.Errorf("unexpected match with Timeout")
	}
	if got, want := err.Error(), "DeviceMemory.Init: OutOfMemory: vkAllocateMemory"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	msg := Errorf(InvalidOperation, "CommandList.Submit", "list is %s", CommandListInitial)
	if got, want := msg.Error(), "CommandList.Submit: list is Initial (InvalidOperation)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Fail, "op", nil) != nil {
		t.Fatalf("Wrap(nil) should stay nil")
	}
}

func TestParseHelpers(t *testing.T) {
	if k, err := ParseBackendKind("Vulkan"); err != nil || k != BackendVulkan {
		t.Errorf("ParseBackendKind(Vulkan) = %v, %v", k, err)
	}
	if _, err := ParseBackendKind("metal"); CodeOf(err) != InvalidArguments {
		t.Errorf("expected InvalidArguments, got %v", err)
	}
	if l, err := ParseOptimizationLevel(""); err != nil || l.Resolve() != OptimizationMax {
		t.Errorf("default optimization should resolve to Max, got %v, %v", l, err)
	}
	if l, _ := ParseOptimizationLevel("o1"); l != OptimizationO1 {
		t.Errorf("ParseOptimizationLevel(o1) = %v", l)
	}
	if k, err := ParseAdapterKind("discrete"); err != nil || k != AdapterDiscrete {
		t.Errorf("ParseAdapterKind(discrete) = %v, %v", k, err)
	}
}

func TestQueueKindString(t *testing.T) {
	if got := QueueCompute.String(); got != "Compute|Transfer" {
		t.Errorf("QueueCompute.String() = %q", got)
	}
	if !QueueGraphics.Has(QueueCompute) {
		t.Errorf("graphics queues must support compute work")
	}
}
