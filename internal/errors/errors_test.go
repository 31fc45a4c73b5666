package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("pipe closed")
	err := New(WorkerUnavailable, "worker exited", cause)

	if err.Code != WorkerUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, WorkerUnavailable)
	}
	if len(err.SuggestedFixes) != 2 {
		t.Errorf("len(SuggestedFixes) = %d, want 2", len(err.SuggestedFixes))
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestBridgeError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *BridgeError
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       New(ValidationFailure, "semantic diagnostics failed", errors.New("boom")),
			wantParts: []string{"VALIDATION_FAILURE", "semantic diagnostics failed", "boom"},
		},
		{
			name:      "without cause",
			err:       Newf(OutOfRange, "line %d beyond %d", 9, 3),
			wantParts: []string{"OUT_OF_RANGE", "line 9 beyond 3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, missing %q", got, part)
				}
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"bridge", New(StaleConfiguration, "x", nil), StaleConfiguration},
		{"wrapped bridge", fmt.Errorf("call: %w", New(OutOfRange, "x", nil)), OutOfRange},
		{"canceled", context.Canceled, Cancelled},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), Timeout},
		{"plain", errors.New("x"), InternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(StaleConfiguration, "reset", nil))
	if !errors.Is(err, &BridgeError{Code: StaleConfiguration}) {
		t.Error("expected match on code")
	}
	if errors.Is(err, &BridgeError{Code: Cancelled}) {
		t.Error("unexpected match on different code")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(nil) != nil {
		t.Error("nil in, nil out")
	}
	if !HasCode(FromContext(context.Canceled), Cancelled) {
		t.Error("canceled should map to CANCELLED")
	}
	if !HasCode(FromContext(context.DeadlineExceeded), Timeout) {
		t.Error("deadline should map to TIMEOUT")
	}
}
