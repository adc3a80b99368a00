package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := Newf(ReadExhausted, "read of %q failed", "l1")
	msg := err.Error()
	if !strings.Contains(msg, string(ReadExhausted)) {
		t.Errorf("message should carry the code: %q", msg)
	}
	if !strings.Contains(msg, `"l1"`) {
		t.Errorf("message should carry the formatted detail: %q", msg)
	}

	cause := fmt.Errorf("disk on fire")
	wrapped := New(SourceOperationFailed, "save failed", cause)
	if !strings.Contains(wrapped.Error(), "disk on fire") {
		t.Errorf("message should carry the cause: %q", wrapped.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := New(OperationTimeout, "timed out", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(Newf(NoAvailableSource, "empty pool")); got != NoAvailableSource {
		t.Errorf("CodeOf = %q", got)
	}

	// codes survive wrapping
	wrapped := fmt.Errorf("outer: %w", Newf(RouterShuttingDown, "stopping"))
	if got := CodeOf(wrapped); got != RouterShuttingDown {
		t.Errorf("CodeOf through wrap = %q", got)
	}

	if got := CodeOf(fmt.Errorf("plain")); got != InternalError {
		t.Errorf("uncoded errors map to INTERNAL_ERROR, got %q", got)
	}
}

func TestHasCode(t *testing.T) {
	err := Newf(ConfigInvalid, "bad field")
	if !HasCode(err, ConfigInvalid) {
		t.Error("expected matching code")
	}
	if HasCode(err, ReadExhausted) {
		t.Error("codes must not cross-match")
	}
	if HasCode(nil, ConfigInvalid) {
		t.Error("nil carries no code")
	}
}

func TestWithDetails(t *testing.T) {
	failures := map[string]string{"primary": "timeout"}
	err := Newf(ReadExhausted, "all failed").WithDetails(failures)

	var fe *FedError
	if !stderrors.As(err, &fe) {
		t.Fatal("expected a FedError")
	}
	got, ok := fe.Details.(map[string]string)
	if !ok || got["primary"] != "timeout" {
		t.Errorf("details lost: %+v", fe.Details)
	}
}
