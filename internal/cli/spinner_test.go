package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gagern/confoo/pkg/observability"
)

func TestSpinnerBasic(t *testing.T) {
	s := newSpinner("Testing...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	// Spinner should be stopped, not cancelled
	// (Cancelled returns true only if Stop was called due to context cancellation)
	_ = s.Cancelled() // Verify method is callable; value not asserted as Stop() doesn't set cancelled
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.Start()

	// Cancel the context
	cancel()

	// Give goroutine time to notice cancellation
	time.Sleep(100 * time.Millisecond)

	// Spinner should be cancelled
	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "Testing with timeout...")
	s.Start()

	// Wait for timeout
	time.Sleep(100 * time.Millisecond)

	// Spinner should be cancelled due to timeout
	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.Start()

	// Stop multiple times should not panic
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerSetMessage(t *testing.T) {
	s := newSpinner("Flattening square.obj (optimize)")
	s.SetMessage("Done")
	if !strings.HasPrefix(s.message, "Done ") || len(s.message) != len("Flattening square.obj (optimize)") {
		t.Errorf("message = %q, want padded to the previous length", s.message)
	}
}

func TestSpinWhile(t *testing.T) {
	got, err := spinWhile(context.Background(), "Working", func(ctx context.Context) (int, error) {
		observability.Transform().OnPhaseStart(ctx, observability.PhaseLayout)
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("spinWhile() = %v, %v", got, err)
	}
	if _, ok := observability.Transform().(observability.NoopTransformHooks); !ok {
		t.Error("transform hooks not restored")
	}
}

func TestNewSpinnerWithContextNilParent(t *testing.T) {
	s := newSpinnerWithContext(context.Background(), "Test")
	s.Start()
	s.Stop()
}
