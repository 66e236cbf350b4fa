package move

import (
	"errors"
	"testing"
)

func TestCriticalSectionReturnsFnResult(t *testing.T) {
	want := errors.New("boom")
	got := criticalSection(func() error { return want })
	if !errors.Is(got, want) {
		t.Fatalf("criticalSection returned %v, want %v", got, want)
	}

	if err := criticalSection(func() error { return nil }); err != nil {
		t.Fatalf("criticalSection returned %v, want nil", err)
	}
}

func TestCriticalSectionLeavesNoDeferredSignal(t *testing.T) {
	deferredMu.Lock()
	deferredSig = nil
	deferredMu.Unlock()

	if err := criticalSection(func() error { return nil }); err != nil {
		t.Fatalf("criticalSection failed: %v", err)
	}

	deferredMu.Lock()
	sig := deferredSig
	deferredMu.Unlock()
	if sig != nil {
		t.Fatalf("expected no deferred signal after a clean run, got %v", sig)
	}
}
