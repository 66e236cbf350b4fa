package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestSlogSinkFormatsMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(&buf)

	sink.Warningf("emergency orphan no longer exists: %s", "/orphans/a.bin")

	got := buf.String()
	if !strings.Contains(got, "emergency orphan no longer exists: /orphans/a.bin") {
		t.Fatalf("log output = %q, want it to contain the formatted message", got)
	}
	if !strings.Contains(got, "WARN") {
		t.Fatalf("log output = %q, want a WARN level", got)
	}
}

func TestSlogSinkCriticalPrefixed(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(&buf)

	sink.Criticalf("cannot write emergency log for %s", "/orphans/b.bin")

	got := buf.String()
	if !strings.Contains(got, "CRITICAL:") {
		t.Fatalf("log output = %q, want a CRITICAL marker", got)
	}
}

func TestDiscardSinkDoesNotPanic(t *testing.T) {
	sink := NewDiscardSink()
	sink.Debugf("x")
	sink.Infof("x")
	sink.Warningf("x")
	sink.Errorf("x")
	sink.Criticalf("x")
}
