package register

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReserveDestinationFromKnownDigest(t *testing.T) {
	root := t.TempDir()
	full := [16]byte{0xab, 0xcd, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}

	path, err := reserveDestination(root, &full, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}

	wantDir := filepath.Join(root, "ab")
	if filepath.Dir(path) != wantDir {
		t.Fatalf("path = %q, want shard dir %q", path, wantDir)
	}
	if !strings.HasSuffix(path, ".bin") {
		t.Fatalf("path = %q, want .bin extension", path)
	}
}

func TestReserveDestinationDeterministicForSameDigest(t *testing.T) {
	root := t.TempDir()
	full := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	p1, err := reserveDestination(root, &full, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}
	p2, err := reserveDestination(root, &full, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("reserveDestination(same digest) = %q, %q, want identical paths when neither exists yet", p1, p2)
	}
}

func TestReserveDestinationRetriesOnCollision(t *testing.T) {
	root := t.TempDir()
	full := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	first, err := reserveDestination(root, &full, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(first), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(first, []byte("occupied"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	second, err := reserveDestination(root, &full, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}
	if second == first {
		t.Fatalf("expected a different path once %q was occupied", first)
	}
	if !strings.HasPrefix(filepath.Base(second), filepath.Base(first[:len(first)-len(".bin")]+"_") ) {
		t.Fatalf("second = %q, want it to carry a _<hex> suffix derived from %q", second, first)
	}
}

func TestReserveDestinationWithoutDigestUsesRandomToken(t *testing.T) {
	root := t.TempDir()

	p1, err := reserveDestination(root, nil, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}
	p2, err := reserveDestination(root, nil, ".bin")
	if err != nil {
		t.Fatalf("reserveDestination failed: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected distinct random tokens, got %q twice", p1)
	}
}
