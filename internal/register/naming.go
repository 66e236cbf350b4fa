package register

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// maxCollisionRetries bounds the naming loop of spec §4.4 phase 1.
const maxCollisionRetries = 5

// reserveDestination computes the content-store path for a UNIQUE candidate
// and confirms no file already sits there, retrying with an appended
// 8-hex-char suffix on collision.
//
// When full is non-nil, the destination is derived from the digest: shard =
// first 2 hex chars, stem = next 14 hex chars. When full is nil (the digest
// is not yet known — tier 1 or 2 classification), a random 16-hex token
// plays the same role.
func reserveDestination(root string, full *[16]byte, ext string) (string, error) {
	idHex, err := identifierHex(full)
	if err != nil {
		return "", fmt.Errorf("register: generating destination identifier: %w", err)
	}
	shard := idHex[:2]
	stem := idHex[2:16]

	for attempt := 0; attempt <= maxCollisionRetries; attempt++ {
		name := stem
		if attempt > 0 {
			suffix, err := randomHex(4)
			if err != nil {
				return "", fmt.Errorf("register: generating collision suffix: %w", err)
			}
			name = stem + "_" + suffix
		}
		path := filepath.Join(root, shard, name+ext)

		if _, err := os.Lstat(path); err != nil {
			if os.IsNotExist(err) {
				return path, nil
			}
			return "", fmt.Errorf("register: checking candidate destination %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("register: exhausted %d collision retries under %s", maxCollisionRetries, root)
}

func identifierHex(full *[16]byte) (string, error) {
	if full != nil {
		return hex.EncodeToString(full[:]), nil
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
