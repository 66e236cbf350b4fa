// Package classify implements the tiered classifier (spec §4.3): given a
// candidate file, it decides UNIQUE (at a tier), DUPLICATE of a stored path,
// or SKIPPED with a reason, consulting the index store one tier at a time
// and never hashing past the tier that resolves the candidate.
package classify

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mr3od/bgate/internal/digest"
	"github.com/mr3od/bgate/internal/store"
)

// Status is the outcome of classifying a candidate.
type Status int

const (
	StatusUnique Status = iota
	StatusDuplicate
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusUnique:
		return "UNIQUE"
	case StatusDuplicate:
		return "DUPLICATE"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of Classify.
type Result struct {
	Status Status
	// Tier is the stage at which the candidate was decided: 0 skip,
	// 1 size, 2 fringe, 3 full.
	Tier int
	// StoredPath is set when Status is StatusDuplicate.
	StoredPath string
	// Reason is set when Status is StatusSkipped.
	Reason string

	Size         int64
	FringeDigest *[8]byte
	FullDigest   *[16]byte
}

// Classify classifies the candidate at path against idx, reading no more of
// the file than the tier at which it resolves requires (spec P6).
func Classify(ctx context.Context, idx store.Store, path string) (Result, error) {
	info, reason, err := validate(path)
	if err != nil {
		return Result{}, fmt.Errorf("classify: validating %s: %w", path, err)
	}
	if reason != "" {
		return Result{Status: StatusSkipped, Reason: reason}, nil
	}

	size := info.Size()
	if size == 0 {
		return Result{Status: StatusSkipped, Reason: "zero-byte file"}, nil
	}

	exists, err := idx.SizeExists(ctx, size)
	if err != nil {
		return Result{}, fmt.Errorf("classify: size_exists(%d): %w", size, err)
	}
	if !exists {
		return Result{Status: StatusUnique, Tier: 1, Size: size}, nil
	}

	fringe, err := digest.Fringe(path)
	if err != nil {
		return Result{}, fmt.Errorf("classify: fringe digest of %s: %w", path, err)
	}

	fringePath, ok, err := idx.FringeLookup(ctx, fringe, size)
	if err != nil {
		return Result{}, fmt.Errorf("classify: fringe_lookup: %w", err)
	}
	_ = fringePath
	if !ok {
		return Result{Status: StatusUnique, Tier: 2, Size: size, FringeDigest: &fringe}, nil
	}

	full, err := digest.Full(path)
	if err != nil {
		return Result{}, fmt.Errorf("classify: full digest of %s: %w", path, err)
	}

	storedPath, ok, err := idx.FullLookup(ctx, full)
	if err != nil {
		return Result{}, fmt.Errorf("classify: full_lookup: %w", err)
	}
	if !ok {
		return Result{Status: StatusUnique, Tier: 3, Size: size, FringeDigest: &fringe, FullDigest: &full}, nil
	}

	canonical, err := canonicalize(path)
	if err != nil {
		return Result{}, fmt.Errorf("classify: canonicalizing %s: %w", path, err)
	}
	storedCanonical, err := canonicalize(storedPath)
	if err != nil {
		// The stored path may no longer exist; that is a store
		// inconsistency for the recovery subsystem, not a classification
		// error. Fall back to a lexical comparison.
		storedCanonical = storedPath
	}

	if canonical == storedCanonical {
		return Result{Status: StatusUnique, Tier: 3, Size: size, FringeDigest: &fringe, FullDigest: &full}, nil
	}
	return Result{Status: StatusDuplicate, Tier: 3, StoredPath: storedPath, Size: size, FringeDigest: &fringe, FullDigest: &full}, nil
}

// validate applies the pre-classification rejects (spec §4.3): empty path,
// embedded NUL, symlinks, non-regular files, unreadable files, and
// character/block devices. A non-empty reason means SKIPPED; info is valid
// only when reason is empty and err is nil.
func validate(path string) (os.FileInfo, string, error) {
	if path == "" {
		return nil, "empty path", nil
	}
	if strings.ContainsRune(path, 0) {
		return nil, "path contains NUL byte", nil
	}

	lst, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "file does not exist", nil
		}
		if os.IsPermission(err) {
			return nil, "unreadable: permission denied", nil
		}
		return nil, "", err
	}
	if lst.Mode()&os.ModeSymlink != 0 {
		return nil, "symbolic link", nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, "unreadable: permission denied", nil
		}
		return nil, "", err
	}
	if !info.Mode().IsRegular() {
		if info.Mode()&(os.ModeDevice|os.ModeCharDevice) != 0 {
			return nil, "device file", nil
		}
		return nil, "not a regular file", nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, "unreadable: permission denied", nil
		}
		return nil, "", err
	}
	_ = f.Close()

	return info, "", nil
}
