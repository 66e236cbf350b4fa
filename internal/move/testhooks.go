package move

// TestHook, when non-nil, is called from doMove with a named step
// ("post-link", "post-fsync-dest", "post-unlink-source") right after that
// step completes. Tests use it to simulate a kill-9 partway through the
// durable move primitive (spec P4) by returning an error that aborts the
// rest of doMove, then exercising internal/recovery against the resulting
// on-disk/journal state. Never set outside _test.go files in this package
// or its callers' tests.
var TestHook func(step string) error

func fireHook(step string) error {
	if TestHook == nil {
		return nil
	}
	return TestHook(step)
}
