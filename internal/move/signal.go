package move

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// deferredSignals is the global mutable slot spec §9 calls for: POSIX
// signal handlers carry no context, so the pending signal (if any) raised
// during a critical section is recorded here and re-delivered once the
// section completes. Only one critical section runs at a time (the engine
// is single-threaded, spec §5), so a package-level slot is sufficient.
var (
	deferredMu  sync.Mutex
	deferredSig os.Signal
)

// criticalSection defers SIGINT and SIGTERM delivery for the duration of fn.
// If either signal arrives while fn runs, it is recorded and re-raised to
// the process (via the default disposition) after fn returns, matching
// spec §4.6 step 9 and §5's "defer, run to completion, re-raise" contract.
//
// fn itself must not be interrupted by a long-running external cancellation
// mechanism; it is expected to be a bounded filesystem critical section
// (mkdir, link, fsync, unlink, fsync).
func criticalSection(fn func() error) error {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				deferredMu.Lock()
				deferredSig = sig
				deferredMu.Unlock()
			case <-done:
				return
			}
		}
	}()

	err := fn()
	close(done)

	deferredMu.Lock()
	sig := deferredSig
	deferredSig = nil
	deferredMu.Unlock()

	if sig != nil {
		raiseDeferred(sig)
	}
	return err
}

// raiseDeferred re-delivers a signal that was deferred during a critical
// section, restoring the process's own default handling for it.
func raiseDeferred(sig os.Signal) {
	signal.Reset(sig)
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(sig)
}
