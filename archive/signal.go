package archive

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// abortable is implemented by Writer; it is the narrow interface the
// process-wide signal registry needs to abort a live writer's temp file.
type abortable interface {
	abortForSignal()
}

// writerRegistry is the only process-wide state the archive package keeps
// (§9 design notes): a set of live writers plus an install-once flag for
// the termination signal handlers, grounded on distri's oninterrupt
// package (internal/oninterrupt/oninterrupt.go) but extended to re-raise
// the previous (default) disposition after cleanup, as §4.4 requires.
type writerRegistry struct {
	mu      sync.Mutex
	writers map[abortable]struct{}
	once    sync.Once
}

var globalWriterRegistry = &writerRegistry{writers: make(map[abortable]struct{})}

func (r *writerRegistry) register(w abortable) {
	r.installSignalHandlers()

	r.mu.Lock()
	r.writers[w] = struct{}{}
	r.mu.Unlock()
}

func (r *writerRegistry) unregister(w abortable) {
	r.mu.Lock()
	delete(r.writers, w)
	r.mu.Unlock()
}

func (r *writerRegistry) installSignalHandlers() {
	r.once.Do(func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			sig := <-c

			r.mu.Lock()
			for w := range r.writers {
				w.abortForSignal()
			}
			r.mu.Unlock()

			// Re-raise to the previous (default) handler: stop intercepting
			// this signal and re-deliver it to ourselves so the process
			// terminates the way it would have without this handler (§9).
			signal.Stop(c)
			if s, ok := sig.(syscall.Signal); ok {
				_ = syscall.Kill(syscall.Getpid(), s)
			}
		}()
	})
}
