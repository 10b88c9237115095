// Package corelog provides the structured logging used across corepit's
// components. It wraps a single process-wide *zap.Logger, swappable at
// startup, with named sub-loggers per component so that log lines read
// "waitcell: ..." or "pit: ...".
package corelog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// SetLogger installs l as the process-wide base logger. Passing nil
// restores the no-op logger. Intended to be called once during startup,
// before any component begins producing log output — there is no teardown,
// mirroring the PIT singleton's kernel-lifetime lifecycle.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}

// Named returns a sub-logger scoped to component, e.g. Named("pit") or
// Named("waitcell").
func Named(component string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.Named(component)
}
