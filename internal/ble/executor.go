package ble

import (
	"sync"
	"time"
)

// Executor serializes BLE operations (advertise start, GATT writes)
// under a single mutex so only one operation is started and awaited at a
// time, enforcing a per-operation timeout (default 3s). An operation that
// times out is not interrupted and may still be running when the next
// one starts (see Run).
type Executor struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewExecutor creates an Executor with the given default per-operation
// timeout (3s when zero or negative).
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Executor{timeout: timeout}
}

// Run executes op, serialized against any other in-flight operation,
// surfacing a timeout error if op does not return within the executor's
// timeout. op itself is not interrupted on timeout (the platform call may
// still complete later); the executor simply stops waiting for it.
func (e *Executor) Run(op func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- op()
	}()

	select {
	case err := <-done:
		if err != nil {
			return stackError(err.Error())
		}
		return nil
	case <-time.After(e.timeout):
		return timeoutError()
	}
}
