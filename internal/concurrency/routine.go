// Package concurrency holds goroutine helpers.
package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn in a goroutine with panic recovery.
func SafeGo(fn func(), onPanic func(any)) {
	go func() {
		defer Recover(onPanic)
		fn()
	}()
}

// Recover logs a panic with its stack and passes it to onPanic. It must be
// deferred directly.
func Recover(onPanic func(any)) {
	if r := recover(); r != nil {
		slog.Error("Panic recovered", "panic", r, "stack", string(debug.Stack()))
		if onPanic != nil {
			onPanic(r)
		}
	}
}
