// Package cerr defines the error taxonomy shared by chunkstore, basic and
// plus: allocation failure is a returned error, every other violation of a
// cactus-stack invariant is a programming error that panics.
package cerr

import (
	"fmt"
	"runtime"
)

// Category groups related failures for callers that want to switch on them.
type Category string

const (
	CategoryAlloc     Category = "ALLOC"
	CategoryInvariant Category = "INVARIANT"
)

// Error is a categorized error carrying the name of the function that
// raised it, recovered via runtime.Caller so a log line or panic message
// names its origin without a hand-maintained call-site string.
type Error struct {
	Category Category
	Message  string
	Caller   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s (at %s)", e.Category, e.Message, e.Caller)
}

func newError(category Category, message string) *Error {
	caller := "unknown"

	if pc, _, _, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &Error{Category: category, Message: message, Caller: caller}
}

// Alloc reports an aligned-allocation failure from the chunk allocator.
// This is the only recoverable error in the taxonomy: the descriptor
// returned alongside it must equal the input, i.e. no partial state
// mutation happened before the failure was observed.
func Alloc(format string, args ...any) *Error {
	return newError(CategoryAlloc, fmt.Sprintf(format, args...))
}

// Invariant panics with a CategoryInvariant error. Every caller in this
// module that reaches an impossible state (pop from empty, peek with no
// mark chain, a payload type mismatch) is a programming error,
// so it terminates the process rather than returning an error.
func Invariant(format string, args ...any) {
	panic(newError(CategoryInvariant, fmt.Sprintf(format, args...)))
}
