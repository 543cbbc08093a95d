// Package procerrors defines the two error families of §7: argument errors
// (caught only at the CLI boundary) and protocol errors (fatal, unwind to
// the top of whichever participant's run loop raised them).
package procerrors

import "fmt"

// ArgError is an invalid CLI/config input. The top-level command dispatcher
// is the only place that catches these; everywhere else they indicate a
// programming error in argument plumbing.
type ArgError struct {
	Msg string
}

func (e *ArgError) Error() string { return "argument error: " + e.Msg }

func Argf(format string, a ...any) *ArgError {
	return &ArgError{Msg: fmt.Sprintf(format, a...)}
}

// ProtocolError is a received message that is malformed or arrives in a
// state that forbids it, or a data-invariant violation (transpose check
// failure, missing vertex on ack). Per §7 these are fatal: the message
// loop does not attempt recovery, it unwinds to the top and the process
// exits non-zero.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Msg }

func Protof(format string, a ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, a...)}
}

// Fatal reports whether err should terminate the process per §7 (anything
// that isn't an ArgError -- ArgErrors are only ever produced at, and
// handled at, the CLI boundary).
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	_, isArg := err.(*ArgError)
	return !isArg
}
