package transport

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
)

// BufferOverflowError is a SimulationError sub-kind (spec.md §7): a send
// would exceed the transport's configured buffer bound.
type BufferOverflowError struct {
	From, To ast.Role
	Bound    int
}

func (e *BufferOverflowError) Error() string {
	return fmt.Sprintf("buffer overflow on channel %s->%s: bound is %d", e.From, e.To, e.Bound)
}

// MessageNotReadyError is a SimulationError sub-kind: a receive was
// attempted on a channel with nothing queued.
type MessageNotReadyError struct {
	From, To ast.Role
}

func (e *MessageNotReadyError) Error() string {
	return fmt.Sprintf("no message ready on channel %s->%s", e.From, e.To)
}

// FIFOViolationError is a SimulationError sub-kind: the runtime FIFO
// check detected a receive out of send order on a channel.
type FIFOViolationError struct {
	From, To ast.Role
}

func (e *FIFOViolationError) Error() string {
	return fmt.Sprintf("FIFO order violated on channel %s->%s", e.From, e.To)
}
