// Package transport implements the FIFO message channels the simulator
// runs CFSMs over (spec.md §4.8): one ordered queue per (sender,
// receiver) pair, multicast fan-out as independent enqueues on each
// receiver's channel, and optional bounded-buffer / FIFO-order runtime
// checks. Grounded on the teacher's commbus.InMemoryCommBus
// (commbus/bus.go): a mutex-guarded map keyed by message/channel
// identity, adapted here from pub/sub fan-out to per-pair ordered
// queues.
package transport

import (
	"sync"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/logging"
)

// pairKey identifies one ordered-pair channel.
type pairKey struct {
	From, To ast.Role
}

// Message is one in-flight value travelling a channel: the payload is
// carried as the action that produced it, so a Receive can be matched
// back against the receiving CFSM's enabled transitions by label.
type Message struct {
	From, To ast.Role
	Label    string
	Action   cfsm.Action
}

// FIFO is the default Transport: independent, unbounded-by-default,
// per-ordered-pair queues.
type FIFO struct {
	mu          sync.Mutex
	queues      map[pairKey][]Message
	bufferBound int // 0 = unbounded
	checkFIFO   bool
	sendSeq     map[pairKey]int
	recvSeq     map[pairKey]int
	logger      logging.Logger
}

// New builds a FIFO transport. bufferBound <= 0 means unbounded;
// checkFIFO enables the runtime per-pair ordering check (spec.md §6.4's
// "FIFO runtime verification").
func New(bufferBound int, checkFIFO bool, logger logging.Logger) *FIFO {
	return &FIFO{
		queues:      make(map[pairKey][]Message),
		bufferBound: bufferBound,
		checkFIFO:   checkFIFO,
		sendSeq:     make(map[pairKey]int),
		recvSeq:     make(map[pairKey]int),
		logger:      logging.OrNoop(logger),
	}
}

// Send enqueues one message on the (from, to) channel.
func (t *FIFO) Send(from, to ast.Role, action cfsm.Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{From: from, To: to}
	if t.bufferBound > 0 && len(t.queues[key]) >= t.bufferBound {
		return &BufferOverflowError{From: from, To: to, Bound: t.bufferBound}
	}

	t.sendSeq[key]++
	t.queues[key] = append(t.queues[key], Message{From: from, To: to, Label: action.Label(), Action: action})
	t.logger.Debug("message sent", "from", from, "to", to, "label", action.Label())
	return nil
}

// Multicast enqueues the same send action once per receiver, modelling
// a single MessageTransfer with |receivers| > 1.
func (t *FIFO) Multicast(from ast.Role, tos []ast.Role, action cfsm.Action) error {
	for _, to := range tos {
		if err := t.Send(from, to, action); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns, without removing it, the head message on the (from, to)
// channel, and whether one is present.
func (t *FIFO) Peek(from, to ast.Role) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q := t.queues[pairKey{From: from, To: to}]
	if len(q) == 0 {
		return Message{}, false
	}
	return q[0], true
}

// Receive pops the head message on the (from, to) channel, verifying
// FIFO order when enabled.
func (t *FIFO) Receive(from, to ast.Role) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{From: from, To: to}
	q := t.queues[key]
	if len(q) == 0 {
		return Message{}, &MessageNotReadyError{From: from, To: to}
	}

	msg := q[0]
	t.queues[key] = q[1:]
	t.recvSeq[key]++

	if t.checkFIFO && t.recvSeq[key] > t.sendSeq[key] {
		return Message{}, &FIFOViolationError{From: from, To: to}
	}

	t.logger.Debug("message received", "from", from, "to", to, "label", msg.Label)
	return msg, nil
}

// Pending reports how many messages are queued on a channel.
func (t *FIFO) Pending(from, to ast.Role) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queues[pairKey{From: from, To: to}])
}

// Idle reports whether every channel is empty (spec.md's "channels
// empty at end" end-to-end assertion).
func (t *FIFO) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, q := range t.queues {
		if len(q) > 0 {
			return false
		}
	}
	return true
}

// Reset empties every channel, for reuse across simulator runs.
func (t *FIFO) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queues = make(map[pairKey][]Message)
	t.sendSeq = make(map[pairKey]int)
	t.recvSeq = make(map[pairKey]int)
}
