package simulator

import "github.com/scribble-mpst/mpst-core/ast"

// Strategy selects which role steps next (spec.md §4.9): round-robin,
// random, fair (fewest steps so far), or manual (caller-driven).
type Strategy int

const (
	RoundRobin Strategy = iota
	Random
	Fair
	Manual
)

func (s Strategy) String() string {
	switch s {
	case RoundRobin:
		return "round-robin"
	case Random:
		return "random"
	case Fair:
		return "fair"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a config string (as accepted by mpst/config and the
// CLI) to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "round-robin", "":
		return RoundRobin, true
	case "random":
		return Random, true
	case "fair":
		return Fair, true
	case "manual":
		return Manual, true
	default:
		return 0, false
	}
}

// fairItem is one entry of the fair-scheduling heap: the teacher's
// lifecycle priority-queue idiom (coreengine/kernel/lifecycle.go),
// adapted from "lower priority value runs sooner" to "fewer steps taken
// runs sooner", with submission order breaking ties.
type fairItem struct {
	role    ast.Role
	steps   int
	seq     int
	index   int
}

type fairHeap []*fairItem

func (h fairHeap) Len() int { return len(h) }
func (h fairHeap) Less(i, j int) bool {
	if h[i].steps != h[j].steps {
		return h[i].steps < h[j].steps
	}
	return h[i].seq < h[j].seq
}
func (h fairHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *fairHeap) Push(x any) {
	item := x.(*fairItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *fairHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
