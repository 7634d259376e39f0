// Package ast defines the typed tree of protocol declarations produced by
// mpst/parser (or constructed directly by a caller), per spec.md §3/§6.1.
// Interaction is a tagged sum type, not a class hierarchy: every
// traversal in this module switches exhaustively on Interaction.Kind and
// treats an unhandled kind as a defect, not a silently-ignored default.
package ast

import "github.com/scribble-mpst/mpst-core/mpsterr"

// Role is a participant identifier declared in a protocol's role list.
type Role string

// MessageSignature is (label, payload types) — spec.md §3. The label must
// be unique among its choice siblings (enforced by the verifier, not
// here); payload types are opaque identifiers, possibly parameterised.
type MessageSignature struct {
	Label        string
	PayloadTypes []string
	Loc          mpsterr.Location
}

// InteractionKind tags the sum type of global interactions (spec.md §3).
type InteractionKind int

const (
	// KindMessageTransfer is p -> q[,q2,...] : m(...).
	KindMessageTransfer InteractionKind = iota
	// KindChoice is choice at R { ... } or { ... }.
	KindChoice
	// KindParallel is par { ... } and { ... }.
	KindParallel
	// KindRecursion is rec L { ... }.
	KindRecursion
	// KindContinue is continue L;
	KindContinue
	// KindDo is do P(args...);
	KindDo
	// KindSeq sequences two interactions; the parser builds left-leaning
	// chains of these so a protocol body is a single Interaction.
	KindSeq
	// KindEmpty is the empty interaction sequence (spec.md §4.3, §9 open
	// question: resolved here as "immediate termination").
	KindEmpty
)

func (k InteractionKind) String() string {
	switch k {
	case KindMessageTransfer:
		return "MessageTransfer"
	case KindChoice:
		return "Choice"
	case KindParallel:
		return "Parallel"
	case KindRecursion:
		return "Recursion"
	case KindContinue:
		return "Continue"
	case KindDo:
		return "Do"
	case KindSeq:
		return "Seq"
	case KindEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Interaction is the sum type for global protocol bodies. Exactly the
// fields relevant to Kind are populated; callers must switch on Kind.
type Interaction struct {
	Kind InteractionKind
	Loc  mpsterr.Location

	// KindMessageTransfer
	Sender    Role
	Receivers []Role
	Message   MessageSignature

	// KindChoice
	Decider  Role
	Branches []*Interaction // each branch is itself a (possibly Seq) Interaction

	// KindParallel reuses Branches.

	// KindRecursion / KindContinue
	Label string
	Body  *Interaction // KindRecursion only

	// KindDo
	ProtocolName string
	RoleArgs     []Role

	// KindSeq
	First  *Interaction
	Second *Interaction
}

// Seq builds a KindSeq node, collapsing a nil/empty operand away so
// callers don't need to special-case building up a body incrementally.
func Seq(first, second *Interaction) *Interaction {
	if first == nil || first.Kind == KindEmpty {
		return second
	}
	if second == nil || second.Kind == KindEmpty {
		return first
	}
	return &Interaction{Kind: KindSeq, First: first, Second: second}
}

// Empty returns the canonical empty-sequence interaction.
func Empty() *Interaction {
	return &Interaction{Kind: KindEmpty}
}

// GlobalProtocol is a named declaration: role parameters, ordered body,
// optional protocol parameters (spec.md §3).
type GlobalProtocol struct {
	Name       string
	Roles      []Role
	Parameters []string // protocol-level type/value parameters, opaque
	Body       *Interaction
	Loc        mpsterr.Location
}

// HasRole reports whether r is declared on the protocol's role list.
func (g *GlobalProtocol) HasRole(r Role) bool {
	for _, decl := range g.Roles {
		if decl == r {
			return true
		}
	}
	return false
}

// Module is a parsed source file: zero or more protocol declarations.
// Local-protocol declarations (accepted as input per spec.md §6.1) are
// stored here as GlobalProtocol values too; the parser drops their
// `at R` role, so they are not told apart from global ones.
type Module struct {
	Protocols []*GlobalProtocol
}

// Lookup finds a protocol declaration by name within the module.
func (m *Module) Lookup(name string) *GlobalProtocol {
	for _, p := range m.Protocols {
		if p.Name == name {
			return p
		}
	}
	return nil
}
