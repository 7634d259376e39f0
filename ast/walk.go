package ast

// Visitor is called once per Interaction node encountered by Walk, in
// pre-order. Returning false stops descent into that node's children
// (but sibling branches of a Choice/Parallel are still visited).
type Visitor func(n *Interaction) (descend bool)

// Walk traverses an interaction tree exhaustively over every
// InteractionKind — the discipline spec.md §9 demands for sum types.
func Walk(n *Interaction, visit Visitor) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	switch n.Kind {
	case KindMessageTransfer, KindContinue, KindDo, KindEmpty:
		// leaf nodes, nothing further to walk
	case KindChoice, KindParallel:
		for _, b := range n.Branches {
			Walk(b, visit)
		}
	case KindRecursion:
		Walk(n.Body, visit)
	case KindSeq:
		Walk(n.First, visit)
		Walk(n.Second, visit)
	}
}

// Roles returns the set of roles mentioned anywhere in the interaction
// tree, as senders, receivers, choice deciders, or Do role arguments.
func Roles(n *Interaction) map[Role]bool {
	roles := make(map[Role]bool)
	Walk(n, func(node *Interaction) bool {
		switch node.Kind {
		case KindMessageTransfer:
			roles[node.Sender] = true
			for _, r := range node.Receivers {
				roles[r] = true
			}
		case KindChoice:
			roles[node.Decider] = true
		case KindDo:
			for _, r := range node.RoleArgs {
				roles[r] = true
			}
		}
		return true
	})
	return roles
}
