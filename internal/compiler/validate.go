package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/agentmark/internal/ir"
)

// ValidateDocument checks the document-level invariants once all children
// exist. It stops at the first violation:
//  1. each contract kind occurs at most once
//  2. contract kinds appear in their fixed relative order
//  3. status branches sit directly inside a catalogue, and every catalogue
//     has at least one branch
//  4. with a declared literal-union status type, the catalogue's branch
//     labels equal the union's members
func ValidateDocument(doc *ir.Document) error {
	if err := validateContractCounts(doc); err != nil {
		return err
	}
	if err := validateContractOrder(doc); err != nil {
		return err
	}
	if err := validatePlacement(doc); err != nil {
		return err
	}
	return validateExhaustiveness(doc)
}

// contracts returns the document's top-level contract nodes in order.
// Imported fragments at the top level count as top level.
func contracts(nodes []ir.Node, out []ir.Node) []ir.Node {
	for _, n := range nodes {
		if inc, ok := n.(*ir.Include); ok {
			out = contracts(inc.Children, out)
			continue
		}
		if ir.ContractIndex(n.Kind()) >= 0 {
			out = append(out, n)
		}
	}
	return out
}

func validateContractCounts(doc *ir.Document) error {
	counts := make(map[ir.Kind]int)
	for _, n := range contracts(doc.Children, nil) {
		counts[n.Kind()]++
		if counts[n.Kind()] > 1 {
			name := componentName(n.Kind())
			return newError(ErrContractDuplicate, name, n.Position(),
				"%s appears more than once; each contract component may appear at most once", name)
		}
	}
	return nil
}

func validateContractOrder(doc *ir.Document) error {
	highest := -1
	var highestNode ir.Node
	for _, n := range contracts(doc.Children, nil) {
		idx := ir.ContractIndex(n.Kind())
		if idx < highest {
			return newError(ErrContractOrder, componentName(n.Kind()), n.Position(),
				"%s must come before %s (order: %s)",
				componentName(n.Kind()), componentName(highestNode.Kind()), contractOrderText())
		}
		highest = idx
		highestNode = n
	}
	return nil
}

func contractOrderText() string {
	names := make([]string, len(ir.ContractOrder))
	for i, k := range ir.ContractOrder {
		names[i] = componentName(k)
	}
	return strings.Join(names, ", ")
}

// validatePlacement walks the whole tree with each node's parent.
func validatePlacement(doc *ir.Document) error {
	var err error
	var visit func(parent ir.Node, nodes []ir.Node)
	visit = func(parent ir.Node, nodes []ir.Node) {
		for _, n := range nodes {
			if err != nil {
				return
			}
			switch v := n.(type) {
			case *ir.StatusBranch:
				if _, ok := parent.(*ir.StatusCatalogue); !ok {
					err = newError(ErrBranchOutsideCatalogue, "StatusBranch", v.Position(),
						"StatusBranch must be a direct child of StatusCatalogue, found inside %s", componentName(parent.Kind()))
					return
				}
			case *ir.StatusCatalogue:
				if len(v.Branches()) == 0 {
					err = newError(ErrEmptyCatalogue, "StatusCatalogue", v.Position(),
						"StatusCatalogue needs at least one StatusBranch")
					return
				}
			case *ir.Include:
				// Fragments are transparent: their children keep our parent.
				visit(parent, v.Children)
				continue
			}
			visit(n, ir.Children(n))
		}
	}
	visit(doc, doc.Children)
	return err
}

// validateExhaustiveness compares catalogue branches with the declared
// status members. Duplicates are reported first, then missing members, then
// extra labels.
func validateExhaustiveness(doc *ir.Document) error {
	if len(doc.StatusMembers) == 0 {
		return nil
	}

	var cat *ir.StatusCatalogue
	for _, n := range contracts(doc.Children, nil) {
		if c, ok := n.(*ir.StatusCatalogue); ok {
			cat = c
			break
		}
	}
	if cat == nil {
		return newError(ErrStatusMissing, "StatusCatalogue", doc.Position(),
			"status type %s declares %s but the document has no StatusCatalogue",
			doc.StatusType, strings.Join(doc.StatusMembers, ", "))
	}

	seen := make(map[string]bool)
	var labels []string
	for _, b := range cat.Branches() {
		if seen[b.Status] {
			return newError(ErrStatusDuplicate, "StatusBranch", b.Position(),
				"status %q is covered more than once", b.Status)
		}
		seen[b.Status] = true
		labels = append(labels, b.Status)
	}

	members := make(map[string]bool, len(doc.StatusMembers))
	var missing []string
	for _, m := range doc.StatusMembers {
		members[m] = true
		if !seen[m] {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return newError(ErrStatusMissing, "StatusCatalogue", cat.Position(),
			"missing branches for %s: %s", doc.StatusType, quoteAll(missing))
	}

	var extra []string
	for _, l := range labels {
		if !members[l] {
			extra = append(extra, l)
		}
	}
	if len(extra) > 0 {
		return newError(ErrStatusExtra, "StatusCatalogue", cat.Position(),
			"branches not in %s: %s", doc.StatusType, quoteAll(extra))
	}
	return nil
}

func quoteAll(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
