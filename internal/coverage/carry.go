package coverage

import "github.com/avanta-group/claims-cli/internal/model"

// CarryRepairContext fills absent repair contexts from the nearest
// preceding item that has one, within the same document. Context never
// leaks across document boundaries: a new doc ID resets the carry. The
// input slice is not modified.
func CarryRepairContext(items []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, len(items))
	copy(out, items)

	var current string
	var currentDoc string
	for i := range out {
		if out[i].DocID != currentDoc {
			currentDoc = out[i].DocID
			current = ""
		}
		if out[i].RepairContext != "" {
			current = out[i].RepairContext
		} else {
			out[i].RepairContext = current
		}
	}
	return out
}
