package orgtree

// BDMNode is a business development manager with the BDEs that report to it.
type BDMNode struct {
	Employee
	BDEs []Employee `json:"bdes"`
}

// ManagerNode is a manager with its BDM subtree.
type ManagerNode struct {
	Employee
	BDMs []BDMNode `json:"bdms"`
}

// Build assembles the three-level hierarchy from a flat snapshot. Relative
// input order is preserved at every level. BDMs whose ManagerID matches no
// manager row, and BDEs whose BDMID matches no linked BDM row, are omitted
// from the result entirely. Children are indexed by parent id in one pass,
// so assembly is O(n) and, being non-recursive, indifferent to reference
// cycles in malformed data.
func Build(records []Employee) []ManagerNode {
	bdmsByManager := make(map[int][]Employee)
	bdesByBDM := make(map[int][]Employee)
	for _, e := range records {
		switch {
		case IsBDM(e) && e.ManagerID != nil:
			bdmsByManager[*e.ManagerID] = append(bdmsByManager[*e.ManagerID], e)
		case IsBDE(e) && e.BDMID != nil:
			bdesByBDM[*e.BDMID] = append(bdesByBDM[*e.BDMID], e)
		}
	}

	var out []ManagerNode
	for _, e := range records {
		if !IsManager(e) {
			continue
		}
		node := ManagerNode{Employee: e, BDMs: []BDMNode{}}
		for _, bdm := range bdmsByManager[e.ID] {
			child := BDMNode{Employee: bdm, BDEs: []Employee{}}
			child.BDEs = append(child.BDEs, bdesByBDM[bdm.ID]...)
			node.BDMs = append(node.BDMs, child)
		}
		out = append(out, node)
	}
	return out
}
