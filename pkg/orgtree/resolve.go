package orgtree

// Relation names a reference field on an employee row.
type Relation string

const (
	RelationManager Relation = "manager"
	RelationBDM     Relation = "bdm"
)

// ResolutionState distinguishes "no relation" from "broken relation" so
// callers are not forced to compare label strings.
type ResolutionState int

const (
	// ResolutionNotSet means the reference field is nil.
	ResolutionNotSet ResolutionState = iota
	// ResolutionDangling means the field is set but no row carries that id.
	ResolutionDangling
	// ResolutionFound means the referenced row exists.
	ResolutionFound
)

type Resolution struct {
	State ResolutionState
	Name  string
}

// Label renders the resolution the way list views display it.
func (r Resolution) Label() string {
	switch r.State {
	case ResolutionFound:
		return r.Name
	case ResolutionDangling:
		return "Unknown"
	default:
		return "None"
	}
}

// Resolve looks up e's manager or BDM reference in all by id equality.
func Resolve(e Employee, all []Employee, rel Relation) Resolution {
	var ref *int
	switch rel {
	case RelationManager:
		ref = e.ManagerID
	case RelationBDM:
		ref = e.BDMID
	}
	if ref == nil {
		return Resolution{State: ResolutionNotSet}
	}
	for _, cand := range all {
		if cand.ID == *ref {
			return Resolution{State: ResolutionFound, Name: cand.Name}
		}
	}
	return Resolution{State: ResolutionDangling}
}
