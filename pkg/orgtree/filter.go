package orgtree

import "strings"

// RoleFilterAll is the role filter value that selects every record.
const RoleFilterAll = "all"

// FilterByText narrows records to those where the term matches the name,
// code, or job location case-insensitively, or the mobile number verbatim.
// An empty term returns the input slice unchanged.
func FilterByText(records []Employee, term string) []Employee {
	if term == "" {
		return records
	}
	lower := strings.ToLower(term)
	var out []Employee
	for _, e := range records {
		if strings.Contains(strings.ToLower(e.Name), lower) ||
			strings.Contains(strings.ToLower(e.Code), lower) ||
			strings.Contains(e.Mobile, term) ||
			strings.Contains(strings.ToLower(e.JobLocation), lower) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByRole narrows records to a single role. An empty role or
// RoleFilterAll returns the input slice unchanged.
func FilterByRole(records []Employee, role string) []Employee {
	if role == "" || role == RoleFilterAll {
		return records
	}
	var out []Employee
	for _, e := range records {
		if string(e.Role) == role {
			out = append(out, e)
		}
	}
	return out
}
