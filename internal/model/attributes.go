package model

// Attributes maps column names to values for a single write. DTOs are the
// only producers of Attributes, which keeps request input from reaching
// columns they do not list.
type Attributes map[string]any

// Columns returns the attribute keys.
func (a Attributes) Columns() []string {
	cols := make([]string, 0, len(a))
	for k := range a {
		cols = append(cols, k)
	}
	return cols
}
