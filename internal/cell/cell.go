// Package cell holds the addressing and value types shared by every layer of
// the engine: coordinates, ranges, computed values and the cell record.
package cell

// Cell is a point-in-time copy of one cell. Precedents and Dependents are
// sorted row-major and always match the parsed Text.
type Cell struct {
	Coord      Coord   `json:"id"`
	Text       string  `json:"text"`
	Value      Value   `json:"value"`
	Version    int64   `json:"version"`
	Author     string  `json:"author,omitempty"`
	Precedents []Coord `json:"precedents,omitempty"`
	Dependents []Coord `json:"dependents,omitempty"`
}

// Clone returns a deep copy so callers never alias engine-owned slices.
func (c Cell) Clone() Cell {
	out := c
	out.Precedents = append([]Coord(nil), c.Precedents...)
	out.Dependents = append([]Coord(nil), c.Dependents...)
	return out
}
