package sheet

import (
	"sort"
	"strings"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// View is a read-only rearrangement of a range. Row is the source row of
// each line so callers can map results back to the grid.
type View struct {
	Range   cell.Range `json:"range"`
	Columns []string   `json:"columns"`
	Rows    []ViewRow  `json:"rows"`
}

type ViewRow struct {
	Row    int          `json:"row"`
	Values []cell.Value `json:"values"`
}

// Sort orders the rows of area by the given columns, first column first.
// Numbers compare numerically and sort ahead of anything else; non-numeric
// cells keep their relative order.
func (s *Sheet) Sort(area string, by []string) (View, error) {
	v, err := s.view(area)
	if err != nil {
		return View{}, err
	}
	if len(by) == 0 {
		return View{}, sheeterr.New(sheeterr.InvalidColumn, "sort needs at least one column")
	}
	keys := make([]int, len(by))
	for i, col := range by {
		idx, err := columnIn(v.Range, col)
		if err != nil {
			return View{}, err
		}
		keys[i] = idx
	}
	sort.SliceStable(v.Rows, func(i, j int) bool {
		for _, k := range keys {
			a, aok := v.Rows[i].Values[k].Num()
			b, bok := v.Rows[j].Values[k].Num()
			switch {
			case aok && bok && a != b:
				return a < b
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			}
		}
		return false
	})
	return v, nil
}

// Filter keeps the rows of area whose value in column displays as one of
// allowed.
func (s *Sheet) Filter(area, column string, allowed []string) (View, error) {
	v, err := s.view(area)
	if err != nil {
		return View{}, err
	}
	k, err := columnIn(v.Range, column)
	if err != nil {
		return View{}, err
	}
	keep := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		keep[a] = true
	}
	rows := v.Rows[:0]
	for _, r := range v.Rows {
		if keep[r.Values[k].String()] {
			rows = append(rows, r)
		}
	}
	v.Rows = rows
	return v, nil
}

// DistinctValues lists the displayed values of column within area, in
// first-seen order.
func (s *Sheet) DistinctValues(area, column string) ([]string, error) {
	v, err := s.view(area)
	if err != nil {
		return nil, err
	}
	k, err := columnIn(v.Range, column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range v.Rows {
		d := r.Values[k].String()
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Sheet) view(area string) (View, error) {
	r, ok := s.ranges[area]
	if !ok {
		var err error
		if r, err = cell.ParseRange(area); err != nil {
			return View{}, err
		}
	}
	if err := r.Check(s.bounds); err != nil {
		return View{}, err
	}
	v := View{Range: r}
	for col := r.From.Col; col <= r.To.Col; col++ {
		v.Columns = append(v.Columns, cell.ColumnName(col))
	}
	for row := r.From.Row; row <= r.To.Row; row++ {
		vr := ViewRow{Row: row}
		for col := r.From.Col; col <= r.To.Col; col++ {
			vr.Values = append(vr.Values, s.Value(cell.Coord{Row: row, Col: col}))
		}
		v.Rows = append(v.Rows, vr)
	}
	return v, nil
}

// columnIn maps column letters to an offset inside r.
func columnIn(r cell.Range, col string) (int, error) {
	c, err := cell.ParseCoord(strings.TrimSpace(col) + "1")
	if err != nil || c.Col < r.From.Col || c.Col > r.To.Col {
		return 0, sheeterr.New(sheeterr.InvalidColumn, "column %q is outside %s", col, r)
	}
	return c.Col - r.From.Col, nil
}
