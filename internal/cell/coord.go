package cell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Coord addresses a cell. Row and Col are 1-based; column 1 is "A".
type Coord struct {
	Row int
	Col int
}

// ParseCoord parses an identity such as "A1" or "AB12": one to three
// uppercase letters and a positive row. Bounds are not checked here; see
// Bounds.Check.
func ParseCoord(id string) (Coord, error) {
	id = strings.TrimSpace(id)
	i := 0
	for i < len(id) && isLetter(id[i]) {
		i++
	}
	if i == 0 || i == len(id) || i > 3 {
		return Coord{}, sheeterr.New(sheeterr.InvalidCellIDFormat, "%q is not letters followed by a row number", id)
	}
	digits := id[i:]
	if digits[0] == '0' {
		return Coord{}, sheeterr.New(sheeterr.InvalidCellIDFormat, "%q has a zero or zero-padded row", id)
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return Coord{}, sheeterr.New(sheeterr.InvalidCellIDFormat, "%q has a non-numeric row", id)
		}
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return Coord{}, sheeterr.New(sheeterr.InvalidCellIDFormat, "%q row: %v", id, err)
	}
	return Coord{Row: row, Col: ColumnIndex(id[:i])}, nil
}

// MustParseCoord is ParseCoord for literals in tests and fixtures.
func MustParseCoord(id string) Coord {
	c, err := ParseCoord(id)
	if err != nil {
		panic(err)
	}
	return c
}

// LooksLikeCoord reports whether s has the shape of a cell identity.
func LooksLikeCoord(s string) bool {
	_, err := ParseCoord(s)
	return err == nil
}

func (c Coord) String() string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row)
}

// MarshalText lets Coord key JSON maps.
func (c Coord) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Coord) UnmarshalText(b []byte) error {
	parsed, err := ParseCoord(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Less orders coordinates row-major.
func (c Coord) Less(o Coord) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// ColumnIndex converts "A" to 1, "Z" to 26, "AA" to 27.
func ColumnIndex(letters string) int {
	n := 0
	for i := 0; i < len(letters); i++ {
		n = n*26 + int(letters[i]-'A'+1)
	}
	return n
}

// ColumnName converts 1 to "A", 27 to "AA".
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func isLetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// Dimensions of a sheet that declares none.
const (
	DefaultRows = 50
	DefaultCols = 20
)

// Largest dimensions any sheet may have. MaxCols is "ZZZ", the last column
// ParseCoord can address.
const (
	MaxRows = 1 << 20
	MaxCols = 26 + 26*26 + 26*26*26
)

// Bounds are the fixed dimensions of a sheet.
type Bounds struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Within reports whether b is positive and no larger than limit.
func (b Bounds) Within(limit Bounds) bool {
	return b.Rows >= 1 && b.Cols >= 1 && b.Rows <= limit.Rows && b.Cols <= limit.Cols
}

// Check reports InvalidRow or InvalidColumn when c falls outside b.
func (b Bounds) Check(c Coord) error {
	if c.Col < 1 || c.Col > b.Cols {
		return sheeterr.New(sheeterr.InvalidColumn, "column %s outside A..%s", ColumnName(c.Col), ColumnName(b.Cols))
	}
	if c.Row < 1 || c.Row > b.Rows {
		return sheeterr.New(sheeterr.InvalidRow, "row %d outside 1..%d", c.Row, b.Rows)
	}
	return nil
}

// Resolve parses id and checks it against b.
func (b Bounds) Resolve(id string) (Coord, error) {
	c, err := ParseCoord(id)
	if err != nil {
		return Coord{}, err
	}
	if err := b.Check(c); err != nil {
		return Coord{}, err
	}
	return c, nil
}

// Range is a rectangular block from From (top-left) to To (bottom-right).
type Range struct {
	From Coord
	To   Coord
}

// RangeSeparator joins the corners of a range literal, as in "A1..B3".
const RangeSeparator = ".."

// ParseRange parses "A1..B3". Corners may be given in any order.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(strings.TrimSpace(s), RangeSeparator)
	if len(parts) != 2 {
		return Range{}, sheeterr.New(sheeterr.InvalidRange, "%q is not of the form A1..B2", s)
	}
	from, err := ParseCoord(parts[0])
	if err != nil {
		return Range{}, sheeterr.New(sheeterr.InvalidRange, "%q: %v", s, err)
	}
	to, err := ParseCoord(parts[1])
	if err != nil {
		return Range{}, sheeterr.New(sheeterr.InvalidRange, "%q: %v", s, err)
	}
	return NewRange(from, to), nil
}

// NewRange normalises two corners into a top-left/bottom-right range.
func NewRange(a, b Coord) Range {
	return Range{
		From: Coord{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)},
		To:   Coord{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)},
	}
}

// Check verifies both corners lie inside b.
func (r Range) Check(b Bounds) error {
	if err := b.Check(r.From); err != nil {
		return sheeterr.New(sheeterr.InvalidRange, "%s: %v", r, err)
	}
	if err := b.Check(r.To); err != nil {
		return sheeterr.New(sheeterr.InvalidRange, "%s: %v", r, err)
	}
	return nil
}

// Contains reports whether c lies inside r.
func (r Range) Contains(c Coord) bool {
	return c.Row >= r.From.Row && c.Row <= r.To.Row &&
		c.Col >= r.From.Col && c.Col <= r.To.Col
}

// Coords lists every coordinate of r in row-major order.
func (r Range) Coords() []Coord {
	out := make([]Coord, 0, (r.To.Row-r.From.Row+1)*(r.To.Col-r.From.Col+1))
	for row := r.From.Row; row <= r.To.Row; row++ {
		for col := r.From.Col; col <= r.To.Col; col++ {
			out = append(out, Coord{Row: row, Col: col})
		}
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("%s%s%s", r.From, RangeSeparator, r.To)
}

func (r Range) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Range) UnmarshalText(b []byte) error {
	parsed, err := ParseRange(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
