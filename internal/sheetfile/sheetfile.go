// Package sheetfile reads sheet definitions from TOML files and watches them
// for edits.
//
//	name = "budget"
//	rows = 10
//	cols = 5
//
//	[cells]
//	A1 = "3"
//	B1 = "{PLUS,A1,4}"
//
//	[ranges]
//	nums = "A1..A3"
package sheetfile

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/ryanbastic/go-shticell/internal/sheet"
)

// Load reads and decodes the definition at path.
func Load(path string) (sheet.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sheet.Definition{}, fmt.Errorf("read sheet file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a TOML sheet definition.
func Parse(data []byte) (sheet.Definition, error) {
	var def sheet.Definition
	if err := toml.Unmarshal(data, &def); err != nil {
		return sheet.Definition{}, fmt.Errorf("parse sheet file: %w", err)
	}
	if def.Name == "" {
		return sheet.Definition{}, fmt.Errorf("parse sheet file: name is required")
	}
	return def, nil
}

// Encode renders def as TOML.
func Encode(def sheet.Definition) ([]byte, error) {
	data, err := toml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode sheet file: %w", err)
	}
	return data, nil
}
