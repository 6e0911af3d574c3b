// Package wire holds the JSON documents exchanged between the shticell HTTP
// API and its clients. It depends only on the value packages so that clients
// do not link the server.
package wire

import (
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/permission"
)

// UserHeader names the logged-in user making a request.
const UserHeader = "X-Username"

// KindLocation marks the error detail that carries the engine error kind.
const KindLocation = "kind"

type LoginBody struct {
	Username string `json:"username" doc:"Name to log in as" required:"true" minLength:"1"`
}

type SessionResponse struct {
	Username string    `json:"username" doc:"Logged-in username"`
	Since    time.Time `json:"since" doc:"Login time"`
}

type UploadSheetBody struct {
	Name   string            `json:"name" doc:"Unique sheet name" required:"true" minLength:"1"`
	Rows   int               `json:"rows,omitempty" doc:"Row count; 0 with cols 0 uses the server default" minimum:"0"`
	Cols   int               `json:"cols,omitempty" doc:"Column count" minimum:"0"`
	Cells  map[string]string `json:"cells,omitempty" doc:"Raw cell text by cell id"`
	Ranges map[string]string `json:"ranges,omitempty" doc:"Named ranges, e.g. A1..B3"`
}

// SheetInfo is one line of the sheet dashboard.
type SheetInfo struct {
	ID      uuid.UUID        `json:"id"`
	Name    string           `json:"name"`
	Owner   string           `json:"owner"`
	Rows    int              `json:"rows"`
	Cols    int              `json:"cols"`
	Version int64            `json:"version"`
	Level   permission.Level `json:"level"`
}

type VersionResponse struct {
	Version int64 `json:"version" doc:"Latest committed version"`
}

type SetCellBody struct {
	Text string `json:"text" doc:"Raw cell text; empty clears the cell" required:"true"`
}

// EditResponse describes a committed edit.
type EditResponse struct {
	Version    int64        `json:"version" doc:"Version created by the edit"`
	Changed    []cell.Coord `json:"changed" doc:"Cells whose text or value changed"`
	ParseError string       `json:"parse_error,omitempty" doc:"Set when the text is a malformed formula; the cell shows #PARSE!"`
}

type PreviewBody struct {
	CellID string `json:"cell_id" doc:"Cell to vary" required:"true" minLength:"1"`
	Text   string `json:"text" doc:"Text to try in the cell" required:"true"`
}

type AddRangeBody struct {
	Name  string `json:"name" doc:"Range name" required:"true" minLength:"1"`
	Range string `json:"range" doc:"Corners such as A1..B3" required:"true" minLength:"1"`
}

type SortBody struct {
	Range   string   `json:"range" doc:"Range to sort, e.g. A1..C9" required:"true" minLength:"1"`
	Columns []string `json:"columns" doc:"Sort columns by letter, first column first" required:"true" minItems:"1"`
}

type FilterBody struct {
	Range  string   `json:"range" doc:"Range to filter" required:"true" minLength:"1"`
	Column string   `json:"column" doc:"Column letter to filter on" required:"true" minLength:"1"`
	Values []string `json:"values" doc:"Displayed values to keep" required:"true"`
}

// Permissions is the access table of one sheet.
type Permissions struct {
	Owner    string               `json:"owner"`
	Users    []permission.Details `json:"users"`
	Requests []permission.Request `json:"requests"`
}

type RequestPermissionBody struct {
	Level string `json:"level" doc:"Requested level" required:"true" enum:"READER,WRITER"`
}

type DecidePermissionBody struct {
	Username string `json:"username" doc:"User whose pending request is decided" required:"true" minLength:"1"`
	Approve  bool   `json:"approve" doc:"Approve when true, deny otherwise" required:"true"`
}

type SetLevelBody struct {
	Level string `json:"level" doc:"New level; NONE revokes" required:"true" enum:"NONE,READER,WRITER"`
}

// FunctionInfo describes one formula function. MaxArgs is -1 for functions
// without an upper bound.
type FunctionInfo struct {
	Name     string `json:"name" doc:"Upper-case function name"`
	Category string `json:"category" doc:"arithmetic, logical, string, aggregate or system"`
	MinArgs  int    `json:"min_args"`
	MaxArgs  int    `json:"max_args"`
}
