package cell

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Type is the kind of a computed value.
type Type uint8

const (
	TypeEmpty Type = iota
	TypeNumber
	TypeString
	TypeBoolean
	TypeError
	TypeUndefined
)

var typeNames = map[Type]string{
	TypeEmpty:     "empty",
	TypeNumber:    "number",
	TypeString:    "string",
	TypeBoolean:   "boolean",
	TypeError:     "error",
	TypeUndefined: "undefined",
}

func (t Type) String() string { return typeNames[t] }

// ErrorCode is the marker a cell displays when its formula fails.
type ErrorCode string

const (
	ErrorCodeParse  ErrorCode = "#PARSE!"
	ErrorCodeName   ErrorCode = "#NAME?"
	ErrorCodeNA     ErrorCode = "#N/A"
	ErrorCodeValue  ErrorCode = "#VALUE!"
	ErrorCodeDiv0   ErrorCode = "#DIV/0!"
	ErrorCodeBounds ErrorCode = "#BOUNDS!"
	ErrorCodeRef    ErrorCode = "#REF!"
)

// UndefinedText is how the undefined sentinel is displayed.
const UndefinedText = "!UNDEFINED!"

// Value is an immutable computed cell value.
type Value struct {
	typ     Type
	num     float64
	str     string
	boolean bool
	code    ErrorCode
	kind    sheeterr.Kind
}

// Empty is the value of a cell that was never written or was cleared.
var Empty = Value{}

// Undefined is the sentinel returned when a reference cannot be resolved to
// a primitive. It is distinct from any string, including "!UNDEFINED!".
var Undefined = Value{typ: TypeUndefined}

func Number(f float64) Value { return Value{typ: TypeNumber, num: f} }
func String(s string) Value  { return Value{typ: TypeString, str: s} }
func Boolean(b bool) Value   { return Value{typ: TypeBoolean, boolean: b} }

// Errorf builds an error-marker value of the given kind.
func Errorf(code ErrorCode, kind sheeterr.Kind, format string, args ...any) Value {
	return Value{typ: TypeError, code: code, kind: kind, str: fmt.Sprintf(format, args...)}
}

func (v Value) Type() Type        { return v.typ }
func (v Value) IsEmpty() bool     { return v.typ == TypeEmpty }
func (v Value) IsError() bool     { return v.typ == TypeError }
func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) Code() ErrorCode   { return v.code }

// IsPrimitive reports whether v is a number, string or boolean.
func (v Value) IsPrimitive() bool {
	return v.typ == TypeNumber || v.typ == TypeString || v.typ == TypeBoolean
}

// Num returns the number held by v.
func (v Value) Num() (float64, bool) { return v.num, v.typ == TypeNumber }

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.str, v.typ == TypeString }

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) { return v.boolean, v.typ == TypeBoolean }

// Err converts an error marker back into the typed error that produced it.
func (v Value) Err() error {
	if v.typ != TypeError {
		return nil
	}
	return &sheeterr.Error{Kind: v.kind, Message: v.str}
}

// Equal compares type and payload. Error markers compare by code.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case TypeString:
		return v.str == o.str
	case TypeBoolean:
		return v.boolean == o.boolean
	case TypeError:
		return v.code == o.code
	default:
		return true
	}
}

// String renders v the way a cell displays it.
func (v Value) String() string {
	switch v.typ {
	case TypeNumber:
		return FormatNumber(v.num)
	case TypeString:
		return v.str
	case TypeBoolean:
		return strings.ToUpper(strconv.FormatBool(v.boolean))
	case TypeError:
		return string(v.code)
	case TypeUndefined:
		return UndefinedText
	default:
		return ""
	}
}

// FormatNumber prints integers without a fraction and everything else
// rounded to at most two decimals.
func FormatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// ParseLiteral types plain text: numbers, TRUE/FALSE, otherwise a string.
// Empty text is the empty value.
func ParseLiteral(text string) Value {
	if text == "" {
		return Empty
	}
	trimmed := strings.TrimSpace(text)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Number(f)
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Boolean(true)
	case "FALSE":
		return Boolean(false)
	}
	return String(text)
}

type jsonValue struct {
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Code    ErrorCode       `json:"code,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Message string          `json:"message,omitempty"`
	Display string          `json:"display"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	out := jsonValue{Type: v.typ.String(), Display: v.String()}
	var err error
	switch v.typ {
	case TypeNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			out.Value, err = json.Marshal(v.String())
		} else {
			out.Value, err = json.Marshal(v.num)
		}
	case TypeString:
		out.Value, err = json.Marshal(v.str)
	case TypeBoolean:
		out.Value, err = json.Marshal(v.boolean)
	case TypeError:
		out.Code = v.code
		out.Kind = v.kind.String()
		out.Message = v.str
	}
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var in jsonValue
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	switch in.Type {
	case "", "empty":
		*v = Empty
	case "undefined":
		*v = Undefined
	case "number":
		var f float64
		if err := json.Unmarshal(in.Value, &f); err != nil {
			*v = Number(math.NaN())
			return nil
		}
		*v = Number(f)
	case "string":
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return fmt.Errorf("unmarshal string value: %w", err)
		}
		*v = String(s)
	case "boolean":
		var b bool
		if err := json.Unmarshal(in.Value, &b); err != nil {
			return fmt.Errorf("unmarshal boolean value: %w", err)
		}
		*v = Boolean(b)
	case "error":
		*v = Value{typ: TypeError, code: in.Code, kind: sheeterr.ParseKind(in.Kind), str: in.Message}
	default:
		return fmt.Errorf("unmarshal value: unknown type %q", in.Type)
	}
	return nil
}
