// Package sheeterr defines the closed set of error kinds reported by the
// spreadsheet engine. Every operation returns either nil or an *Error whose
// Kind decides how callers react: reject, record as a cell value, or abort.
package sheeterr

import (
	"errors"
	"fmt"
)

// Kind identifies one failure mode of the engine.
type Kind int

const (
	KindUnknown Kind = iota

	// Format
	InvalidCellIDFormat
	InvalidColumn
	InvalidRow
	InvalidDefinition

	// Evaluation
	ParseError
	ArityError
	UnknownFunction
	ArgumentOutOfBounds
	EvaluationError

	// Structural
	CyclicDependency
	RangeInUse
	InvalidRange

	// Access
	PermissionDenied
	NotLoggedIn

	// Concurrency
	UserAlreadyExists
	InvalidVersionNumber
	SheetAlreadyExists

	// Lookup
	CellNotFound
	SheetNotFound
	RangeNotFound
	UserNotFound
)

// Category groups kinds by propagation policy.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryFormat
	CategoryEvaluation
	CategoryStructural
	CategoryAccess
	CategoryConcurrency
	CategoryLookup
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	InvalidCellIDFormat:  "invalid cell id format",
	InvalidColumn:        "invalid column",
	InvalidRow:           "invalid row",
	InvalidDefinition:    "invalid definition",
	ParseError:           "parse error",
	ArityError:           "arity error",
	UnknownFunction:      "unknown function",
	ArgumentOutOfBounds:  "argument out of bounds",
	EvaluationError:      "evaluation error",
	CyclicDependency:     "cyclic dependency",
	RangeInUse:           "range in use",
	InvalidRange:         "invalid range",
	PermissionDenied:     "permission denied",
	NotLoggedIn:          "not logged in",
	UserAlreadyExists:    "user already exists",
	InvalidVersionNumber: "invalid version number",
	SheetAlreadyExists:   "sheet already exists",
	CellNotFound:         "cell not found",
	SheetNotFound:        "sheet not found",
	RangeNotFound:        "range not found",
	UserNotFound:         "user not found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindUnknown.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUnknown
}

// Category returns the propagation category of k.
func (k Kind) Category() Category {
	switch k {
	case InvalidCellIDFormat, InvalidColumn, InvalidRow, InvalidDefinition:
		return CategoryFormat
	case ParseError, ArityError, UnknownFunction, ArgumentOutOfBounds, EvaluationError:
		return CategoryEvaluation
	case CyclicDependency, RangeInUse, InvalidRange:
		return CategoryStructural
	case PermissionDenied, NotLoggedIn:
		return CategoryAccess
	case UserAlreadyExists, InvalidVersionNumber, SheetAlreadyExists:
		return CategoryConcurrency
	case CellNotFound, SheetNotFound, RangeNotFound, UserNotFound:
		return CategoryLookup
	default:
		return CategoryUnknown
	}
}

// Error is the typed outcome of a failed engine operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCellIDFormat  = &Error{Kind: InvalidCellIDFormat}
	ErrInvalidColumn        = &Error{Kind: InvalidColumn}
	ErrInvalidRow           = &Error{Kind: InvalidRow}
	ErrInvalidDefinition    = &Error{Kind: InvalidDefinition}
	ErrParse                = &Error{Kind: ParseError}
	ErrArity                = &Error{Kind: ArityError}
	ErrUnknownFunction      = &Error{Kind: UnknownFunction}
	ErrArgumentOutOfBounds  = &Error{Kind: ArgumentOutOfBounds}
	ErrEvaluation           = &Error{Kind: EvaluationError}
	ErrCyclicDependency     = &Error{Kind: CyclicDependency}
	ErrRangeInUse           = &Error{Kind: RangeInUse}
	ErrInvalidRange         = &Error{Kind: InvalidRange}
	ErrPermissionDenied     = &Error{Kind: PermissionDenied}
	ErrNotLoggedIn          = &Error{Kind: NotLoggedIn}
	ErrUserAlreadyExists    = &Error{Kind: UserAlreadyExists}
	ErrInvalidVersionNumber = &Error{Kind: InvalidVersionNumber}
	ErrSheetAlreadyExists   = &Error{Kind: SheetAlreadyExists}
	ErrCellNotFound         = &Error{Kind: CellNotFound}
	ErrSheetNotFound        = &Error{Kind: SheetNotFound}
	ErrRangeNotFound        = &Error{Kind: RangeNotFound}
	ErrUserNotFound         = &Error{Kind: UserNotFound}
)
