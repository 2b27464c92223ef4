package sema

import (
	"fmt"

	"lumen/internal/diag"
	"lumen/internal/source"
)

// TypeErrorKind tags a type-checking failure.
type TypeErrorKind uint8

const (
	TypeMismatch TypeErrorKind = iota + 1
	UndefinedVariable
	UndefinedFunction
	UndefinedType
	DuplicateDefinition
	CannotInferType
	InvalidOperation
	MissingReturn
	WrongArgumentCount
	InvalidArgumentType
	InvalidMemberAccess
)

var kindInfo = map[TypeErrorKind]struct {
	name string
	code diag.Code
}{
	TypeMismatch:        {"TypeMismatch", diag.SemaTypeMismatch},
	UndefinedVariable:   {"UndefinedVariable", diag.SemaUndefinedVariable},
	UndefinedFunction:   {"UndefinedFunction", diag.SemaUndefinedFunction},
	UndefinedType:       {"UndefinedType", diag.SemaUndefinedType},
	DuplicateDefinition: {"DuplicateDefinition", diag.SemaDuplicateDefinition},
	CannotInferType:     {"CannotInferType", diag.SemaCannotInferType},
	InvalidOperation:    {"InvalidOperation", diag.SemaInvalidOperation},
	MissingReturn:       {"MissingReturn", diag.SemaMissingReturn},
	WrongArgumentCount:  {"WrongArgumentCount", diag.SemaWrongArgumentCount},
	InvalidArgumentType: {"InvalidArgumentType", diag.SemaInvalidArgumentType},
	InvalidMemberAccess: {"InvalidMemberAccess", diag.SemaInvalidMemberAccess},
}

func (k TypeErrorKind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("TypeErrorKind(%d)", k)
}

// Code maps the kind onto the diagnostic code space.
func (k TypeErrorKind) Code() diag.Code {
	return kindInfo[k].code
}

// TypeError is one type-checking failure. Subject carries the offending name
// (variable, function, type or field) when there is one.
type TypeError struct {
	Kind    TypeErrorKind
	Message string
	Subject string
	Span    source.Span
}

func (e TypeError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// Diagnostic converts the error into the compiler-wide form.
func (e TypeError) Diagnostic() diag.Diagnostic {
	return diag.NewError(e.Kind.Code(), e.Span, e.Message)
}
