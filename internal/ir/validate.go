package ir

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/trace"
	"lumen/internal/types"
)

// ErrorKind classifies a validation failure.
type ErrorKind uint8

const (
	InvalidSSA ErrorKind = iota + 1
	InvalidReference
	TypeMismatch
	InvalidType
	UndefinedVariable
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidSSA:
		return "InvalidSSA"
	case InvalidReference:
		return "InvalidReference"
	case TypeMismatch:
		return "TypeMismatch"
	case InvalidType:
		return "InvalidType"
	case UndefinedVariable:
		return "UndefinedVariable"
	default:
		return "ErrorKind?"
	}
}

// Code maps the kind onto the compiler-wide diagnostic code.
func (k ErrorKind) Code() diag.Code {
	switch k {
	case InvalidSSA:
		return diag.IRInvalidSSA
	case InvalidReference:
		return diag.IRInvalidReference
	case TypeMismatch:
		return diag.IRTypeMismatch
	case InvalidType:
		return diag.IRInvalidType
	case UndefinedVariable:
		return diag.IRUndefinedVariable
	default:
		return diag.IRInfo
	}
}

// ValidationError is one violated IR contract. Block and Instr locate the
// offending instruction; Instr is -1 for function-level problems.
type ValidationError struct {
	Kind     ErrorKind
	Func     string
	Block    BlockID
	Instr    int
	Value    Value
	Target   BlockID
	Expected string
	Found    string
	Message  string
	Span     source.Span
}

func (e ValidationError) location() string {
	if e.Block == NoBlockID {
		return e.Func
	}
	if e.Instr < 0 {
		return e.Func + ":" + e.Block.String()
	}
	return e.Func + ":" + e.Block.String() + "#" + strconv.Itoa(e.Instr)
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.location(), e.Kind, e.Message)
}

func (e ValidationError) Diagnostic() diag.Diagnostic {
	d := diag.New(diag.SevError, e.Kind.Code(), e.Span, e.Error())
	if e.Expected != "" || e.Found != "" {
		d = d.WithNote(e.Span, fmt.Sprintf("expected %s, found %s", e.Expected, e.Found))
	}
	return d
}

// ValidationErrors is the full set of failures of one Validate run.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Of returns the errors of the given kind.
func (es ValidationErrors) Of(kind ErrorKind) ValidationErrors {
	var out ValidationErrors
	for _, e := range es {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// AsValidationErrors extracts the error set returned by Validate.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var es ValidationErrors
	ok := errors.As(err, &es)
	return es, ok
}

type ValidateOptions struct {
	// WholeFunctionSSA checks single assignment across all blocks of a
	// function (parameters included) instead of within each block.
	WholeFunctionSSA bool
	Reporter         diag.Reporter
	Tracer           trace.Tracer
	TraceParent      uint64
}

// Validate runs every check over every function and returns nil only when
// none of them found a problem. Otherwise the result is ValidationErrors.
// The module is never modified.
func Validate(m *Module, opts ValidateOptions) error {
	if m == nil {
		return nil
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	span := trace.Begin(opts.Tracer, trace.ScopePass, "validate", opts.TraceParent)
	var errs ValidationErrors
	for _, f := range m.Funcs {
		errs = append(errs, ValidateFunc(f, m.Types, opts)...)
	}
	span.WithExtra("errors", strconv.Itoa(len(errs))).End("")
	if opts.Reporter != nil {
		for _, e := range errs {
			diag.Emit(opts.Reporter, e.Diagnostic())
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateFunc checks one function. in may be nil, in which case type
// checks that need type information are skipped.
func ValidateFunc(f *Func, in *types.Interner, opts ValidateOptions) ValidationErrors {
	if f == nil {
		return nil
	}
	v := &validator{f: f, in: in, index: f.blockIndex()}
	v.checkSSA(opts.WholeFunctionSSA)
	v.checkBlockRefs()
	v.checkTypes()
	v.checkDefined()
	return v.errs
}

type validator struct {
	f     *Func
	in    *types.Interner
	index map[BlockID]int
	errs  ValidationErrors
}

func (v *validator) add(e ValidationError) {
	e.Func = v.f.Name
	e.Span = v.f.Span
	v.errs = append(v.errs, e)
}

// checkSSA records InvalidSSA for every destination written twice within
// a block, or within the whole function when whole is set.
func (v *validator) checkSSA(whole bool) {
	seen := make(map[Value]struct{})
	if whole {
		for _, p := range v.f.Params {
			if p.Value != NoValue {
				seen[p.Value] = struct{}{}
			}
		}
	}
	for i := range v.f.Blocks {
		bb := &v.f.Blocks[i]
		if !whole {
			clear(seen)
		}
		for j := range bb.Instrs {
			dest := bb.Instrs[j].Dest
			if dest == NoValue {
				continue
			}
			if _, dup := seen[dest]; dup {
				v.add(ValidationError{
					Kind:    InvalidSSA,
					Block:   bb.ID,
					Instr:   j,
					Value:   dest,
					Message: fmt.Sprintf("value %s is assigned more than once", dest),
				})
				continue
			}
			seen[dest] = struct{}{}
		}
	}
}

func (v *validator) blockExists(id BlockID) bool {
	_, ok := v.index[id]
	return ok
}

// checkBlockRefs confirms that block ids are unique, that terminator
// targets and phi edges name blocks the function declares, and that no
// terminator jumps back to the entry block.
func (v *validator) checkBlockRefs() {
	declared := make(map[BlockID]struct{}, len(v.f.Blocks))
	for i := range v.f.Blocks {
		id := v.f.Blocks[i].ID
		if id < 0 {
			v.add(ValidationError{
				Kind:    InvalidReference,
				Block:   NoBlockID,
				Instr:   -1,
				Target:  id,
				Message: fmt.Sprintf("block #%d has no id", i),
			})
			continue
		}
		if _, dup := declared[id]; dup {
			v.add(ValidationError{
				Kind:    InvalidReference,
				Block:   id,
				Instr:   -1,
				Target:  id,
				Message: fmt.Sprintf("block id %s is declared more than once", id),
			})
			continue
		}
		declared[id] = struct{}{}
	}
	entryOK := v.blockExists(v.f.Entry)
	if len(v.f.Blocks) > 0 && !entryOK {
		v.add(ValidationError{
			Kind:    InvalidReference,
			Block:   NoBlockID,
			Instr:   -1,
			Target:  v.f.Entry,
			Message: fmt.Sprintf("entry block %s does not exist", v.f.Entry),
		})
	}
	var targets []BlockID
	for i := range v.f.Blocks {
		bb := &v.f.Blocks[i]
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			targets = ins.Targets(targets[:0])
			for _, t := range targets {
				// у входного блока нет предшественников
				if entryOK && t == v.f.Entry {
					v.add(ValidationError{
						Kind:    InvalidReference,
						Block:   bb.ID,
						Instr:   j,
						Target:  t,
						Message: fmt.Sprintf("%s targets the entry block %s", ins.Kind, t),
					})
				}
			}
			if ins.Kind == InstrPhi {
				for _, e := range ins.Phi.Incoming {
					targets = append(targets, e.Block)
				}
			}
			for _, t := range targets {
				if !v.blockExists(t) {
					v.add(ValidationError{
						Kind:    InvalidReference,
						Block:   bb.ID,
						Instr:   j,
						Target:  t,
						Message: fmt.Sprintf("%s refers to missing block %s", ins.Kind, t),
					})
				}
			}
		}
	}
}

// checkTypes rejects void parameters and non-bool branch conditions.
func (v *validator) checkTypes() {
	if v.in == nil {
		return
	}
	for _, p := range v.f.Params {
		if v.in.KindOf(p.Type) == types.KindVoid {
			v.add(ValidationError{
				Kind:     InvalidType,
				Block:    NoBlockID,
				Instr:    -1,
				Value:    p.Value,
				Expected: "non-void type",
				Found:    "void",
				Message:  fmt.Sprintf("parameter '%s' has type void", p.Name),
			})
		}
	}

	defs := make(map[Value]types.TypeID)
	for _, p := range v.f.Params {
		defs[p.Value] = p.Type
	}
	for i := range v.f.Blocks {
		for j := range v.f.Blocks[i].Instrs {
			ins := &v.f.Blocks[i].Instrs[j]
			if ins.Dest != NoValue && ins.Kind != InstrAlloca {
				defs[ins.Dest] = ins.Type
			}
		}
	}
	boolType := v.in.Builtins().Bool
	for i := range v.f.Blocks {
		bb := &v.f.Blocks[i]
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			if ins.Kind != InstrBranch {
				continue
			}
			t, ok := defs[ins.Branch.Cond]
			if !ok || t == types.NoTypeID || t == boolType {
				continue
			}
			v.add(ValidationError{
				Kind:     TypeMismatch,
				Block:    bb.ID,
				Instr:    j,
				Value:    ins.Branch.Cond,
				Expected: "bool",
				Found:    types.Label(v.in, t),
				Message:  fmt.Sprintf("branch condition %s is not bool", ins.Branch.Cond),
			})
		}
	}
}

// checkDefined reports operands that no parameter or instruction defines.
func (v *validator) checkDefined() {
	defined := make(map[Value]struct{})
	for _, p := range v.f.Params {
		defined[p.Value] = struct{}{}
	}
	for i := range v.f.Blocks {
		for _, ins := range v.f.Blocks[i].Instrs {
			if ins.Dest != NoValue {
				defined[ins.Dest] = struct{}{}
			}
		}
	}
	var ops []Value
	for i := range v.f.Blocks {
		bb := &v.f.Blocks[i]
		for j := range bb.Instrs {
			ops = bb.Instrs[j].Operands(ops[:0])
			for _, op := range ops {
				if _, ok := defined[op]; !ok {
					v.add(ValidationError{
						Kind:    UndefinedVariable,
						Block:   bb.ID,
						Instr:   j,
						Value:   op,
						Message: fmt.Sprintf("%s uses undefined value %s", bb.Instrs[j].Kind, op),
					})
				}
			}
		}
	}
}
