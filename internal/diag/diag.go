// Package diag is the error and warning channel of the codec. Every record it
// produces is qualified by the cty.Path of the value that caused it, so a
// failing parse of a deeply nested document still points at the exact key.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Severity distinguishes records that abort a call from those that don't.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Code identifies the condition behind a diagnostic.
type Code string

const (
	CodeInvalidType         Code = "invalid_type"
	CodeMissingRequired     Code = "missing_required"
	CodeNotFound            Code = "not_found"
	CodeNoCatalog           Code = "no_catalog"
	CodeOutOfRange          Code = "out_of_range"
	CodeUnknownFlag         Code = "unknown_flag"
	CodeConflictingFlags    Code = "conflicting_flags"
	CodeRemovedField        Code = "removed_field"
	CodeDisabled            Code = "disabled"
	CodeUnknownField        Code = "unknown_field"
	CodeDeprecatedField     Code = "deprecated_field"
	CodeUnresolvedReference Code = "unresolved_reference"
	CodeDumpFailed          Code = "dump_failed"
	CodeSchema              Code = "schema"
)

// Class groups codes the way callers handle them.
type Class int

const (
	// ClassConversion means the value tree does not have the expected shape.
	ClassConversion Class = iota
	// ClassReference means a symbolic identifier is absent from a catalog.
	ClassReference
	// ClassDomain means a value is outside the legal range of its field.
	ClassDomain
	// ClassSchema is a registry authoring error. Only seen at startup or in tests.
	ClassSchema
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassConversion:
		return "conversion"
	case ClassReference:
		return "reference"
	case ClassDomain:
		return "domain"
	case ClassSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Standard errors for each class, matched with errors.Is.
var (
	ErrConversion = errors.New("conversion failed")
	ErrReference  = errors.New("reference resolution failed")
	ErrDomain     = errors.New("value out of range")
	ErrSchema     = errors.New("invalid schema")
)

// ClassOf maps a code to its class.
func ClassOf(code Code) Class {
	switch code {
	case CodeNotFound, CodeNoCatalog, CodeUnresolvedReference:
		return ClassReference
	case CodeOutOfRange:
		return ClassDomain
	case CodeSchema:
		return ClassSchema
	default:
		return ClassConversion
	}
}

func (c Class) sentinel() error {
	switch c {
	case ClassReference:
		return ErrReference
	case ClassDomain:
		return ErrDomain
	case ClassSchema:
		return ErrSchema
	default:
		return ErrConversion
	}
}

// Diagnostic is one warning or error record of a parse or dump call.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Path     cty.Path
	Message  string
	// Source names the operation and descriptor that produced the record,
	// e.g. "parse QOS_ID".
	Source string
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, FormatPath(d.Path), d.Message)
}

// Diagnostics is the ordered record list of one call.
type Diagnostics []Diagnostic

// HasErrors reports whether any record is an error.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only the warning records.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Codes lists the codes of all records in order, mostly for assertions.
func (ds Diagnostics) Codes() []Code {
	out := make([]Code, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

// HCL converts the records into hcl.Diagnostics so they can be rendered with
// hcl's diagnostic writer.
func (ds Diagnostics) HCL() hcl.Diagnostics {
	out := make(hcl.Diagnostics, 0, len(ds))
	for _, d := range ds {
		sev := hcl.DiagWarning
		if d.Severity == SeverityError {
			sev = hcl.DiagError
		}
		out = append(out, &hcl.Diagnostic{
			Severity: sev,
			Summary:  fmt.Sprintf("%s at %s", d.Code, FormatPath(d.Path)),
			Detail:   d.Message,
			Extra:    d,
		})
	}
	return out
}

// Error is the error returned by a failing parse or dump. It carries the same
// data as an error Diagnostic plus the wrapped cause.
type Error struct {
	Op      string
	Type    string
	Path    cty.Path
	Code    Code
	Message string
	Err     error
}

// Errorf builds an Error without a cause.
func Errorf(code Code, path cty.Path, format string, args ...any) *Error {
	return &Error{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(code Code, path cty.Path, err error) *Error {
	return &Error{Code: code, Path: path, Message: err.Error(), Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		if e.Type != "" {
			sb.WriteByte(' ')
			sb.WriteString(e.Type)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(FormatPath(e.Path))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap returns the cause and the class sentinel, so both errors.Is(err,
// ErrReference) and errors.Is(err, cause) hold.
func (e *Error) Unwrap() []error {
	errs := []error{ClassOf(e.Code).sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Diagnostic converts the error into an error record.
func (e *Error) Diagnostic() Diagnostic {
	src := e.Op
	if e.Type != "" {
		src = strings.TrimSpace(e.Op + " " + e.Type)
	}
	return Diagnostic{
		Severity: SeverityError,
		Code:     e.Code,
		Path:     e.Path,
		Message:  e.Message,
		Source:   src,
	}
}

// CodeOf extracts the code of an *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// FormatPath renders a path as dotted keys and bracketed indexes, e.g.
// "job.time.limit" or "jobs[3].qos". The empty path renders as "(root)".
func FormatPath(p cty.Path) string {
	if len(p) == 0 {
		return "(root)"
	}
	var sb strings.Builder
	for i, step := range p {
		switch s := step.(type) {
		case cty.GetAttrStep:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(s.Name)
		case cty.IndexStep:
			switch {
			case s.Key.IsNull() || !s.Key.IsKnown():
				sb.WriteString("[?]")
			case s.Key.Type().Equals(cty.String):
				fmt.Fprintf(&sb, "[%q]", s.Key.AsString())
			case s.Key.Type().Equals(cty.Number):
				fmt.Fprintf(&sb, "[%s]", s.Key.AsBigFloat().Text('f', -1))
			default:
				sb.WriteString("[?]")
			}
		}
	}
	return sb.String()
}

// Index appends a numeric index step to a copy of path.
func Index(path cty.Path, i int) cty.Path {
	return path.Index(cty.NumberIntVal(int64(i)))
}
