// Package diagnostic implements the stable, user-facing error format
// described in spec.md §6.3 and §7: every surfaced error carries a stable
// code, the offending source fragment, a message, and optional
// label/help/notes/cause. Codes are stable across versions; messages may
// change.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Fragment is a source-text span carried through compilation so that a
// diagnostic can point back at the exact text that caused it.
type Fragment struct {
	Text   string
	Line   int
	Column int
}

func (f Fragment) String() string {
	if f.Text == "" {
		return ""
	}
	return fmt.Sprintf("%d:%d: %q", f.Line, f.Column, f.Text)
}

// Diagnostic is the stable error envelope surfaced to callers of the
// tokenizer, parser, compiler, VM, and flow runtime.
type Diagnostic struct {
	Code     string
	Message  string
	Fragment Fragment
	Label    string
	Help     string
	Notes    []string
	Cause    error
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", d.Code, d.Message)
	if frag := d.Fragment.String(); frag != "" {
		fmt.Fprintf(&b, " (at %s)", frag)
	}
	if d.Label != "" {
		fmt.Fprintf(&b, " — %s", d.Label)
	}
	if d.Cause != nil {
		fmt.Fprintf(&b, ": %s", d.Cause.Error())
	}
	return b.String()
}

// Unwrap allows errors.Is / errors.As to see through to the cause chain.
func (d *Diagnostic) Unwrap() error { return d.Cause }

// New builds a Diagnostic with the given stable code and message.
func New(code, message string) *Diagnostic {
	return &Diagnostic{Code: code, Message: message}
}

// At attaches a source fragment and returns the receiver for chaining.
func (d *Diagnostic) At(f Fragment) *Diagnostic {
	d.Fragment = f
	return d
}

// WithLabel attaches a short inline label.
func (d *Diagnostic) WithLabel(label string) *Diagnostic {
	d.Label = label
	return d
}

// WithHelp attaches a suggested remediation.
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// WithNote appends a note.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithCause wraps an underlying error, preserving its stack via pkg/errors
// so the cause chain survives across layer boundaries.
func (d *Diagnostic) WithCause(cause error) *Diagnostic {
	if cause != nil {
		d.Cause = errors.WithStack(cause)
	}
	return d
}

// Wrap produces a plumbing-level error with a stack trace attached. It is
// used for internal errors that are not surfaced as Diagnostics (store and
// catalog I/O failures, for instance) but still need a cause chain per §7.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Stable error codes referenced throughout the compiler, VM, and runtime.
const (
	CodeParseUnexpectedToken = "PARSE_001"
	CodeMapNoBraces          = "MAP_001"
	CodeExtendDuplicate      = "EXTEND_DUP"
	CodeResolveUnknownName   = "RESOLVE_001"
	CodeResolveAmbiguous     = "RESOLVE_002"
	CodeCastInvalid          = "CAST_001"
	CodeCastOverflow         = "CAST_002"
	CodeCastBadString        = "CAST_004"
	CodeNumberOutOfRange     = "NUMBER_OUT_OF_RANGE"
	CodeNumberDivByZero      = "NUMBER_002"
	CodeTypeMismatch         = "TYPE_001"
	CodeTransactionConflict  = "TXN_CONFLICT"
	CodeTransactionCommitted = "TXN_ALREADY_COMMITTED"
	CodeTransactionRolledBack = "TXN_ALREADY_ROLLED_BACK"
	CodeTransactionStale     = "TXN_VERSION_NOT_VISIBLE"
	CodeTransactionNotActive = "TXN_NOT_ACTIVE"
	CodeFlowSerialization    = "FLOW_001"
	CodeFlowInvariant        = "FLOW_002"
	CodeInternal             = "INTERNAL_001"
)
