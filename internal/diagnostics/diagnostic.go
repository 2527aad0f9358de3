package diagnostics

import (
	"errors"
	"strings"

	"bell/internal/source"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// Label points at a node of the typed tree
type Label struct {
	Location *source.Location
	Message  string
	Style    LabelStyle
}

type LabelStyle int

const (
	Primary   LabelStyle = iota // where the problem is (^^^)
	Secondary                   // related context (---)
)

// Note is a trailing line of extra information
type Note struct {
	Message string
}

// Diagnostic is one problem found while lowering a typed tree. It doubles
// as an error value so stages can return what they report.
type Diagnostic struct {
	Severity Severity
	Message  string
	Code     string // e.g. "R0001"
	FilePath string // typed-tree file the labels refer to
	Unit     string // lowering unit being built, if any
	Labels   []Label
	Notes    []Note
	Help     string
}

func newDiagnostic(severity Severity, message string) *Diagnostic {
	return &Diagnostic{Severity: severity, Message: message}
}

func NewError(message string) *Diagnostic   { return newDiagnostic(Error, message) }
func NewWarning(message string) *Diagnostic { return newDiagnostic(Warning, message) }
func NewInfo(message string) *Diagnostic    { return newDiagnostic(Info, message) }

// WithCode sets the diagnostic code
func (d *Diagnostic) WithCode(code string) *Diagnostic {
	d.Code = code
	return d
}

// InUnit records the lowering unit the diagnostic came from.
func (d *Diagnostic) InUnit(name string) *Diagnostic {
	d.Unit = name
	return d
}

func (d *Diagnostic) addLabel(filepath string, loc *source.Location, message string, style LabelStyle) {
	if d.FilePath == "" {
		d.FilePath = filepath
	}
	label := Label{Location: loc, Message: message, Style: style}
	if style == Primary {
		d.Labels = append([]Label{label}, d.Labels...)
		return
	}
	d.Labels = append(d.Labels, label)
}

// WithPrimaryLabel sets the main location. It always ends up first, and
// only the first call counts.
func (d *Diagnostic) WithPrimaryLabel(filepath string, loc *source.Location, message string) *Diagnostic {
	if d.Primary() == nil {
		d.addLabel(filepath, loc, message, Primary)
	}
	return d
}

// WithSecondaryLabel adds context after the primary location. Without a
// primary label the first secondary one is promoted.
func (d *Diagnostic) WithSecondaryLabel(filepath string, loc *source.Location, message string) *Diagnostic {
	style := Secondary
	if d.Primary() == nil {
		style = Primary
	}
	d.addLabel(filepath, loc, message, style)
	return d
}

// Primary returns the main label, or nil when the diagnostic has none.
func (d *Diagnostic) Primary() *Label {
	for i := range d.Labels {
		if d.Labels[i].Style == Primary {
			return &d.Labels[i]
		}
	}
	return nil
}

// WithNote adds a note to the diagnostic
func (d *Diagnostic) WithNote(message string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Message: message})
	return d
}

// WithHelp sets a suggestion for fixing the problem
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// Error renders the diagnostic on one line, notes appended.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	if d.Code != "" {
		b.WriteString("[" + d.Code + "]")
	}
	b.WriteString(": ")
	if d.Unit != "" {
		b.WriteString(d.Unit + ": ")
	}
	b.WriteString(d.Message)
	for _, note := range d.Notes {
		b.WriteString("; ")
		b.WriteString(note.Message)
	}
	return b.String()
}

// HasCode reports whether err wraps a diagnostic with the given code.
func HasCode(err error, code string) bool {
	var d *Diagnostic
	return errors.As(err, &d) && d.Code == code
}
