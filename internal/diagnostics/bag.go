package diagnostics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"bell/colors"
)

const (
	loweringFailedMsg   = "\nLowering failed with %d error(s)"
	andWarningMsg       = " and %d warning(s)"
	loweringWarningsMsg = "\nLowering succeeded with %d warning(s)\n"
)

// DiagnosticBag collects diagnostics from every lowering worker. Workers
// report concurrently, so output is ordered by Sorted rather than by
// arrival.
type DiagnosticBag struct {
	mu          sync.Mutex
	file        string
	diagnostics []*Diagnostic
	counts      map[Severity]int
	sourceCache *SourceCache
}

// NewDiagnosticBag creates a bag for diagnostics about one typed-tree file.
func NewDiagnosticBag(filepath string) *DiagnosticBag {
	return &DiagnosticBag{
		file:        filepath,
		counts:      make(map[Severity]int),
		sourceCache: NewSourceCache(),
	}
}

// AddSourceContent registers in-memory content so labels can quote it.
func (db *DiagnosticBag) AddSourceContent(filepath, content string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.sourceCache.AddSource(filepath, content)
}

// Add records a diagnostic. Diagnostics without a file refer to the bag's.
func (db *DiagnosticBag) Add(diag *Diagnostic) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if diag.FilePath == "" {
		diag.FilePath = db.file
	}
	db.diagnostics = append(db.diagnostics, diag)
	db.counts[diag.Severity]++
}

func (db *DiagnosticBag) count(s Severity) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.counts[s]
}

func (db *DiagnosticBag) HasErrors() bool   { return db.count(Error) > 0 }
func (db *DiagnosticBag) ErrorCount() int   { return db.count(Error) }
func (db *DiagnosticBag) WarningCount() int { return db.count(Warning) }

// Diagnostics returns a copy of the diagnostics in arrival order.
func (db *DiagnosticBag) Diagnostics() []*Diagnostic {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*Diagnostic(nil), db.diagnostics...)
}

// Errors returns the error diagnostics in arrival order.
func (db *DiagnosticBag) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range db.Diagnostics() {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns the diagnostics ordered by severity, then position in the
// typed tree, then code and unit, so reports do not depend on scheduling.
func (db *DiagnosticBag) Sorted() []*Diagnostic {
	out := db.Diagnostics()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		al, ac := position(a)
		bl, bc := position(b)
		if al != bl {
			return al < bl
		}
		if ac != bc {
			return ac < bc
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Unit < b.Unit
	})
	return out
}

func position(d *Diagnostic) (int, int) {
	if p := d.Primary(); p != nil && p.Location != nil && p.Location.Start != nil {
		return p.Location.Start.Line, p.Location.Start.Column
	}
	return 0, 0
}

// EmitAll prints every diagnostic and the summary to stderr.
func (db *DiagnosticBag) EmitAll() {
	db.emit(os.Stderr)
}

// EmitAllToString renders every diagnostic and the summary with ANSI codes.
func (db *DiagnosticBag) EmitAllToString() string {
	var buf bytes.Buffer
	db.emit(&buf)
	return buf.String()
}

func (db *DiagnosticBag) emit(w io.Writer) {
	emitter := &Emitter{cache: db.sourceCache, writer: w}
	for _, diag := range db.Sorted() {
		emitter.Emit(diag)
	}
	db.printSummary(w)
}

func (db *DiagnosticBag) printSummary(w io.Writer) {
	errs, warns := db.ErrorCount(), db.WarningCount()
	if errs > 0 {
		colors.RED.Fprintf(w, loweringFailedMsg, errs)
		if warns > 0 {
			colors.RED.Fprintf(w, andWarningMsg, warns)
		}
		fmt.Fprintln(w)
	} else if warns > 0 {
		colors.ORANGE.Fprintf(w, loweringWarningsMsg, warns)
	}
}

// Clear removes all diagnostics
func (db *DiagnosticBag) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.diagnostics = nil
	db.counts = make(map[Severity]int)
}
