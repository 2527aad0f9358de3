package diagnostics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"bell/colors"
)

const (
	STR_MULTIPLIER = "%*d | "
	LINE_POS       = "%s--> %s:%d:%d\n"
)

// SourceCache caches source file contents for error reporting
type SourceCache struct {
	files map[string][]string
}

func NewSourceCache() *SourceCache {
	return &SourceCache{
		files: make(map[string][]string),
	}
}

// AddSource registers in-memory content for a path
func (sc *SourceCache) AddSource(filepath, content string) {
	sc.files[filepath] = strings.Split(content, "\n")
}

// GetLine retrieves a specific line from a source file
func (sc *SourceCache) GetLine(filepath string, line int) (string, error) {
	if lines, ok := sc.files[filepath]; ok {
		if line > 0 && line <= len(lines) {
			return lines[line-1], nil
		}
		return "", fmt.Errorf("line %d out of range", line)
	}

	file, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	lines := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	sc.files[filepath] = lines

	if line > 0 && line <= len(lines) {
		return lines[line-1], nil
	}

	return "", fmt.Errorf("line %d out of range", line)
}

// Emitter handles the rendering and output of diagnostics
type Emitter struct {
	cache               *SourceCache
	writer              io.Writer
	currentLineNumWidth int
}

// NewEmitter creates an emitter that writes to a specific writer
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{
		cache:  NewSourceCache(),
		writer: w,
	}
}

func (e *Emitter) Emit(diag *Diagnostic) {
	e.currentLineNumWidth = 0
	for _, label := range diag.Labels {
		if label.Location != nil && label.Location.Start != nil {
			if w := len(fmt.Sprintf("%d", label.Location.Start.Line)); w > e.currentLineNumWidth {
				e.currentLineNumWidth = w
			}
		}
	}

	e.printHeader(diag)
	if diag.Unit != "" {
		fmt.Fprint(e.writer, strings.Repeat(" ", e.currentLineNumWidth))
		colors.GREY.Fprintf(e.writer, " in %s\n", diag.Unit)
	}

	for _, label := range diag.Labels {
		filepath := diag.FilePath
		if label.Location != nil && label.Location.File() != "" {
			filepath = label.Location.File()
		}
		e.printLabel(filepath, label, diag.Severity)
	}

	for _, note := range diag.Notes {
		e.printNote(note)
	}

	if diag.Help != "" {
		e.printHelp(diag.Help)
	}

	fmt.Fprintln(e.writer)
}

func (e *Emitter) printHeader(diag *Diagnostic) {
	var color colors.COLOR

	switch diag.Severity {
	case Error:
		color = colors.BOLD_RED
	case Warning:
		color = colors.BOLD_YELLOW
	case Info:
		color = colors.BOLD_CYAN
	case Hint:
		color = colors.BOLD_PURPLE
	}

	color.Fprint(e.writer, diag.Severity.String())
	if diag.Code != "" {
		fmt.Fprintf(e.writer, "[%s]", diag.Code)
	}
	fmt.Fprint(e.writer, ": ")
	color.Fprintln(e.writer, diag.Message)
}

func (e *Emitter) printLabel(filepath string, label Label, severity Severity) {
	if label.Location == nil || label.Location.Start == nil {
		return
	}

	start := label.Location.Start
	end := label.Location.End
	if end == nil {
		end = start
	}

	width := e.currentLineNumWidth
	if filepath == "" {
		filepath = "<typed tree>"
	}
	colors.BLUE.Fprintf(e.writer, LINE_POS, strings.Repeat(" ", width), filepath, start.Line, start.Column)

	// The typed tree may arrive without its source file; the position line
	// above is all we can show then.
	sourceLine, err := e.cache.GetLine(filepath, start.Line)
	if err != nil {
		return
	}

	fmt.Fprint(e.writer, strings.Repeat(" ", width))
	colors.GREY.Fprintln(e.writer, " |")
	colors.GREY.Fprintf(e.writer, STR_MULTIPLIER, width, start.Line)
	fmt.Fprintln(e.writer, sourceLine)

	length := end.Column - start.Column
	if end.Line != start.Line || length <= 0 {
		length = 1
	}
	underline := "^"
	color := e.getSeverityColor(severity)
	if label.Style == Secondary {
		underline = "-"
		color = colors.BLUE
	} else if length > 1 {
		underline = "~"
	}

	fmt.Fprint(e.writer, strings.Repeat(" ", width))
	colors.GREY.Fprint(e.writer, " | ")
	if start.Column > 1 {
		fmt.Fprint(e.writer, strings.Repeat(" ", start.Column-1))
	}
	color.Fprint(e.writer, strings.Repeat(underline, length))
	if label.Message != "" {
		color.Fprintf(e.writer, " %s", label.Message)
	}
	fmt.Fprintln(e.writer)
}

func (e *Emitter) printNote(note Note) {
	padding := 0
	if e.currentLineNumWidth > 0 {
		padding = e.currentLineNumWidth + 1 // +1 for the space before |
	}
	fmt.Fprint(e.writer, strings.Repeat(" ", padding))
	colors.CYAN.Fprint(e.writer, "= note: ")
	fmt.Fprintln(e.writer, note.Message)
}

func (e *Emitter) printHelp(help string) {
	padding := 2
	if e.currentLineNumWidth > 0 {
		padding = e.currentLineNumWidth + 1
	}
	fmt.Fprint(e.writer, strings.Repeat(" ", padding))
	colors.GREEN.Fprint(e.writer, "= help: ")
	fmt.Fprintln(e.writer, help)
}

// getSeverityColor returns the color for a given severity
func (e *Emitter) getSeverityColor(severity Severity) colors.COLOR {
	switch severity {
	case Error:
		return colors.RED
	case Warning:
		return colors.YELLOW
	case Info:
		return colors.BLUE
	case Hint:
		return colors.PURPLE
	default:
		return colors.RED
	}
}
