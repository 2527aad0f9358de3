package colors

import (
	"fmt"
	"io"
	"strings"
)

// Print methods (default to stdout)
func (c COLOR) Printf(format string, args ...any) {
	fmt.Printf(c.code()+format+RESET.code(), args...)
}

func (c COLOR) Println(args ...any) {
	fmt.Print(c.code())
	fmt.Println(args...)
	fmt.Print(RESET.code())
}

func (c COLOR) Print(args ...any) {
	fmt.Print(c.code())
	fmt.Print(args...)
	fmt.Print(RESET.code())
}

// Fprint methods (write to specific writer)
func (c COLOR) Fprintf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, c.code()+format+RESET.code(), args...)
}

func (c COLOR) Fprintln(w io.Writer, args ...any) {
	fmt.Fprint(w, c.code())
	fmt.Fprintln(w, args...)
	fmt.Fprint(w, RESET.code())
}

func (c COLOR) Fprint(w io.Writer, args ...any) {
	fmt.Fprint(w, c.code())
	fmt.Fprint(w, args...)
	fmt.Fprint(w, RESET.code())
}

func (c COLOR) Sprintf(format string, args ...any) string {
	return c.code() + fmt.Sprintf(format, args...) + RESET.code()
}

func (c COLOR) Sprintln(args ...any) string {
	return c.code() + fmt.Sprintln(args...) + RESET.code()
}

func (c COLOR) Sprint(args ...any) string {
	return c.code() + fmt.Sprint(args...) + RESET.code()
}

// StripANSI removes ANSI color codes from a string
func StripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			inEscape = true
			i++
			continue
		}
		if inEscape {
			if (s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z') {
				inEscape = false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// ConvertANSIToHTML escapes text and turns the palette's escape codes into
// span tags, for hosts that render HTML.
func ConvertANSIToHTML(text string) string {
	result := strings.ReplaceAll(text, "&", "&amp;")
	result = strings.ReplaceAll(result, "<", "&lt;")
	result = strings.ReplaceAll(result, ">", "&gt;")

	spans := []struct {
		code COLOR
		html string
	}{
		{RESET, "</span>"},
		{BOLD_RED, `<span style="color: #ef4444; font-weight: bold">`},
		{BOLD_GREEN, `<span style="color: #10b981; font-weight: bold">`},
		{BOLD_YELLOW, `<span style="color: #f59e0b; font-weight: bold">`},
		{BOLD_PURPLE, `<span style="color: #a855f7; font-weight: bold">`},
		{BOLD_CYAN, `<span style="color: #56b6c2; font-weight: bold">`},
		{RED, `<span style="color: #ef4444">`},
		{GREEN, `<span style="color: #10b981">`},
		{YELLOW, `<span style="color: #f59e0b">`},
		{BLUE, `<span style="color: #3b82f6">`},
		{PURPLE, `<span style="color: #c678dd; font-weight: bold">`},
		{CYAN, `<span style="color: #56b6c2">`},
		{WHITE, `<span style="color: #f3f4f6">`},
		{GREY, `<span style="color: #5c6370">`},
		{ORANGE, `<span style="color: #ff8700">`},
		{LIGHT_ORANGE, `<span style="color: #d19a66">`},
	}
	for _, s := range spans {
		result = strings.ReplaceAll(result, string(s.code), s.html)
	}
	return StripANSI(result)
}

// Disable turns every color into a no-op, for piped output and tests.
func Disable() { enabled = false }

func (c COLOR) code() string {
	if !enabled {
		return ""
	}
	return string(c)
}

var enabled = true
