package native

import (
	"io"
	"strings"
)

// PrintStream backs a java.io.PrintStream. Output goes to Writer as it is
// printed and is also kept line by line for inspection.
type PrintStream struct {
	Writer io.Writer

	lines   []string
	partial strings.Builder
}

// Print writes s without a line terminator.
func (ps *PrintStream) Print(s string) {
	ps.write(s)
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			ps.partial.WriteString(s)
			return
		}
		ps.partial.WriteString(s[:i])
		ps.lines = append(ps.lines, ps.partial.String())
		ps.partial.Reset()
		s = s[i+1:]
	}
}

// Println writes s followed by a newline.
func (ps *PrintStream) Println(s string) {
	ps.Print(s + "\n")
}

// Write writes raw bytes, as OutputStream.write does.
func (ps *PrintStream) Write(p []byte) (int, error) {
	ps.Print(string(p))
	return len(p), nil
}

// Lines returns the completed lines, followed by any unterminated tail.
func (ps *PrintStream) Lines() []string {
	out := append([]string{}, ps.lines...)
	if ps.partial.Len() > 0 {
		out = append(out, ps.partial.String())
	}
	return out
}

func (ps *PrintStream) write(s string) {
	if ps.Writer != nil {
		io.WriteString(ps.Writer, s)
	}
}
