package debug

import "testing"

func TestTreeWriter_Empty(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" {
		t.Errorf("String() = %q, want empty", tw.String())
	}
}

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{name: "no depth", depth: 0, format: "sheet", want: "sheet\n"},
		{name: "depth 1", depth: 1, format: "page", want: "  page\n"},
		{name: "depth 2 formatted", depth: 2, format: "page %d: %d rules", args: []any{1, 3}, want: "    page 1: 3 rules\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tests := []struct {
		name  string
		label string
		value string
		want  string
	}{
		{name: "rule", label: "#0", value: "a { color: red }", want: "    #0: \"a { color: red }\"\n"},
		{name: "quotes escaped", label: "#1", value: `@import "x.css";`, want: "    #1: \"@import \\\"x.css\\\";\"\n"},
		{name: "blank", label: "#2", value: "", want: "    #2: <blank>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(2, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}
