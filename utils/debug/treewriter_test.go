package debug

import (
	"testing"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "test", nil, "test\n"},
		{"depth 1", 1, "indented", nil, "  indented\n"},
		{"depth 3", 3, "deep", nil, "      deep\n"},
		{"with args", 1, "node[%d] %s", []any{3, "div"}, "  node[3] div\n"},
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

func TestTreeWriter_Fields(t *testing.T) {
	tw := NewTreeWriter()
	tw.Fields(1, map[string]string{
		"--space-10": "40px",
		"--space-2":  "8px",
		"color":      "#ff0000",
	})
	want := "  --space-2:  8px\n" +
		"  --space-10: 40px\n" +
		"  color:      #ff0000\n"
	if got := tw.String(); got != want {
		t.Errorf("Fields() =\n%s\nwant\n%s", got, want)
	}
}

func TestTreeWriter_Empty(t *testing.T) {
	tw := NewTreeWriter()
	tw.Fields(0, nil)
	if tw.String() != "" {
		t.Errorf("expected empty output, got %q", tw.String())
	}
}
