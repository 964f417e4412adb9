package stats

import (
	"strings"
	"testing"
)

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected minimum width for zero, got %d", got)
	}
	if got := PlotWidthFor(80); got != 80-6 {
		t.Fatalf("expected axis space subtracted, got %d", got)
	}
	if got := PlotWidthFor(12); got != minPlotWidth {
		t.Fatalf("expected the floor applied, got %d", got)
	}
}

func TestPlotSeriesOutputShape(t *testing.T) {
	var b strings.Builder
	series := []Series{
		{Name: "Accuracy", Values: []float64{0, 50, 100, 50, 0}},
		{Name: "Streak", Values: []float64{0, 1, 2, 0, 1}},
	}
	if err := PlotSeries(&b, "Learning Curves", series, 20, 5); err != nil {
		t.Fatalf("plot: %v", err)
	}
	out := b.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// Title, scale note, two range lines, five plot rows, legend.
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "Learning Curves" {
		t.Fatalf("unexpected title line: %q", lines[0])
	}
	if !strings.Contains(lines[2], "Accuracy: min=0.00 max=100.00") {
		t.Fatalf("unexpected range line: %q", lines[2])
	}
	if !strings.HasPrefix(lines[4], "max │ ") {
		t.Fatalf("expected the top axis label: %q", lines[4])
	}
	if !strings.HasPrefix(lines[8], "min │ ") {
		t.Fatalf("expected the bottom axis label: %q", lines[8])
	}
	if !strings.HasPrefix(lines[9], "Legend: ") {
		t.Fatalf("expected a legend line: %q", lines[9])
	}
}

func TestPlotSeriesSkipsEmptySeries(t *testing.T) {
	var b strings.Builder
	if err := PlotSeries(&b, "t", []Series{{Name: "empty"}}, 20, 5); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", b.String())
	}
}

func TestResample(t *testing.T) {
	got := resample([]float64{1, 2, 3, 4}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %v", got)
	}
	got = resample([]float64{1, 2}, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 values, got %v", got)
	}
	if got[0] != 1 || got[3] != 2 {
		t.Fatalf("expected endpoints preserved, got %v", got)
	}
}
