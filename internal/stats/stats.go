// Package stats contains quiz statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tutor/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy computes the correct-answer ratio for a correct/wrong pair.
func Accuracy(correct, wrong int) float64 {
	total := correct + wrong
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// AttemptSeries converts attempts into plottable series: per-attempt accuracy
// (100 for correct, 0 for wrong) and the streak after each attempt.
func AttemptSeries(attempts []model.AttemptRecord) (accuracy, streak []float64) {
	accuracy = make([]float64, len(attempts))
	streak = make([]float64, len(attempts))
	for i, a := range attempts {
		if a.Correct {
			accuracy[i] = 100
		}
		streak[i] = float64(a.StreakAfter)
	}
	return accuracy, streak
}

// BestStreak returns the highest streak value reached across attempts.
func BestStreak(attempts []model.AttemptRecord) int {
	best := 0
	for _, a := range attempts {
		if a.StreakAfter > best {
			best = a.StreakAfter
		}
	}
	return best
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints overall attempt statistics. The trend sparkline is
// smoothed over the same window as the learning curves.
func RenderSummary(w io.Writer, report Report, window int) error {
	if len(report.Attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	correct, wrong := 0, 0
	for _, a := range report.Attempts {
		if a.Correct {
			correct++
		} else {
			wrong++
		}
	}
	accSeries, _ := AttemptSeries(report.Attempts)
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Attempts: %d\n", len(report.Attempts)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Accuracy: %.1f%%\n", Accuracy(correct, wrong)*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best Streak: %d\n", BestStreak(report.Attempts)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Trend: %s\n", Sparkline(MovingAverage(accSeries, window))); err != nil {
		return err
	}
	if next := RecommendedNext(report.BySubject); next != "" {
		if _, err := fmt.Fprintf(w, "Recommended next: %s\n", next); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderBreakdown prints per-key accuracy tables (subject and difficulty).
func RenderBreakdown(w io.Writer, title string, aggs []model.AttemptAggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{"Key", "Accuracy", "Correct", "Wrong"}
	rows := make([][]string, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, []string{
			agg.Key,
			fmt.Sprintf("%.1f%%", Accuracy(agg.Correct, agg.Wrong)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Wrong),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints learning curves for accuracy and streak.
func RenderCurves(w io.Writer, attempts []model.AttemptRecord, window int) error {
	return RenderCurvesWithSize(w, attempts, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, attempts []model.AttemptRecord, window, totalWidth, height int, useColor bool) error {
	if len(attempts) == 0 {
		return nil
	}
	accSeries, streakSeries := AttemptSeries(attempts)
	accSeries = MovingAverage(accSeries, window)
	streakSeries = MovingAverage(streakSeries, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: accSeries},
		{Name: "Streak", Values: streakSeries},
	}, width, height, useColor)
}
