package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/orbprop/internal/propagate"
)

// RenderTable renders rows[offset:offset+limit] as a bordered table. A
// non-positive limit renders everything after offset.
func RenderTable(rows []propagate.Row, t Theme, offset, limit int) string {
	offset = max(0, min(offset, len(rows)))
	end := len(rows)
	if limit > 0 {
		end = min(end, offset+limit)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Muted)).
		Headers(propagate.Columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return base.Bold(true).Foreground(t.Primary)
			case col == 0:
				return base.Inherit(t.id())
			default:
				return base.Inherit(t.value()).Align(lipgloss.Right)
			}
		})

	for _, r := range rows[offset:end] {
		tbl.Row(formatRow(r)...)
	}
	return tbl.Render()
}

func formatRow(r propagate.Row) []string {
	v := r.Values()
	out := make([]string, len(v))
	out[0] = strconv.Itoa(r.OrbitID)
	out[1] = strconv.FormatFloat(v[1], 'f', 6, 64)
	for i := 2; i < 5; i++ {
		out[i] = strconv.FormatFloat(v[i], 'f', 9, 64)
	}
	for i := 5; i < len(v); i++ {
		out[i] = strconv.FormatFloat(v[i], 'e', 6, 64)
	}
	return out
}

// OrbitSummary condenses one orbit's rows.
type OrbitSummary struct {
	OrbitID    int
	Rows       int
	FirstEpoch float64
	LastEpoch  float64
	MinR       float64
	MaxR       float64
	// Distances are heliocentric (or barycentric) distances in row order.
	Distances []float64
}

// Summarize groups rows by orbit id in order of first appearance.
func Summarize(rows []propagate.Row) []OrbitSummary {
	index := make(map[int]int)
	var out []OrbitSummary
	for _, r := range rows {
		d := Vec3{r.X, r.Y, r.Z}.Length()
		i, ok := index[r.OrbitID]
		if !ok {
			index[r.OrbitID] = len(out)
			out = append(out, OrbitSummary{
				OrbitID: r.OrbitID, FirstEpoch: r.EpochMJDTDB, LastEpoch: r.EpochMJDTDB,
				MinR: d, MaxR: d,
			})
			i = len(out) - 1
		}
		s := &out[i]
		s.Rows++
		s.FirstEpoch = min(s.FirstEpoch, r.EpochMJDTDB)
		s.LastEpoch = max(s.LastEpoch, r.EpochMJDTDB)
		s.MinR = min(s.MinR, d)
		s.MaxR = max(s.MaxR, d)
		s.Distances = append(s.Distances, d)
	}
	return out
}

func RenderSummary(sums []OrbitSummary, t Theme) string {
	var b strings.Builder
	b.WriteString(t.header().Render("orbits") + "\n")
	for _, s := range sums {
		b.WriteString(fmt.Sprintf("%s %s %s  %s %s  %s\n",
			t.id().Render(fmt.Sprintf("%8d", s.OrbitID)),
			t.label().Render("epochs"),
			t.value().Render(fmt.Sprintf("%4d  %.3f..%.3f", s.Rows, s.FirstEpoch, s.LastEpoch)),
			t.label().Render("r"),
			t.value().Render(fmt.Sprintf("%.4f..%.4f AU", s.MinR, s.MaxR)),
			Sparkline(s.Distances, 24),
		))
	}
	return b.String()
}

// DistancePlot charts one orbit's distance from the origin against row order.
func DistancePlot(rows []propagate.Row, orbitID, width, height int) (string, error) {
	var data []float64
	for _, r := range rows {
		if r.OrbitID == orbitID {
			data = append(data, Vec3{r.X, r.Y, r.Z}.Length())
		}
	}
	if len(data) == 0 {
		return "", fmt.Errorf("viz: no rows for orbit %d", orbitID)
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(4),
		asciigraph.Caption(fmt.Sprintf("orbit %d distance (AU)", orbitID)),
	), nil
}

// Tracks groups row positions by orbit id in order of first appearance.
func Tracks(rows []propagate.Row) [][]Vec3 {
	index := make(map[int]int)
	var out [][]Vec3
	for _, r := range rows {
		i, ok := index[r.OrbitID]
		if !ok {
			i = len(out)
			index[r.OrbitID] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], Vec3{r.X, r.Y, r.Z})
	}
	return out
}
