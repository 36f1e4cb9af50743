// Package export writes propagated trajectories as SVG.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/viz"
)

// SVGOptions controls TracksToSVG. Zero values pick defaults.
type SVGOptions struct {
	Size  int
	View  *viz.View
	Theme viz.Theme
}

// palette cycles per orbit after the theme's own colors.
var palette = []string{"#00ff88", "#ffcc00", "#ff6b6b", "#66ccff", "#cc88ff", "#ff9f43"}

// TracksToSVG draws each orbit of rows as a polyline in the view's rotated
// frame with equal axis scaling. The origin is drawn as a filled circle.
func TracksToSVG(w io.Writer, rows []propagate.Row, opts SVGOptions) error {
	if len(rows) == 0 {
		return fmt.Errorf("export: no rows")
	}
	size := opts.Size
	if size <= 0 {
		size = 800
	}
	view := opts.View
	if view == nil {
		view = viz.NewView()
	}
	theme := opts.Theme
	if theme.Name == "" {
		theme = viz.Themes[0]
	}

	tracks := viz.Tracks(rows)
	extent := 0.0
	for _, tr := range tracks {
		for _, p := range tr {
			extent = math.Max(extent, p.Length())
		}
	}
	if extent == 0 {
		extent = 1
	}
	// 10% margin on each side
	scale := float64(size) * 0.4 / extent
	center := float64(size) / 2
	project := func(p viz.Vec3) (float64, float64) {
		r := view.Rotate(p)
		return center + r.X*scale, center - r.Y*scale
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>
`, size, size, size, size, center, center, string(theme.Primary))

	colors := append([]string{string(theme.Secondary), string(theme.Accent)}, palette...)
	for i, tr := range tracks {
		if len(tr) == 0 {
			continue
		}
		fmt.Fprintf(bw, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, colors[i%len(colors)])
		for j, p := range tr {
			x, y := project(p)
			if j == 0 {
				fmt.Fprintf(bw, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
			}
		}
		bw.WriteString("\"/>\n")
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}
