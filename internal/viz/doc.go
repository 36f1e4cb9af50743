// Package viz renders propagation results in the terminal.
//
// Static output (tables, summaries, distance plots) is built with lipgloss
// and asciigraph. [Browser] is a Bubble Tea program for paging through
// stored runs and looking at their trajectories on a Braille [Canvas].
//
// # Key Bindings
//
//	j/k   - Move selection or scroll rows
//	enter - Open a run
//	p     - Toggle table and trajectory view
//	w/a/s/d - Rotate the trajectory view
//	+/-   - Zoom
//	t     - Cycle color themes
//	esc   - Back to the run list
//	q     - Quit
package viz
