package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/storage"
)

// RunSource is satisfied by *storage.Store.
type RunSource interface {
	List() ([]storage.RunMetadata, error)
	LoadRows(runID string) ([]propagate.Row, error)
}

const (
	modeList = iota
	modeTable
	modePlot
)

type runsMsg struct {
	runs []storage.RunMetadata
	err  error
}

type rowsMsg struct {
	runID string
	rows  []propagate.Row
	err   error
}

// Browser is a Bubble Tea model over stored runs.
type Browser struct {
	src    RunSource
	runs   []storage.RunMetadata
	cursor int
	mode   int

	runID  string
	rows   []propagate.Row
	tracks [][]Vec3
	offset int

	view   *View
	theme  Theme
	err    error
	width  int
	height int
}

func NewBrowser(src RunSource, theme Theme) Browser {
	return Browser{src: src, theme: theme, view: NewView(), width: 100, height: 30}
}

func (b Browser) Init() tea.Cmd {
	src := b.src
	return func() tea.Msg {
		runs, err := src.List()
		return runsMsg{runs: runs, err: err}
	}
}

func (b Browser) loadRows(runID string) tea.Cmd {
	src := b.src
	return func() tea.Msg {
		rows, err := src.LoadRows(runID)
		return rowsMsg{runID: runID, rows: rows, err: err}
	}
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runsMsg:
		b.runs, b.err = msg.runs, msg.err
		b.cursor = 0
	case rowsMsg:
		if msg.err != nil {
			b.err = msg.err
			return b, nil
		}
		b.runID, b.rows, b.err = msg.runID, msg.rows, nil
		b.tracks = Tracks(msg.rows)
		b.offset, b.mode = 0, modeTable
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return b.handleKey(msg)
	}
	return b, nil
}

func (b Browser) pageSize() int { return max(1, b.height-10) }

func (b Browser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return b, tea.Quit
	case "t":
		b.theme = b.theme.next()
		return b, nil
	}

	switch b.mode {
	case modeList:
		switch key {
		case "up", "k":
			b.cursor = max(0, b.cursor-1)
		case "down", "j":
			b.cursor = min(max(0, len(b.runs)-1), b.cursor+1)
		case "enter", " ":
			if len(b.runs) > 0 {
				return b, b.loadRows(b.runs[b.cursor].ID)
			}
		}
	case modeTable:
		switch key {
		case "esc", "backspace":
			b.mode = modeList
		case "up", "k":
			b.offset = max(0, b.offset-1)
		case "down", "j":
			b.offset = min(max(0, len(b.rows)-1), b.offset+1)
		case "pgdown":
			b.offset = min(max(0, len(b.rows)-1), b.offset+b.pageSize())
		case "pgup":
			b.offset = max(0, b.offset-b.pageSize())
		case "p":
			b.mode = modePlot
		}
	case modePlot:
		switch key {
		case "esc", "backspace":
			b.mode = modeList
		case "p":
			b.mode = modeTable
		case "w":
			b.view.RotateX(-math.Pi / 24)
		case "s":
			b.view.RotateX(math.Pi / 24)
		case "a":
			b.view.RotateY(-math.Pi / 24)
		case "d":
			b.view.RotateY(math.Pi / 24)
		case "+", "=":
			b.view.ZoomIn()
		case "-":
			b.view.ZoomOut()
		}
	}
	return b, nil
}

func (b Browser) View() string {
	var s strings.Builder
	s.WriteString(b.theme.header().Render("ORBPROP runs") + "\n\n")
	if b.err != nil {
		s.WriteString(errorStyle.Render("error: "+b.err.Error()) + "\n\n")
	}

	switch b.mode {
	case modeList:
		s.WriteString(b.viewList())
	case modeTable:
		s.WriteString(b.viewTable())
	case modePlot:
		s.WriteString(b.viewPlot())
	}
	return s.String()
}

func (b Browser) viewList() string {
	var s strings.Builder
	if len(b.runs) == 0 {
		s.WriteString(b.theme.label().Render("  no stored runs") + "\n")
	}
	for i, r := range b.runs {
		line := fmt.Sprintf("%-32s %-9s %-12s %5d orbits %7d rows  %s",
			r.ID, r.Backend, r.Origin, r.Orbits, r.Rows, r.Timestamp.Format("2006-01-02 15:04"))
		if i == b.cursor {
			s.WriteString(b.theme.selected().Render("▸ "+line) + "\n")
		} else {
			s.WriteString(b.theme.value().Render("  "+line) + "\n")
		}
	}
	s.WriteString("\n" + b.theme.hint().Render("j/k navigate  enter open  t theme  q quit") + "\n")
	return s.String()
}

func (b Browser) viewTable() string {
	var s strings.Builder
	s.WriteString(b.theme.label().Render(fmt.Sprintf("run %s  rows %d-%d of %d",
		b.runID, min(b.offset+1, len(b.rows)), min(b.offset+b.pageSize(), len(b.rows)), len(b.rows))) + "\n")
	s.WriteString(RenderTable(b.rows, b.theme, b.offset, b.pageSize()) + "\n")
	s.WriteString(b.theme.hint().Render("j/k scroll  pgup/pgdn page  p plot  esc back  q quit") + "\n")
	return s.String()
}

func (b Browser) viewPlot() string {
	w := max(10, b.width-4)
	h := max(5, b.height-8)
	c := NewCanvas(w, h)
	c.PlotTracks(b.tracks, b.view)

	var s strings.Builder
	s.WriteString(b.theme.label().Render(fmt.Sprintf("run %s  %d orbits  zoom %.2f", b.runID, len(b.tracks), b.view.Zoom)) + "\n")
	s.WriteString(Panel.BorderForeground(b.theme.Muted).Render(strings.TrimRight(c.String(), "\n")) + "\n")
	s.WriteString(b.theme.hint().Render("w/a/s/d rotate  +/- zoom  p table  esc back  q quit") + "\n")
	return s.String()
}

// RunBrowser starts the browser on the alternate screen and blocks until it exits.
func RunBrowser(src RunSource, theme Theme) error {
	_, err := tea.NewProgram(NewBrowser(src, theme), tea.WithAltScreen()).Run()
	return err
}
