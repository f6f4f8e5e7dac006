// Command rokoko-panel is a terminal dashboard for the controller bridge. It
// runs the same pipeline as rokoko-bridge but renders status and activity in
// place instead of streaming log lines.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/sweeney/rokoko-bridge/internal/bridge"
	"github.com/sweeney/rokoko-bridge/internal/config"
	"github.com/sweeney/rokoko-bridge/internal/logging"
	"github.com/sweeney/rokoko-bridge/internal/pad"
	"github.com/sweeney/rokoko-bridge/internal/probe"
	"github.com/sweeney/rokoko-bridge/internal/rokoko"
	"github.com/sweeney/rokoko-bridge/internal/status"
)

const (
	// maxLogLines matches the web panel scrollback.
	maxLogLines = 500
	// updateBuffer absorbs bursts between TUI frames.
	updateBuffer = 256
)

// Tokyo Night palette.
const (
	colorText   = "#c0caf5"
	colorDim    = "#565f89"
	colorGreen  = "#9ece6a"
	colorRed    = "#f7768e"
	colorYellow = "#e0af68"
	colorBlue   = "#7aa2f7"
	colorBorder = "#414868"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
	frame lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue)).Bold(true),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		value: lipgloss.NewStyle().Foreground(lipgloss.Color(colorText)),
		good:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		bad:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)).Bold(true),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		frame: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)),
	}
}

func main() {
	cfg, err := config.Load("rokoko-panel", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rokoko-panel: %v\n", err)
		os.Exit(2)
	}

	// The terminal belongs to the TUI, so diagnostics are dropped unless a
	// log file is given.
	log := zerolog.Nop()
	if cfg.LogFile != "" {
		log, err = logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
		if err != nil {
			fmt.Fprintf(os.Stderr, "rokoko-panel: %v\n", err)
			os.Exit(2)
		}
	}

	if err := run(cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "rokoko-panel: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	mapping, err := cfg.Mapping()
	if err != nil {
		return err
	}

	reader := pad.NewReader()
	defer reader.Close()

	tracker := status.NewTracker(time.Now(), cfg.Settings())
	caller := rokoko.NewClient(cfg.StudioHost, cfg.StudioPort, cfg.APIKey)
	engine := bridge.NewEngine(caller, mapping, cfg.Debounce, time.Now)

	sink := tuiSink{ch: make(chan bridge.Update, updateBuffer)}

	drained := make(chan struct{})
	go func() {
		bridge.Drain(engine.Updates(), tracker, sink)
		close(sink.ch)
		close(drained)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := probe.NewMonitor(probe.NewTCPProber(cfg.Addr()), cfg.ProbeInterval, func(up bool) {
		engine.PostConnectivity(up, cfg.Addr())
	})
	monitorDone := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(monitorDone)
	}()

	// The panel keeps searching for a controller instead of failing, so the
	// polling loop starts with no attach check.
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, ev := range reader.Poll() {
					engine.HandleEvent(ev)
				}
			}
		}
	}()

	log.Info().Str("studio", cfg.Addr()).Msg("panel started")

	p := tea.NewProgram(newModel(tracker, sink.ch), tea.WithAltScreen())
	_, runErr := p.Run()

	// Event sources first, then the engine, then wait for the drain to
	// deliver what is left.
	cancel()
	<-pollDone
	<-monitorDone
	engine.Close()
	<-drained

	if runErr != nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	log.Info().Msg("panel closed")
	return nil
}

// tuiSink forwards updates into the TUI message loop. When the TUI falls
// behind, new updates are dropped rather than stalling the drain.
type tuiSink struct {
	ch chan bridge.Update
}

func (s tuiSink) Log(u bridge.Update)    { s.push(u) }
func (s tuiSink) Status(u bridge.Update) { s.push(u) }

func (s tuiSink) push(u bridge.Update) {
	select {
	case s.ch <- u:
	default:
	}
}

type updateMsg bridge.Update

type updatesClosedMsg struct{}

type clockTickMsg time.Time

func waitForUpdate(updates <-chan bridge.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}

type model struct {
	tracker *status.Tracker
	updates <-chan bridge.Update

	logs     []string
	viewport viewport.Model
	ready    bool
	styles   styles
}

func newModel(tracker *status.Tracker, updates <-chan bridge.Update) *model {
	return &model{
		tracker: tracker,
		updates: updates,
		styles:  newStyles(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), clockTick())
}

// chromeRows is everything the layout draws besides the log viewport: frame,
// title, status block, mapping, counters and footer.
const chromeRows = 19

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		width := msg.Width - 8
		height := msg.Height - chromeRows
		if width < 20 {
			width = 20
		}
		if height < 3 {
			height = 3
		}
		if !m.ready {
			m.viewport = viewport.New(width, height)
			m.ready = true
		} else {
			m.viewport.Width = width
			m.viewport.Height = height
		}
		m.viewport.SetContent(strings.Join(m.logs, "\n"))
		m.viewport.GotoBottom()

	case updateMsg:
		m.apply(bridge.Update(msg))
		return m, waitForUpdate(m.updates)

	case updatesClosedMsg:
		return m, tea.Quit

	case clockTickMsg:
		return m, clockTick()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) apply(u bridge.Update) {
	// Status changes land in the tracker through the drain; the view reads
	// them from the next snapshot. Only log lines are kept here.
	if u.Kind != bridge.UpdateLog {
		return
	}

	var text string
	switch u.Severity {
	case bridge.SeveritySuccess:
		text = m.styles.good.Render(u.Text)
	case bridge.SeverityError:
		text = m.styles.bad.Render(u.Text)
	default:
		text = m.styles.value.Render(u.Text)
	}

	line := m.styles.dim.Render(u.Time.Format("15:04:05")) + " " + text
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	if m.ready {
		m.viewport.SetContent(strings.Join(m.logs, "\n"))
		m.viewport.GotoBottom()
	}
}

func (m *model) View() string {
	if !m.ready {
		return "starting…"
	}

	snap := m.tracker.Snapshot()
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Rokoko Controller Bridge") + "\n\n")

	b.WriteString(m.controllerLine(snap) + "\n")
	b.WriteString(m.studioLine(snap) + "\n")
	b.WriteString(m.recordingLine(snap) + "\n\n")

	b.WriteString(m.styles.value.Render(mappingLine(snap.Settings.Mapping)) + "\n\n")

	b.WriteString(m.countsRow("Calibrate", snap.Counts.Calibrate) + "\n")
	b.WriteString(m.countsRow("Start", snap.Counts.Start) + "\n")
	b.WriteString(m.countsRow("Stop", snap.Counts.Stop) + "\n\n")

	b.WriteString(m.styles.label.Render("Activity") + "\n")
	b.WriteString(m.viewport.View() + "\n")

	b.WriteString(m.styles.dim.Render(fmt.Sprintf("uptime %s · studio %s · q to quit",
		snap.Uptime().Truncate(time.Second), snap.Settings.StudioAddr)))

	return m.styles.frame.Render(b.String())
}

func (m *model) controllerLine(snap status.Snapshot) string {
	if snap.Controller {
		return m.statusLine(m.styles.good.Render("●"), "Controller",
			m.styles.good.Render("Connected: "+snap.ControllerName))
	}
	return m.statusLine(m.styles.warn.Render("●"), "Controller",
		m.styles.warn.Render("Searching…"))
}

func (m *model) studioLine(snap status.Snapshot) string {
	switch {
	case !snap.Checked:
		return m.statusLine(m.styles.warn.Render("●"), "Studio",
			m.styles.warn.Render("Checking…"))
	case snap.Reachable:
		return m.statusLine(m.styles.good.Render("●"), "Studio",
			m.styles.good.Render("Reachable at "+snap.Settings.StudioAddr))
	default:
		return m.statusLine(m.styles.bad.Render("●"), "Studio",
			m.styles.bad.Render("Not reachable at "+snap.Settings.StudioAddr))
	}
}

func (m *model) recordingLine(snap status.Snapshot) string {
	if snap.Recording {
		return m.statusLine(m.styles.bad.Render("●"), "Recording",
			m.styles.bad.Render("Recording"))
	}
	return m.statusLine(m.styles.dim.Render("●"), "Recording",
		m.styles.dim.Render("Idle"))
}

func (m *model) statusLine(dot, label, text string) string {
	return fmt.Sprintf("%s %s %s", dot, m.styles.label.Render(fmt.Sprintf("%-10s", label)), text)
}

func (m *model) countsRow(name string, c status.ActionCounts) string {
	return m.styles.label.Render(fmt.Sprintf("%-10s", name)) + "  " +
		m.styles.value.Render(fmt.Sprintf("%d sent · %d ok · %d rejected · %d unreachable",
			c.Dispatched, c.Succeeded, c.Rejected, c.Unreachable))
}

func mappingLine(entries []status.MappingEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s → %s", pad.ButtonName(e.Button), actionLabel(e.Action)))
	}
	return strings.Join(parts, "   ")
}

func actionLabel(a rokoko.Action) string {
	switch a {
	case rokoko.ActionCalibrate:
		return "Calibrate"
	case rokoko.ActionStartRecording:
		return "Start recording"
	case rokoko.ActionStopRecording:
		return "Stop recording"
	}
	return string(a)
}
