package console

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RefreshInterval is how often the console polls the device.
const RefreshInterval = 100 * time.Millisecond

// MaxTransitions is the number of transitions shown.
const MaxTransitions = 6

// Command is an operator action sent to the device loop.
type Command int

const (
	// ClientJoin adds a client to the access point.
	ClientJoin Command = iota
	// ClientLeave removes a client from the access point.
	ClientLeave
	// ToggleNetwork takes the upstream network down or brings it back.
	ToggleNetwork
	// ToggleBlink switches between a custom pattern and the state default.
	ToggleBlink
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case ClientJoin:
		return "client-join"
	case ClientLeave:
		return "client-leave"
	case ToggleNetwork:
		return "toggle-network"
	case ToggleBlink:
		return "toggle-blink"
	default:
		return "unknown"
	}
}

// Transition is one recorded state change.
type Transition struct {
	From string
	To   string
	At   time.Time
}

// Snapshot is the device status shown by the console.
type Snapshot struct {
	ThingName   string
	State       string
	LED         bool
	BlinkOn     time.Duration
	BlinkOff    time.Duration
	AccessPoint bool
	APName      string
	Clients     int
	Link        string
	SSID        string
	NetworkUp   bool
	PortalURL   string
	Transitions []Transition
	Err         string
}

// Device is the simulator side of the console.
type Device interface {
	Snapshot() Snapshot
	Send(cmd Command)
}

type refreshMsg time.Time

// keyMap defines the console key bindings
type keyMap struct {
	Join    key.Binding
	Leave   key.Binding
	Network key.Binding
	Blink   key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Join, k.Leave, k.Network, k.Blink, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Join, k.Leave, k.Network, k.Blink, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Join: key.NewBinding(
			key.WithKeys("j", "+"),
			key.WithHelp("j/+", "client joins"),
		),
		Leave: key.NewBinding(
			key.WithKeys("l", "-"),
			key.WithHelp("l/-", "client leaves"),
		),
		Network: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "toggle network"),
		),
		Blink: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "custom blink"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the simulator console.
type Model struct {
	device   Device
	snap     Snapshot
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	width    int
	quitting bool
}

// NewModel creates a console for device.
func NewModel(device Device) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		device:  device,
		snap:    device.Snapshot(),
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
		width:   GetTerminalWidth(),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Init starts polling
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

// Update handles key presses and polling
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		return m, nil

	case refreshMsg:
		m.snap = m.device.Snapshot()
		return m, refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Join):
			m.device.Send(ClientJoin)
		case key.Matches(msg, m.keys.Leave):
			m.device.Send(ClientLeave)
		case key.Matches(msg, m.keys.Network):
			m.device.Send(ToggleNetwork)
		case key.Matches(msg, m.keys.Blink):
			m.device.Send(ToggleBlink)
		}
		return m, nil
	}
	return m, nil
}

// View renders the console
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap

	led := LEDOffStyle.Render(LEDOffMarker)
	if s.LED {
		led = LEDOnStyle.Render(LEDOnMarker)
	}

	title := TitleStyle.Render(s.ThingName)
	if s.State != "Online" {
		title += " " + m.spinner.View()
	}

	ap := "off"
	if s.AccessPoint {
		ap = fmt.Sprintf("%s, %d client(s)", s.APName, s.Clients)
	}
	network := "up"
	if !s.NetworkUp {
		network = "down"
	}
	link := s.Link
	if s.SSID != "" {
		link += " (" + s.SSID + ")"
	}

	status := lipgloss.JoinVertical(lipgloss.Left,
		row("State", StateStyle(s.State).Render(s.State)),
		row("LED", led+" "+ValueStyle.Render(formatPattern(s.BlinkOn, s.BlinkOff))),
		row("Access point", ValueStyle.Render(ap)),
		row("Station", ValueStyle.Render(link)),
		row("Network", ValueStyle.Render(network)),
		row("Portal", ValueStyle.Render(s.PortalURL)),
	)

	parts := []string{title, status, SectionTitleStyle.Render("Transitions")}
	if len(s.Transitions) == 0 {
		parts = append(parts, LEDOffStyle.Render("none yet"))
	}
	first := 0
	if len(s.Transitions) > MaxTransitions {
		first = len(s.Transitions) - MaxTransitions
	}
	for _, t := range s.Transitions[first:] {
		parts = append(parts, ValueStyle.Render(fmt.Sprintf("%s  %s → %s",
			t.At.Format("15:04:05.000"), t.From, t.To)))
	}
	if s.Err != "" {
		parts = append(parts, "", ErrorMessageStyle.Render(s.Err))
	}

	body := BoxStyle(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keys))
}

func row(k, v string) string {
	return KeyStyle.Render(k) + v
}

// formatPattern renders an on/off pattern like "300ms on / 2.7s off".
func formatPattern(on, off time.Duration) string {
	switch {
	case on == 0:
		return "steady off"
	case off == 0:
		return "steady on"
	}
	period := on + off
	return fmt.Sprintf("%v on / %v off (%d%%)", on, off, int(on*100/period))
}
