package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-surface/bank"
	"go-surface/debug"
	"go-surface/display"
	"go-surface/midi"
	"go-surface/theme"
	"go-surface/widgets"
)

const refreshRate = 50 * time.Millisecond

type Model struct {
	Page      *bank.Page
	DeviceMgr *midi.DeviceManager // nil without hardware
	Preview   *widgets.Preview
	Cache     *display.Cache // the cache feeding Preview
	Theme     *theme.Theme
	SaveDir   string // bank saves, "" disables saving

	selected int
	status   string
	showHelp bool
	devices  map[string]midi.Controller
	quitting bool
}

type refreshMsg time.Time

type DeviceEventMsg midi.DeviceEvent

func NewModel(page *bank.Page, deviceMgr *midi.DeviceManager, preview *widgets.Preview, cache *display.Cache, th *theme.Theme) Model {
	return Model{
		Page:      page,
		DeviceMgr: deviceMgr,
		Preview:   preview,
		Cache:     cache,
		Theme:     th,
		devices:   make(map[string]midi.Controller),
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Init() tea.Cmd {
	if m.DeviceMgr == nil {
		return refresh()
	}
	return tea.Batch(refresh(), ListenForDevices(m.DeviceMgr))
}

// caches is every display the page drives
func (m Model) caches() []*display.Cache {
	return m.Page.Caches()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		tracks := m.Page.Bank().Len()
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "h", "left":
			if m.selected > 0 {
				m.selected--
			}

		case "l", "right":
			if m.selected < tracks-1 {
				m.selected++
			}

		case "k", "up":
			m.Page.HandleEncoder(m.selected, 1)

		case "j", "down":
			m.Page.HandleEncoder(m.selected, -1)

		case "K", "shift+up":
			m.Page.HandleEncoder(m.selected, 10)

		case "J", "shift+down":
			m.Page.HandleEncoder(m.selected, -10)

		case " ":
			m.Page.ToggleMute(m.selected)

		case "m":
			m.Page.NextMode()

		case "n":
			if t, ok := m.Page.Bank().Track(m.selected); ok {
				for _, c := range m.caches() {
					c.Notify(t.Name)
				}
			}

		case "x":
			for _, c := range m.caches() {
				c.CancelNotification()
			}

		case "r":
			for _, c := range m.caches() {
				c.Reset()
			}

		case "f":
			for _, c := range m.caches() {
				c.ForceFlush()
			}

		case "s":
			m.status = m.save()

		case "?":
			m.showHelp = !m.showHelp
		}

	case refreshMsg:
		return m, refresh()

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.devices[event.ID] = event.Controller
			m.Page.Attach(event.Controller.Display())
			go route(m.Page, event.Controller)
		case midi.DeviceDisconnected:
			if ctrl, ok := m.devices[event.ID]; ok {
				m.Page.Detach(ctrl.Display())
				delete(m.devices, event.ID)
			}
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) save() string {
	if m.SaveDir == "" {
		return "saving disabled"
	}
	name, err := bank.Save(m.SaveDir, m.Page.Bank(), "")
	if err != nil {
		debug.Log("save", "%v", err)
		return "save failed: " + err.Error()
	}
	for _, c := range m.caches() {
		c.Notify("Saved")
	}
	return "saved " + name
}

// route feeds controller input into the page until the controller closes
func route(page *bank.Page, ctrl midi.Controller) {
	cache := ctrl.Display()
	go func() {
		for pad := range ctrl.PadEvents() {
			page.ToggleMute(bank.TrackAt(cache, pad.Row, pad.Col))
		}
	}()
	for enc := range ctrl.EncoderEvents() {
		track := bank.TrackAt(cache, enc.Row, enc.Col)
		if enc.Absolute {
			page.SetValue(track, enc.Value)
		} else {
			page.HandleEncoder(track, enc.Delta)
		}
	}
}

func (m Model) deviceLines() []string {
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.devices[ids[i]].Name() < m.devices[ids[j]].Name() })

	var lines []string
	for _, id := range ids {
		lines = append(lines, statsLine(m.devices[id].Name(), string(m.devices[id].Type()), m.devices[id].Display()))
	}
	return lines
}

func statsLine(name, kind string, c *display.Cache) string {
	s := c.Stats()
	line := fmt.Sprintf("%-14s %-9s flushes:%-5d writes:%-6d failed:%-3d debounced:%d",
		name, kind, s.Flushes, s.Writes, s.Failures, s.Debounced)
	if msg, ok := c.Notification(); ok {
		line += fmt.Sprintf("  [%s]", msg)
	}
	return line
}

var keyHelp = []widgets.KeySection{
	{Title: "Tracks", Keys: []widgets.KeyBinding{
		{Key: "←/→ h/l", Desc: "select track"},
		{Key: "↑/↓ k/j", Desc: "turn (shift: x10)"},
		{Key: "space", Desc: "mute"},
		{Key: "m", Desc: "next mode"},
	}},
	{Title: "Displays", Keys: []widgets.KeyBinding{
		{Key: "n", Desc: "notify track name"},
		{Key: "x", Desc: "cancel notification"},
		{Key: "r", Desc: "reset (resend after settle)"},
		{Key: "f", Desc: "force flush"},
	}},
	{Title: "Bank", Keys: []widgets.KeyBinding{
		{Key: "s", Desc: "save"},
		{Key: "q", Desc: "quit"},
	}},
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	header := headerStyle.Render(fmt.Sprintf("go-surface  %s  %s  track:%d",
		m.Page.Bank().Name(), m.Page.Mode(), m.selected+1))
	if t, ok := m.Page.Bank().Track(m.selected); ok {
		header += " " + widgets.RenderSwatch(m.Theme.Tag(t.Color)) + " " + t.Name
	}

	preview := widgets.RenderPreview(m.Preview.Snapshot(), m.Theme, m.selected)

	var devices []string
	devices = append(devices, statsLine("preview", "terminal", m.Cache))
	devices = append(devices, m.deviceLines()...)
	if len(m.devices) == 0 {
		devices = append(devices, warnStyle.Render("no controllers connected"))
	}
	if m.status != "" {
		devices = append(devices, m.status)
	}

	// Help line
	help := dimStyle.Render("←/→:select  ↑/↓:turn  space:mute  m:mode  n:notify  s:save  ?:help  q:quit")
	if m.showHelp {
		help = dimStyle.Render(widgets.RenderKeyHelp(keyHelp))
	}

	// Build output
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(preview)
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(strings.Join(devices, "\n")))
	out.WriteString("\n\n")
	out.WriteString(help)

	return out.String()
}
