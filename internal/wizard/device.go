package wizard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/muffle/internal/core"
)

// DeviceModel is the bubbletea model for the device picker.
type DeviceModel struct {
	devices  []core.Device
	cursor   int
	selected *core.Device
	width    int
	height   int
}

var (
	deviceTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))

	deviceItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	deviceSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Background(lipgloss.Color("237"))

	deviceActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	deviceInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	deviceTypeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// NewDeviceModel creates a picker over devices. The cursor starts on the
// active device when there is one.
func NewDeviceModel(devices []core.Device) DeviceModel {
	m := DeviceModel{
		devices: devices,
		width:   80,
		height:  20,
	}
	for i, d := range devices {
		if d.IsActive {
			m.cursor = i
			break
		}
	}
	return m
}

// Init initializes the model.
func (m DeviceModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m DeviceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit

		case "enter", " ":
			if len(m.devices) > 0 && m.cursor < len(m.devices) {
				m.selected = &m.devices[m.cursor]
				return m, tea.Quit
			}

		case "up", "k", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j", "ctrl+n":
			if m.cursor < len(m.devices)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = max(len(m.devices)-1, 0)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// View renders the model.
func (m DeviceModel) View() string {
	var b strings.Builder

	b.WriteString(deviceTitleStyle.Render("Select Device"))
	b.WriteString("\n\n")

	if len(m.devices) == 0 {
		b.WriteString(deviceInactiveStyle.Render("No devices found"))
		b.WriteString("\n\n")
		b.WriteString(deviceTypeStyle.Render("Open Spotify on a device, or enable the local engine."))
	}
	for i, device := range m.devices {
		line := DeviceLine(device)
		if i == m.cursor {
			b.WriteString(deviceSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(deviceItemStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(deviceTypeStyle.Render("↑/↓ navigate • enter select • esc quit"))
	b.WriteString("\n")
	b.WriteString(deviceTypeStyle.Render("● active  ○ inactive"))

	return b.String()
}

// DeviceLine renders one device as a styled picker row.
func DeviceLine(d core.Device) string {
	var line strings.Builder
	if d.IsActive {
		line.WriteString(deviceActiveStyle.Render("● "))
	} else {
		line.WriteString(deviceInactiveStyle.Render("○ "))
	}
	line.WriteString(d.Name)

	info := string(d.Type)
	if d.Local {
		info += ", this computer"
	}
	if d.Volume != nil {
		info += fmt.Sprintf(", %d%%", *d.Volume)
	}
	line.WriteString(" " + deviceTypeStyle.Render("("+info+")"))
	return line.String()
}

// Selected returns the selected device, or nil if none.
func (m DeviceModel) Selected() *core.Device {
	return m.selected
}

// RunDevicePicker runs the device picker and returns the selected device.
func RunDevicePicker(devices []core.Device) (*core.Device, error) {
	p := tea.NewProgram(NewDeviceModel(devices), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(DeviceModel).Selected(), nil
}
