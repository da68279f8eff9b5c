// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/Kitkacy/PunchyAudio/internal/audio"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

var pickerKeys = pickerKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// DeviceListModel lists host devices and lets the user pick a stereo input.
type DeviceListModel struct {
	fetch func() ([]audio.Device, error)

	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	notice        string

	chosen   audio.Device
	selected bool
}

// NewDeviceListModel creates a picker over the PortAudio host devices.
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{fetch: audio.HostDevices}
}

// Init fetches the device list.
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Update handles input and updates the model.
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderDevices())

	case devicesMsg:
		m.devices = msg.devices
		m.viewport.SetContent(m.renderDevices())

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, pickerKeys.Quit):
			return m, tea.Quit

		case key.Matches(msg, pickerKeys.Up):
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.notice = ""
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, pickerKeys.Down):
			if m.selectedIndex < len(m.devices)-1 {
				m.selectedIndex++
				m.notice = ""
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, pickerKeys.Select):
			if len(m.devices) == 0 {
				break
			}
			device := m.devices[m.selectedIndex]
			if !device.Stereo() {
				m.notice = fmt.Sprintf("%s has %d input channels, stereo input is required", device.Name, device.MaxInputChannels)
				break
			}
			m.chosen = device
			m.selected = true
			return m, tea.Quit
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// Selected returns the chosen device and whether one was chosen.
func (m DeviceListModel) Selected() (audio.Device, bool) {
	return m.chosen, m.selected
}

// View renders the UI.
func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Input Devices")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	if m.notice != "" {
		help = highlightStyle.Render(m.notice) + "\n" + help
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list.
func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := " "
		if device.Stereo() {
			marker = "*"
		}

		deviceInfo := fmt.Sprintf("%s [%d] %s (%s)\n", marker, device.ID, device.Name, device.Kind())
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// PickDevice runs the picker and returns the chosen device. ok is false if
// the user quit without choosing. PortAudio must be initialized.
func PickDevice() (device audio.Device, ok bool, err error) {
	p := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return audio.Device{}, false, err
	}
	device, ok = final.(DeviceListModel).Selected()
	return device, ok, nil
}
