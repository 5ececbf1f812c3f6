package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dkeye/Lobby/internal/app/heartbeat"
	"github.com/dkeye/Lobby/internal/core"
)

func styledTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

// RoomsView lists joinable rooms.
func RoomsView(rooms []core.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No joinable rooms")
	}
	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		relay := ""
		if r.RelayStarted {
			relay = "started"
		}
		rows = append(rows, []string{
			string(r.ID),
			r.Name,
			strconv.Itoa(r.MemberCount),
			strconv.Itoa(r.AvailableSlots),
			relay,
		})
	}
	return styledTable([]string{"Room", "Name", "Players", "Free", "Relay"}, rows)
}

// RosterView shows the members of the current room, host first.
func RosterView(entries []heartbeat.Entry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("Room is empty")
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		name := e.Name
		if e.Host {
			name = IconHost + " " + name
		}
		ready := "no"
		if e.Ready {
			ready = "yes"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), name, ready})
	}
	return styledTable([]string{"#", "Player", "Ready"}, rows)
}
