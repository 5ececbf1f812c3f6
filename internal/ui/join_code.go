package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/skip2/go-qrcode"
)

// JoinCodeView is the box the host shows once the relay is up. The QR code
// is omitted when it cannot be generated.
func JoinCodeView(roomID, code string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Relay ready\n\n%s Room:      %s\n%s Join code: %s",
		IconSuccess,
		IconRoom, MutedStyle.Render(roomID),
		IconLink, BoldStyle.Foreground(Primary).Render(code),
	)
	if qr, err := QR(code); err == nil {
		b.WriteString("\n\n")
		b.WriteString(qr)
	}
	return box.Render(b.String())
}

// QR renders text as a terminal QR code using half-block characters.
func QR(text string) (string, error) {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(q.ToSmallString(false), "\n"), nil
}
