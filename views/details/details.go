package details

import (
	"strings"

	"txsentinel-tui/helpers"
	"txsentinel-tui/protocol"
	"txsentinel-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the warning details panel
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("y") + " copy link",
		styles.Key("s") + " send tx",
		styles.Key("x") + " cancel tx",
		styles.Key("i") + " ignore",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders a warning with a QR code of its explorer link
func Render(w protocol.Warning, explorer, copiedMsg string) string {
	h := styles.TitleStyle.Render("Warning Details")
	url := helpers.ExplorerTxURL(explorer, w.TxHash)

	label := lipgloss.NewStyle().Foreground(styles.CMuted).Width(10)
	value := lipgloss.NewStyle().Foreground(styles.CText)

	severity := w.Severity
	if severity == "" {
		severity = "unknown"
	}
	lines := []string{
		h,
		"",
		label.Render("Warning") + value.Render(w.WarningHash),
		label.Render("Tx") + value.Render(w.TxHash),
		label.Render("Severity") + styles.Severity(w.Severity).Render(severity),
	}
	if w.Description != "" {
		lines = append(lines, label.Render("Details")+value.Render(w.Description))
	}

	link := lipgloss.NewStyle().Foreground(styles.CAccent2).Underline(true).Render(helpers.Hyperlink(url, url))
	if copiedMsg != "" {
		link += "  " + lipgloss.NewStyle().Foreground(styles.CAccent).Render(copiedMsg)
	}
	lines = append(lines, "", link, "", helpers.QRCode(url))
	lines = append(lines, styles.MutedStyle.Render("Scan to open the transaction in the block explorer"))

	return strings.Join(lines, "\n")
}
