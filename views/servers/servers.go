package servers

import (
	"strings"

	"txsentinel-tui/config"
	"txsentinel-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the servers view
func Nav(width int, mode string) string {
	var left string
	if mode == "add" || mode == "edit" {
		left = strings.Join([]string{
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("e") + " edit",
			styles.Key("d") + " delete",
			styles.Key("h") + " home",
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the TxSentinel endpoint list. chain describes the chain RPC
// check and may be empty.
func Render(servers []config.Endpoint, selectedIdx int, chain string) string {
	h := styles.TitleStyle.Render("TxSentinel Servers")
	lines := []string{h, ""}

	if len(servers) == 0 {
		lines = append(lines, styles.MutedStyle.Render("No TxSentinel servers configured."))
		lines = append(lines, "")
		lines = append(lines, styles.MutedStyle.Render("Press ")+styles.Key("a")+styles.MutedStyle.Render(" to add one."))
	} else {
		lines = append(lines, styles.MutedStyle.Render("Websocket endpoints:"))
		lines = append(lines, "")

		for i, s := range servers {
			marker := styles.MutedStyle.Render("○ ")
			if s.Active {
				marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
			}

			nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
			urlStyle := styles.MutedStyle
			if i == selectedIdx {
				nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
				urlStyle = urlStyle.Background(styles.CPanel)
				marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
			}

			lines = append(lines, marker+nameStyle.Render(s.Name))
			lines = append(lines, "  "+urlStyle.Render(s.URL))
			lines = append(lines, "")
		}
	}

	if chain != "" {
		lines = append(lines, styles.MutedStyle.Render("Chain RPC: ")+chain)
	}

	return strings.Join(lines, "\n")
}
