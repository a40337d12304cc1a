// Package session renders the TxSentinel session page: the header, the
// initial and empty views and the warnings grouped by transaction.
package session

import (
	"fmt"
	"strings"

	"txsentinel-tui/features"
	"txsentinel-tui/helpers"
	"txsentinel-tui/protocol"
	"txsentinel-tui/state"
	"txsentinel-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the title, the TxSentinel balance and the tracked wallet
func Header(width int, balance state.Maybe[float64], wallet string, lifecycle features.Lifecycle, server string) string {
	title := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString("TxSentinel", "#E84142", "#F25D94"))

	var middle string
	if b, ok := balance.Get(); ok {
		middle = lipgloss.NewStyle().Foreground(styles.CText).Bold(true).Render("TxSentinel balance: ") +
			lipgloss.NewStyle().Foreground(styles.CAvax).Render("▲ "+helpers.FormatBalance(b))
	}

	right := status(lifecycle, server)
	if wallet != "" {
		right = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("◆ "+wallet) + "  " + right
	}

	used := lipgloss.Width(title) + lipgloss.Width(middle) + lipgloss.Width(right)
	if used+4 > width {
		lines := []string{title}
		if middle != "" {
			lines = append(lines, middle)
		}
		return strings.Join(append(lines, right), "\n")
	}
	space := width - used
	left := space / 2
	return title + strings.Repeat(" ", helpers.Max(1, left)) + middle + strings.Repeat(" ", helpers.Max(1, space-left)) + right
}

func status(l features.Lifecycle, server string) string {
	switch l {
	case features.Connected:
		return lipgloss.NewStyle().Foreground(styles.CAccent).Bold(true).Render("● " + server)
	case features.Connecting:
		return lipgloss.NewStyle().Foreground(styles.CWarn).Bold(true).Render("○ Connecting...")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#c01c28")).Bold(true).Render("○ Disconnected")
}

// Initial is shown while no session is live
func Initial(loading bool, spinnerView, lastError string) string {
	h := styles.TitleStyle.Render("Transaction monitoring")
	sub := styles.MutedStyle.Render("Connect to TxSentinel to get warned about risky transactions sent from your wallet")

	var action string
	if loading {
		action = spinnerView + " Connecting..."
	} else {
		action = styles.ActiveButtonStyle.Render("Connect") + "  " + styles.MutedStyle.Render("press ") + styles.Key("c")
	}

	lines := []string{h, sub, "", action}
	if lastError != "" && !loading {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(styles.CDanger).Render("⚠ "+lastError))
	}
	return strings.Join(lines, "\n")
}

// Empty is shown when connected without warnings
func Empty(wallet string) string {
	h := styles.TitleStyle.Render("All clear")
	lines := []string{h, ""}
	if wallet != "" {
		lines = append(lines, styles.MutedStyle.Render("Monitoring transactions of ")+lipgloss.NewStyle().Foreground(styles.CAccent2).Render(wallet))
	}
	lines = append(lines, styles.MutedStyle.Render("No warnings so far. You will be notified when TxSentinel flags a transaction."))
	return strings.Join(lines, "\n")
}

// Warnings renders one card per transaction. selected is the highlighted
// warning hash.
func Warnings(width int, groups []state.TxGroup, selected, explorer string) string {
	h := styles.TitleStyle.Render("Flagged transactions") + "  " +
		styles.MutedStyle.Render(fmt.Sprintf("%d pending", len(groups)))

	cards := []string{h}
	for _, g := range groups {
		cards = append(cards, card(width, g, selected, explorer))
	}
	return strings.Join(cards, "\n\n")
}

func card(width int, g state.TxGroup, selected, explorer string) string {
	focused := false
	for _, w := range g.Warnings {
		if w.WarningHash == selected {
			focused = true
		}
	}

	txLink := helpers.Hyperlink(helpers.ExplorerTxURL(explorer, g.TxHash), helpers.ShortenAddr(g.TxHash))
	title := lipgloss.NewStyle().Foreground(styles.CText).Bold(true).Render("Transaction ") +
		lipgloss.NewStyle().Foreground(styles.CAccent2).Underline(true).Render(txLink)

	lines := []string{title, ""}
	for _, w := range g.Warnings {
		lines = append(lines, warningLine(w, w.WarningHash == selected))
	}

	send := styles.ButtonStyle.Render("Send anyway")
	if focused {
		send = styles.ActiveButtonStyle.Render("Send anyway")
	}
	lines = append(lines, "", send+"  "+styles.MutedStyle.Render(fmt.Sprintf("%d warning(s)", len(g.Warnings))))

	style := styles.CardStyle
	if focused {
		style = styles.SelectedCardStyle
	}
	return style.Width(helpers.Max(20, width-4)).Render(strings.Join(lines, "\n"))
}

func warningLine(w protocol.Warning, selected bool) string {
	marker := "  "
	if selected {
		marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("▶ ")
	}
	severity := w.Severity
	if severity == "" {
		severity = "warning"
	}
	desc := w.Description
	if desc == "" {
		desc = "Suspicious transaction"
	}
	return marker + styles.Severity(w.Severity).Render(strings.ToUpper(severity)) + "  " +
		lipgloss.NewStyle().Foreground(styles.CText).Render(desc) + "  " +
		styles.MutedStyle.Render(helpers.ShortenAddr(w.WarningHash))
}

// Nav returns the navigation bar for the session page
func Nav(width int, lifecycle features.Lifecycle, hasWarnings bool) string {
	var keys []string
	switch lifecycle {
	case features.Connected:
		if hasWarnings {
			keys = append(keys,
				styles.Key("↑/↓")+" select",
				styles.Key("s")+" send tx",
				styles.Key("x")+" cancel tx",
				styles.Key("i")+" ignore",
				styles.Key("Enter")+" details",
			)
		}
		keys = append(keys, styles.Key("r")+" reconnect", styles.Key("d")+" disconnect")
	case features.Connecting:
		keys = append(keys, styles.Key("d")+" abort")
	default:
		keys = append(keys, styles.Key("c")+" connect")
	}
	keys = append(keys,
		styles.Key("h")+" home",
		styles.Key("l")+" debug log",
		styles.Key("q")+" quit",
	)
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}
