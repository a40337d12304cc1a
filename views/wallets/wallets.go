package wallets

import (
	"fmt"
	"strings"

	"txsentinel-tui/config"
	"txsentinel-tui/helpers"
	"txsentinel-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for wallets view
func Nav(width int, adding bool) string {
	var left string
	if adding {
		left = strings.Join([]string{
			styles.Key("Tab") + " next field",
			styles.Key("Enter") + " save",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " move",
			styles.Key("Space") + " activate",
			styles.Key("a") + " add",
			styles.Key("d") + " delete",
			styles.Key("y") + " copy address",
			styles.Key("h") + " home",
			styles.Key("l") + " debug log",
			styles.Key("Esc") + " back",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// RenderList renders the wallet list
func RenderList(wallets []config.WalletEntry, selectedIdx int) string {
	if len(wallets) == 0 {
		return styles.MutedStyle.Render("No wallets added yet. Press 'a' to add one.")
	}

	var items []string
	for i, wallet := range wallets {
		var itemStyle lipgloss.Style
		var marker, fullAddr, shortAddr string

		if i == selectedIdx {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("▶ ")
			itemStyle = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true)
			fullAddr = lipgloss.NewStyle().Foreground(styles.CText).Render(wallet.Address)
			shortAddr = helpers.ShortenAddr(wallet.Address)
		} else {
			marker = "  "
			itemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e1a2aa"))
			fullAddr = helpers.FadeString(wallet.Address, "#7D5AFC", "#FF87D7")
			shortAddr = helpers.FadeString(helpers.ShortenAddr(wallet.Address), "#F25D94", "#EDFF82")
		}

		if wallet.Name != "" {
			shortAddr = wallet.Name + " - " + shortAddr
		}
		if wallet.Active {
			shortAddr = "✓ " + shortAddr
		}
		items = append(items, marker+itemStyle.Render(shortAddr)+"\n  "+fullAddr)
	}

	return strings.Join(items, "\n\n")
}

// Render renders the wallets page. keyAddress is set when a private key from
// the environment overrides the list.
func Render(wallets []config.WalletEntry, selectedIdx int, keyAddress, addError string) string {
	header := styles.TitleStyle.Render("Wallets")
	subtitle := styles.MutedStyle.Render("The active wallet is registered with TxSentinel on connect")

	content := header + "\n" + subtitle + "\n\n"
	if keyAddress != "" {
		content += lipgloss.NewStyle().Foreground(styles.CWarn).Render("Using TXSENTINEL_PRIVATE_KEY: "+keyAddress) + "\n\n"
	}
	content += RenderList(wallets, selectedIdx)

	if addError != "" {
		content += "\n\n" + lipgloss.NewStyle().Foreground(styles.CWarn).Bold(true).Render(addError)
	}

	statusBar := styles.MutedStyle.Render(fmt.Sprintf("%d wallets", len(wallets)))
	return content + "\n\n" + statusBar
}
