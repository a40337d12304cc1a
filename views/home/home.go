package home

import (
	"strings"

	"txsentinel-tui/config"
	"txsentinel-tui/styles"

	"github.com/charmbracelet/huh"
)

// Selection stores the home menu selection
var Selection config.Page

// CreateForm creates the home menu form
func CreateForm() *huh.Form {
	Selection = config.PageSession

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[config.Page]().
				Options(
					huh.NewOption("Session", config.PageSession),
					huh.NewOption("TxSentinel Servers", config.PageServers),
					huh.NewOption("Wallets", config.PageWallets),
				).
				Title("Main Menu").
				Description("Select a view to navigate to").
				Value(&Selection),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the home view
func Render(form *huh.Form) string {
	if form != nil {
		return form.View()
	}
	return "Loading menu..."
}

// Nav returns the navigation bar for home view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " select",
		styles.Key("Enter") + " go",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
