package main

import (
	"strings"

	"txsentinel-tui/config"
	"txsentinel-tui/features"
	"txsentinel-tui/helpers"
	"txsentinel-tui/notify"
	"txsentinel-tui/views/details"
	"txsentinel-tui/views/home"
	logview "txsentinel-tui/views/log"
	viewsession "txsentinel-tui/views/session"
	"txsentinel-tui/views/servers"
	"txsentinel-tui/views/wallets"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

func (m *model) renderPermissionDialog() string {
	dialogBoxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(cBorder).
		Padding(1, 2)

	msg := helpers.FadeString("TxSentinel wants to send desktop notifications", "#F25D94", "#EDFF82")
	question := lipgloss.NewStyle().Width(60).Align(lipgloss.Center).Render(msg)

	help := lipgloss.NewStyle().
		Foreground(cMuted).
		Align(lipgloss.Center).
		Width(60).
		MarginTop(1).
		Render("←/→: Choose • Enter: Confirm • Esc: Ask later")

	ui := lipgloss.JoinVertical(lipgloss.Center, question, "", m.permForm.View(), help)

	// Center the dialog on screen
	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialogBoxStyle.Render(ui),
	)
}

func (m *model) header() string {
	availableWidth := helpers.Max(0, m.w-6)

	name := ""
	if server, ok := m.cfg.ActiveServer(); ok {
		name = server.Name
	}
	wallet := ""
	if m.snap.Wallet != "" {
		wallet = helpers.ShortenAddr(m.snap.Wallet)
	}

	line := viewsession.Header(availableWidth, m.snap.State.BalanceEth, wallet, m.snap.Lifecycle, name)

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return line + "\n" + separator
}

func (m *model) renderToasts() string {
	if len(m.toasts) == 0 && m.copiedMsg == "" {
		return ""
	}
	var lines []string
	for _, t := range m.toasts {
		color := cAccent2
		icon := "ℹ"
		switch t.level {
		case notify.LevelSuccess:
			color, icon = cAccent, "✓"
		case notify.LevelWarning:
			color, icon = cWarn, "⚠"
		case notify.LevelError:
			color, icon = cDanger, "✗"
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon+" "+t.message))
	}
	if m.copiedMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(cAccent).Bold(true).Render(m.copiedMsg))
	}
	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(lines, "\n"))
}

func (m *model) sessionContent() (string, string) {
	width := helpers.Max(0, m.w-2)

	switch {
	case m.snap.Lifecycle != features.Connected:
		content := viewsession.Initial(m.snap.Lifecycle == features.Connecting, m.spin.View(), m.lastError)
		if m.chainStatus != "" || m.chainChecking {
			chain := m.chainStatus
			if m.chainChecking {
				chain = m.spin.View() + " Checking chain RPC..."
			}
			content += "\n\n" + lipgloss.NewStyle().Foreground(cMuted).Render(chain)
		}
		return panelStyle.Width(width).Render(content), viewsession.Nav(width, m.snap.Lifecycle, false)

	case len(m.groups) == 0:
		return panelStyle.Width(width).Render(viewsession.Empty(m.snap.Wallet)), viewsession.Nav(width, m.snap.Lifecycle, false)
	}

	list := viewsession.Warnings(helpers.Max(0, width-6), m.groups, m.selectedHash, m.cfg.ExplorerURL)

	w, ok := m.selectedWarning()
	if !m.showDetails || !ok {
		return panelStyle.Width(width).Render(list), viewsession.Nav(width, m.snap.Lifecycle, true)
	}

	// Calculate panel widths (split 50/50)
	listWidth := helpers.Max(0, m.w/2-2)
	detailsWidth := helpers.Max(0, m.w-m.w/2-2)

	leftPanel := panelStyle.Width(listWidth).Render(viewsession.Warnings(helpers.Max(0, listWidth-6), m.groups, m.selectedHash, m.cfg.ExplorerURL))
	rightPanel := panelStyle.
		Width(detailsWidth).
		Height(helpers.Max(0, lipgloss.Height(leftPanel)-2)).
		Render(details.Render(w, m.cfg.ExplorerURL, m.copiedMsg))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel), details.Nav(width)
}

func (m *model) View() string {
	if m.permForm != nil {
		return m.renderPermissionDialog()
	}

	headerPanel := panelStyle.Width(helpers.Max(0, m.w-2)).Render(m.header())

	var pageContent string
	var nav string

	switch m.activePage {
	case config.PageHome:
		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(home.Render(m.homeForm))
		nav = home.Nav(m.w - 2)

	case config.PageServers:
		content := servers.Render(m.cfg.Servers, m.selectedServer, m.chainStatus)
		mode := ""
		if m.form != nil {
			mode = "add"
			title := "Add TxSentinel Server"
			if m.formMode == "edit-server" {
				mode = "edit"
				title = "Edit TxSentinel Server"
			}
			content = titleStyle.Render(title) + "\n\n" + m.form.View()
		}
		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(content)
		nav = servers.Nav(m.w-2, mode)

	case config.PageWallets:
		content := wallets.Render(m.cfg.Wallets, m.selectedWallet, m.keyAddress, m.addError)
		if m.form != nil {
			content = titleStyle.Render("Add Wallet") + "\n\n" + m.form.View()
		}
		pageContent = panelStyle.Width(helpers.Max(0, m.w-2)).Render(content)
		nav = wallets.Nav(m.w-2, m.form != nil)

	default:
		pageContent, nav = m.sessionContent()
	}

	sections := []string{headerPanel, pageContent}
	if t := m.renderToasts(); t != "" {
		sections = append(sections, t)
	}
	sections = append(sections, nav)

	// Render log panel only if enabled
	if m.logEnabled {
		m.logViewport.Height = logview.PanelHeight(m.h)
		sections = append(sections, logview.Render(m.w, m.h, m.logViewport))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
