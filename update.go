package main

import (
	"errors"
	"fmt"
	"strings"

	"txsentinel-tui/config"
	"txsentinel-tui/features"
	"txsentinel-tui/helpers"
	"txsentinel-tui/notify"
	"txsentinel-tui/views/home"
	logview "txsentinel-tui/views/log"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// -------------------- FORMS --------------------

// Temporary variables for form data
var (
	tempServerName string
	tempServerURL  string
	tempWalletAddr string
	tempWalletName string
	tempAllow      bool
)

func (m *model) createServerForm(idx int) {
	tempServerName, tempServerURL = "", ""
	m.formMode = "add-server"
	if idx >= 0 && idx < len(m.cfg.Servers) {
		tempServerName = m.cfg.Servers[idx].Name
		tempServerURL = m.cfg.Servers[idx].URL
		m.formMode = "edit-server"
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server Name").
				Description("A friendly name for this TxSentinel instance").
				Value(&tempServerName).
				Placeholder("Local TxSentinel"),

			huh.NewInput().
				Title("Websocket URL").
				Description("The wallet endpoint (ws://... or wss://...)").
				Value(&tempServerURL).
				Placeholder("ws://localhost:8080/wallet/").
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if !strings.HasPrefix(s, "ws://") && !strings.HasPrefix(s, "wss://") {
						return errors.New("must start with ws:// or wss://")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func (m *model) createWalletForm() {
	tempWalletAddr, tempWalletName = "", ""
	m.formMode = "add-wallet"
	m.addError = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Address").
				Value(&tempWalletAddr).
				Placeholder("0x…").
				CharLimit(42).
				Validate(func(s string) error {
					if !helpers.IsValidEthAddress(strings.TrimSpace(s)) {
						return errors.New("not a valid address")
					}
					return nil
				}),

			huh.NewInput().
				Title("Nickname").
				Value(&tempWalletName).
				Placeholder("Optional nickname").
				CharLimit(50),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func (m *model) createPermissionForm() {
	tempAllow = true
	m.permForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Allow TxSentinel notifications?").
				Description("Desktop notifications tell you about flagged transactions\nand lost connections while the terminal is in the background.").
				Affirmative("Allow").
				Negative("Block").
				Value(&tempAllow),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.permForm.Init()
}

// answerPermission resolves the pending prompt and remembers a decision
func (m *model) answerPermission(p notify.Permission) tea.Cmd {
	if m.permReq != nil {
		m.permReq.Answer(p)
	}
	m.permReq = nil
	m.permForm = nil
	m.addLog("info", "Notification permission answered", "permission", p)
	if p != notify.Default {
		m.cfg.Notifications = string(p)
		m.applyConfig()
	}
	return waitForPermission(m.prompter)
}

func (m *model) finishForm() {
	switch m.formMode {
	case "add-server":
		name, url := strings.TrimSpace(tempServerName), strings.TrimSpace(tempServerURL)
		if name == "" {
			name = url
		}
		m.cfg.Servers = append(m.cfg.Servers, config.Endpoint{Name: name, URL: url})
		m.selectedServer = len(m.cfg.Servers) - 1
		m.addLog("success", "Added TxSentinel server", "name", name, "url", url)
	case "edit-server":
		if m.selectedServer < len(m.cfg.Servers) {
			m.cfg.Servers[m.selectedServer].Name = strings.TrimSpace(tempServerName)
			m.cfg.Servers[m.selectedServer].URL = strings.TrimSpace(tempServerURL)
			m.addLog("success", "Updated TxSentinel server", "name", tempServerName)
		}
	case "add-wallet":
		addr := strings.TrimSpace(tempWalletAddr)
		for _, w := range m.cfg.Wallets {
			if strings.EqualFold(w.Address, addr) {
				m.addError = "Wallet " + helpers.ShortenAddr(addr) + " already exists"
				return
			}
		}
		m.cfg.Wallets = append(m.cfg.Wallets, config.WalletEntry{
			Address: addr,
			Name:    strings.TrimSpace(tempWalletName),
			Active:  len(m.cfg.Wallets) == 0,
		})
		m.selectedWallet = len(m.cfg.Wallets) - 1
		m.addLog("success", "Added wallet", "address", helpers.ShortenAddr(addr))
	}
	m.applyConfig()
}

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the permission prompt is modal, it blocks a connect attempt
	if m.permForm != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				return m, m.answerPermission(notify.Default)
			}
		}
		if _, ok := msg.(tea.KeyMsg); ok {
			form, cmd := m.permForm.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				m.permForm = f
				switch m.permForm.State {
				case huh.StateCompleted:
					if tempAllow {
						return m, m.answerPermission(notify.Granted)
					}
					return m, m.answerPermission(notify.Denied)
				case huh.StateAborted:
					return m, m.answerPermission(notify.Default)
				}
			}
			return m, cmd
		}
	}

	// Handle form updates first (before message switching)
	if m.form != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
			m.form = nil
			return m, nil
		}
		if _, ok := msg.(tea.KeyMsg); ok {
			form, cmd := m.form.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				m.form = f
				switch m.form.State {
				case huh.StateCompleted:
					m.finishForm()
					m.form = nil
					return m, nil
				case huh.StateAborted:
					m.form = nil
					return m, nil
				}
			}
			return m, cmd
		}
	}

	if m.activePage == config.PageHome && m.homeForm != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			if keyMsg.String() == "esc" {
				m.homeForm = nil
				m.activePage = config.PageSession
				return m, nil
			}
			form, cmd := m.homeForm.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				m.homeForm = f
				switch m.homeForm.State {
				case huh.StateCompleted:
					m.activePage = home.Selection
					m.homeForm = nil
					return m, nil
				case huh.StateAborted:
					m.activePage = config.PageSession
					m.homeForm = nil
					return m, nil
				}
			}
			return m, cmd
		}
	}

	switch msg := msg.(type) {

	case sessionChangedMsg:
		prev := m.snap.Lifecycle
		m.refresh()
		if prev != m.snap.Lifecycle {
			m.addLog("debug", "Session "+m.snap.Lifecycle.String())
			if m.snap.Lifecycle == features.Connected {
				m.addLog("success", "Connected to TxSentinel", "wallet", m.snap.Wallet)
			}
		}
		return m, waitForChange(m.bridge)

	case toastMsg:
		m.nextToast++
		m.toasts = append(m.toasts, toast{id: m.nextToast, level: msg.level, message: msg.message})
		if len(m.toasts) > 3 {
			m.toasts = m.toasts[len(m.toasts)-3:]
		}
		if msg.local {
			return m, expireToast(m.nextToast)
		}
		return m, tea.Batch(waitForEvent(m.bridge), expireToast(m.nextToast))

	case clearToastMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case desktopNoticeMsg:
		m.addLog("info", "Desktop notification", "message", msg.n.Message)
		return m, tea.Batch(waitForEvent(m.bridge), showDesktop(m.desktop, msg.n))

	case permissionRequestMsg:
		req := msg.req
		m.permReq = &req
		m.createPermissionForm()
		return m, nil

	case chainCheckedMsg:
		m.chainChecking = false
		if msg.err != nil {
			m.chainStatus = "⚠ " + msg.err.Error()
			m.addLog("warning", "Chain check failed", "rpc", m.cfg.RPCURL, "err", msg.err)
		} else {
			m.chainStatus = fmt.Sprintf("%s  chain %s  block %d", msg.info.URL, msg.info.ChainID, msg.info.Head)
			m.addLog("success", "Chain verified", "chain", msg.info.ChainID, "head", msg.info.Head)
		}
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.addLog("error", msg.what+" failed", "err", msg.err)
			return m, func() tea.Msg {
				return toastMsg{level: notify.LevelError, message: "Error: " + msg.err.Error(), local: true}
			}
		}
		m.addLog("success", msg.what)
		return m, nil

	case clipboardCopiedMsg:
		m.copiedMsg = "✓ Copied " + msg.what
		m.addLog("info", "Copied "+msg.what+" to clipboard")
		return m, clearClipboard()

	case clearClipboardMsg:
		m.copiedMsg = ""
		return m, nil

	case tea.FocusMsg:
		m.focus.Set(true)
		return m, nil

	case tea.BlurMsg:
		m.focus.Set(false)
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.logViewport.Width = helpers.Max(0, msg.Width-6)
		m.logViewport.Height = logview.PanelHeight(msg.Height)
		m.updateLogViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.updateLogViewport()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// global keys
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "l", "L":
		m.logEnabled = !m.logEnabled
		m.cfg.Logger = m.logEnabled
		if err := config.Save(m.configPath, m.cfg); err != nil {
			m.addLog("error", "Saving config failed", "err", err)
		}
		if m.logEnabled {
			m.updateLogViewport()
		}
		return m, nil

	case "pageup", "pagedown":
		if m.logEnabled {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case "h":
		m.activePage = config.PageHome
		m.showDetails = false
		m.homeForm = home.CreateForm()
		return m, nil
	}

	switch m.activePage {
	case config.PageSession:
		return m.handleSessionKey(msg)
	case config.PageServers:
		return m.handleServersKey(msg)
	case config.PageWallets:
		return m.handleWalletsKey(msg)
	}
	return m, nil
}

func (m *model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w, hasWarning := m.selectedWarning()

	switch msg.String() {
	case "c", "r":
		if msg.String() == "c" && m.snap.Lifecycle != features.Disconnected {
			return m, nil
		}
		server, ok := m.cfg.ActiveServer()
		if !ok {
			m.activePage = config.PageServers
			return m, func() tea.Msg {
				return toastMsg{level: notify.LevelWarning, message: "Add a TxSentinel server first", local: true}
			}
		}
		m.addLog("info", "Connecting", "server", server.Name, "url", server.URL)
		m.feats.Connect()
		return m, nil

	case "d":
		if m.snap.Lifecycle != features.Disconnected {
			m.feats.Disconnect()
			m.showDetails = false
		}
		return m, nil

	case "up", "k":
		m.moveSelection(-1)
		return m, nil

	case "down", "j":
		m.moveSelection(1)
		return m, nil

	case "enter":
		if hasWarning {
			m.showDetails = !m.showDetails
		}
		return m, nil

	case "esc":
		m.showDetails = false
		return m, nil

	case "s":
		if hasWarning {
			tx := w.TxHash
			m.addLog("info", "Allowing transaction", "tx", helpers.ShortenAddr(tx))
			return m, send("Sent TxAllow for "+helpers.ShortenAddr(tx), func() error { return m.feats.AllowTx(tx) })
		}

	case "x":
		if hasWarning {
			hash := w.WarningHash
			m.addLog("info", "Cancelling transaction", "warning", helpers.ShortenAddr(hash))
			return m, send("Sent TxWarningAccept for "+helpers.ShortenAddr(hash), func() error { return m.feats.AcceptWarning(hash) })
		}

	case "i":
		if hasWarning {
			m.moveSelection(1)
			if m.selectedHash == w.WarningHash {
				m.moveSelection(-1)
			}
			m.feats.Ignore(w.WarningHash)
			m.addLog("info", "Ignored warning", "warning", helpers.ShortenAddr(w.WarningHash))
		}
		return m, nil

	case "y":
		if hasWarning {
			return m, copyToClipboard(helpers.ExplorerTxURL(m.cfg.ExplorerURL, w.TxHash), "explorer link")
		}
		if m.snap.Wallet != "" {
			return m, copyToClipboard(m.snap.Wallet, "wallet address")
		}
	}
	return m, nil
}

func (m *model) handleServersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.selectedServer = helpers.Clamp(m.selectedServer-1, len(m.cfg.Servers))
	case "down", "j":
		m.selectedServer = helpers.Clamp(m.selectedServer+1, len(m.cfg.Servers))
	case "a":
		m.createServerForm(-1)
	case "e":
		if len(m.cfg.Servers) > 0 {
			m.createServerForm(m.selectedServer)
		}
	case "d":
		if len(m.cfg.Servers) > 0 {
			removed := m.cfg.Servers[m.selectedServer]
			m.cfg.Servers = append(m.cfg.Servers[:m.selectedServer], m.cfg.Servers[m.selectedServer+1:]...)
			m.selectedServer = helpers.Clamp(m.selectedServer, len(m.cfg.Servers))
			m.addLog("warning", "Deleted TxSentinel server", "name", removed.Name)
			m.applyConfig()
		}
	case "enter", " ":
		if len(m.cfg.Servers) > 0 {
			for i := range m.cfg.Servers {
				m.cfg.Servers[i].Active = i == m.selectedServer
			}
			m.addLog("success", "Activated TxSentinel server", "name", m.cfg.Servers[m.selectedServer].Name)
			m.applyConfig()
		}
	case "esc":
		m.activePage = config.PageSession
	}
	return m, nil
}

func (m *model) handleWalletsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.selectedWallet = helpers.Clamp(m.selectedWallet-1, len(m.cfg.Wallets))
	case "down", "j":
		m.selectedWallet = helpers.Clamp(m.selectedWallet+1, len(m.cfg.Wallets))
	case "a":
		m.createWalletForm()
	case "d":
		if len(m.cfg.Wallets) > 0 {
			removed := m.cfg.Wallets[m.selectedWallet]
			m.cfg.Wallets = append(m.cfg.Wallets[:m.selectedWallet], m.cfg.Wallets[m.selectedWallet+1:]...)
			m.selectedWallet = helpers.Clamp(m.selectedWallet, len(m.cfg.Wallets))
			m.addLog("warning", "Deleted wallet", "address", helpers.ShortenAddr(removed.Address))
			m.applyConfig()
		}
	case " ", "enter":
		if len(m.cfg.Wallets) > 0 {
			for i := range m.cfg.Wallets {
				m.cfg.Wallets[i].Active = i == m.selectedWallet
			}
			m.addLog("success", "Activated wallet", "address", helpers.ShortenAddr(m.cfg.Wallets[m.selectedWallet].Address))
			m.applyConfig()
		}
	case "y":
		if len(m.cfg.Wallets) > 0 {
			return m, copyToClipboard(m.cfg.Wallets[m.selectedWallet].Address, "address")
		}
	case "esc":
		m.activePage = config.PageSession
	}
	return m, nil
}
