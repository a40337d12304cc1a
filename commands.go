package main

import (
	"context"
	"time"

	"txsentinel-tui/config"
	"txsentinel-tui/features"
	"txsentinel-tui/helpers"
	"txsentinel-tui/identity"
	"txsentinel-tui/notify"
	"txsentinel-tui/protocol"
	"txsentinel-tui/rpc"
	"txsentinel-tui/session"
	"txsentinel-tui/state"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// checkChain verifies the chain behind the configured RPC endpoint
func checkChain(url, chainID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		info, err := rpc.CheckEndpoint(ctx, url, chainID)
		return chainCheckedMsg{info: info, err: err}
	}
}

// send runs an outbound session action off the UI goroutine
func send(what string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return sentMsg{what: what, err: fn()}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return toastMsg{level: notify.LevelError, message: "Clipboard unavailable: " + err.Error(), local: true}
		}
		return clipboardCopiedMsg{what: what}
	}
}

// clearClipboard waits 2 seconds then clears clipboard feedback
func clearClipboard() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearClipboardMsg{}
	})
}

// expireToast removes a toast after a few seconds
func expireToast(id int) tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return clearToastMsg{id: id}
	})
}

// showDesktop raises a desktop notification
func showDesktop(sink notify.Sink, n notify.Notification) tea.Cmd {
	if sink == nil {
		return nil
	}
	return func() tea.Msg {
		sink.Show(n)
		return nil
	}
}

// -------------------- SESSION WIRING --------------------

// permissionsFor maps the notifications setting onto a permission source
func permissionsFor(cfg config.Config, prompter *notify.Prompter) notify.Permissions {
	switch notify.ParsePermission(cfg.Notifications) {
	case notify.Granted:
		return notify.Static(notify.Granted)
	case notify.Denied:
		return notify.Static(notify.Denied)
	}
	return prompter
}

// bootstrapFor builds the session bootstrap for the active server and wallet
func bootstrapFor(cfg config.Config, perms notify.Permissions, logger *log.Logger) session.Bootstrap {
	server, _ := cfg.ActiveServer()
	wallets := append([]config.WalletEntry(nil), cfg.Wallets...)
	return session.Bootstrap{
		Identity:         identity.FromConfig(cfg.PrivateKey, func() []config.WalletEntry { return wallets }),
		Permissions:      perms,
		URL:              server.URL,
		RPCURL:           cfg.RPCURL,
		ChainID:          cfg.ChainID,
		HandshakeTimeout: cfg.Handshake(),
		Logger:           logger.WithPrefix("session"),
	}
}

// -------------------- MODEL HELPER METHODS --------------------

// addLog adds a log entry with the given level
func (m *model) addLog(level, message string, keyvals ...interface{}) {
	switch level {
	case "success":
		m.logger.Info("✓ "+message, keyvals...)
	case "error":
		m.logger.Error(message, keyvals...)
	case "warning":
		m.logger.Warn(message, keyvals...)
	case "debug":
		m.logger.Debug(message, keyvals...)
	default:
		m.logger.Info(message, keyvals...)
	}
	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logEnabled || m.logBuffer == nil {
		return
	}
	atBottom := m.logViewport.AtBottom()
	m.logViewport.SetContent(m.logBuffer.String())
	if atBottom || m.logViewport.TotalLineCount() <= m.logViewport.Height {
		m.logViewport.GotoBottom()
	}
}

// refresh pulls the latest session snapshot into the model
func (m *model) refresh() {
	m.snap = m.feats.Snapshot()
	m.groups = state.GroupByTx(m.snap.State.Warnings)

	// the last connect error stays visible until the next attempt
	switch {
	case m.snap.Status.Err != nil:
		m.lastError = m.snap.Status.Err.Error()
	case m.snap.Lifecycle != features.Disconnected:
		m.lastError = ""
	}

	flat := m.flatWarnings()
	if len(flat) == 0 {
		m.selectedHash = ""
		m.showDetails = false
		return
	}
	for _, w := range flat {
		if w.WarningHash == m.selectedHash {
			return
		}
	}
	m.selectedHash = flat[0].WarningHash
}

// flatWarnings lists warnings in on-screen order
func (m model) flatWarnings() []protocol.Warning {
	var out []protocol.Warning
	for _, g := range m.groups {
		out = append(out, g.Warnings...)
	}
	return out
}

// selectedWarning returns the highlighted warning
func (m model) selectedWarning() (protocol.Warning, bool) {
	for _, w := range m.flatWarnings() {
		if w.WarningHash == m.selectedHash {
			return w, true
		}
	}
	return protocol.Warning{}, false
}

// moveSelection moves the highlighted warning by delta
func (m *model) moveSelection(delta int) {
	flat := m.flatWarnings()
	if len(flat) == 0 {
		return
	}
	idx := 0
	for i, w := range flat {
		if w.WarningHash == m.selectedHash {
			idx = i
		}
	}
	m.selectedHash = flat[helpers.Clamp(idx+delta, len(flat))].WarningHash
}

// applyConfig saves the config and points the next session at it
func (m *model) applyConfig() {
	if err := config.Save(m.configPath, m.cfg); err != nil {
		m.addLog("error", "Saving config failed", "err", err)
	}
	m.starter.Set(bootstrapFor(m.cfg, permissionsFor(m.cfg, m.prompter), m.logger))
}
