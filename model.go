package main

import (
	"context"

	"txsentinel-tui/config"
	"txsentinel-tui/features"
	"txsentinel-tui/identity"
	"txsentinel-tui/notify"
	"txsentinel-tui/state"
	"txsentinel-tui/styles"
	logview "txsentinel-tui/views/log"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// -------------------- MODEL --------------------

// toast is a transient notice shown above the nav bar
type toast struct {
	id      int
	level   notify.Level
	message string
}

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page

	cfg        config.Config
	configPath string

	// session
	feats    *features.Features
	starter  *switchableStarter
	bridge   *bridge
	prompter *notify.Prompter
	focus    *notify.FocusTracker
	desktop  notify.Sink

	snap         features.Snapshot
	groups       []state.TxGroup
	selectedHash string
	showDetails  bool
	lastError    string

	toasts    []toast
	nextToast int

	// desktop notification permission prompt
	permReq  *notify.Request
	permForm *huh.Form

	// home menu
	homeForm *huh.Form

	// servers and wallets pages share the add form
	form           *huh.Form
	formMode       string // "add-server", "edit-server", "add-wallet"
	selectedServer int
	selectedWallet int
	addError       string
	keyAddress     string

	// chain RPC check
	chainChecking bool
	chainStatus   string

	copiedMsg string
	spin      spinner.Model

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *logview.Buffer
	logViewport viewport.Model
}

// -------------------- INIT --------------------

// newModel wires the session features to the configuration loaded from disk
func newModel(cfg config.Config, configPath string, logBuffer *logview.Buffer, logger *log.Logger, desktop notify.Sink) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	vp := viewport.New(0, 10)
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	m := &model{
		activePage:  config.PageSession,
		cfg:         cfg,
		configPath:  configPath,
		prompter:    notify.NewPrompter(),
		focus:       &notify.FocusTracker{},
		desktop:     desktop,
		starter:     &switchableStarter{},
		bridge:      newBridge(logger),
		spin:        sp,
		logEnabled:  cfg.Logger,
		logger:      logger,
		logBuffer:   logBuffer,
		logViewport: vp,
	}

	for i, w := range cfg.Wallets {
		if w.Active {
			m.selectedWallet = i
		}
	}
	for i, s := range cfg.Servers {
		if s.Active {
			m.selectedServer = i
		}
	}
	if cfg.PrivateKey != "" {
		if signer, err := (identity.KeyProvider{HexKey: cfg.PrivateKey}).Signer(context.Background()); err == nil {
			m.keyAddress = signer.Address.Hex()
		} else {
			logger.Error("TXSENTINEL_PRIVATE_KEY rejected", "err", err)
		}
	}

	m.starter.Set(bootstrapFor(cfg, permissionsFor(cfg, m.prompter), logger))
	m.feats = features.New(features.Options{
		Starter:       m.starter,
		Notifications: desktopBridge{m.bridge},
		Toasts:        m.bridge,
		Focus:         m.focus,
		Logger:        logger.WithPrefix("features"),
	})
	m.feats.Subscribe(m.bridge.touch)
	m.refresh()

	return m
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spin.Tick,
		waitForChange(m.bridge),
		waitForEvent(m.bridge),
		waitForPermission(m.prompter),
	}
	if m.cfg.RPCURL != "" {
		m.chainChecking = true
		cmds = append(cmds, checkChain(m.cfg.RPCURL, m.cfg.ChainID))
	}
	return tea.Batch(cmds...)
}
