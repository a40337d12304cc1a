package main

import (
	"fmt"
	"os"

	"txsentinel-tui/config"
	"txsentinel-tui/notify"
	logview "txsentinel-tui/views/log"

	tea "github.com/charmbracelet/bubbletea"
)

// -------------------- MAIN --------------------

func main() {
	logBuffer := &logview.Buffer{}
	logger := logview.NewLogger(logBuffer)

	configPath := config.Path(os.Getenv)
	cfg := config.ApplyEnv(config.LoadOrCreate(configPath), os.Getenv)
	logger.Info("config loaded", "path", configPath)

	// frames go to stdout, desktop notifications to stderr
	desktop := &notify.TerminalSink{W: os.Stderr}

	m := newModel(cfg, configPath, logBuffer, logger, desktop)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())
	_, err := p.Run()
	m.feats.Close()
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
