package log

import (
	"fmt"
	"strings"
	"sync"

	"txsentinel-tui/helpers"
	"txsentinel-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

// maxBuffer bounds the retained log output
const maxBuffer = 64 * 1024

// Buffer is the log sink behind the log panel. Session goroutines write to
// it concurrently with rendering.
type Buffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len()+len(p) > maxBuffer {
		s := b.buf.String()
		cut := len(s) / 2
		if i := strings.IndexByte(s[cut:], '\n'); i >= 0 {
			cut += i + 1
		}
		b.buf.Reset()
		b.buf.WriteString(s[cut:])
	}
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewLogger creates the application logger writing into b
func NewLogger(b *Buffer) *charmlog.Logger {
	logger := charmlog.NewWithOptions(b, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           charmlog.DebugLevel,
	})
	logger.SetStyles(&charmlog.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(styles.CMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(styles.CAccent2),
		Message:   lipgloss.NewStyle().Foreground(styles.CText),
		Key:       lipgloss.NewStyle().Foreground(styles.CAccent),
		Value:     lipgloss.NewStyle().Foreground(styles.CText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[charmlog.Level]lipgloss.Style{
			charmlog.DebugLevel: lipgloss.NewStyle().Foreground(styles.CMuted).SetString("DEBUG"),
			charmlog.InfoLevel:  lipgloss.NewStyle().Foreground(styles.CAccent2).SetString("INFO"),
			charmlog.WarnLevel:  lipgloss.NewStyle().Foreground(styles.CWarn).SetString("WARN"),
			charmlog.ErrorLevel: lipgloss.NewStyle().Foreground(styles.CDanger).SetString("ERROR"),
		},
	})
	return logger
}

// PanelHeight is the viewport height used for a terminal of the given height
func PanelHeight(height int) int {
	// header, nav, title and borders
	availableHeight := helpers.Max(5, height-10)
	return helpers.Min(availableHeight, helpers.Min(height/3, 15))
}

// Render renders the log panel
func Render(width, height int, vp viewport.Model) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")

	vp.Height = PanelHeight(height)

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(vp.Height + 2)

	scrollInfo := ""
	if vp.TotalLineCount() > vp.Height {
		scrollInfo = lipgloss.NewStyle().
			Foreground(styles.CMuted).
			Render(fmt.Sprintf(" [%d%%]", int(vp.ScrollPercent()*100)))
	}

	return border.Render(title + scrollInfo + "\n\n" + vp.View())
}
