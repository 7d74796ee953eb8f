package render

import (
	"hash/fnv"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/svcdeck/internal/logging"
)

var (
	// Colors - all meet WCAG AA contrast (4.5:1) on dark backgrounds
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// servicePalette colours service prefixes. A service keeps its colour
	// across runs because the index is derived from its name.
	servicePalette = []lipgloss.Color{
		"#60A5FA", // Blue
		"#10B981", // Green
		"#F472B6", // Pink
		"#FBBF24", // Yellow
		"#A78BFA", // Purple
		"#22D3EE", // Cyan
		"#FB923C", // Orange
		"#A3E635", // Lime
	}
)

// Styles renders svcdeck's terminal output. A zero or disabled Styles
// returns text unchanged.
type Styles struct {
	enabled bool

	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	errorS  lipgloss.Style
	info    lipgloss.Style
}

// NewStyles creates a Styles. When enabled is false no escape sequences
// are produced.
func NewStyles(enabled bool) *Styles {
	return &Styles{
		enabled: enabled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor),
		muted:   lipgloss.NewStyle().Foreground(MutedColor),
		success: lipgloss.NewStyle().Foreground(SecondaryColor),
		warning: lipgloss.NewStyle().Foreground(WarningColor),
		errorS:  lipgloss.NewStyle().Foreground(ErrorColor),
		info:    lipgloss.NewStyle().Foreground(BlueColor),
	}
}

// Plain returns a Styles that never colours.
func Plain() *Styles { return NewStyles(false) }

// Enabled reports whether colour is produced.
func (s *Styles) Enabled() bool { return s != nil && s.enabled }

// ColorEnabled decides whether output to w should be coloured for the
// configured mode ("auto", "always" or "never"). In auto mode colour is
// used only when w is a terminal and NO_COLOR is unset.
func ColorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s *Styles) render(style lipgloss.Style, text string) string {
	if !s.Enabled() {
		return text
	}
	return style.Render(text)
}

// Title renders a heading.
func (s *Styles) Title(text string) string { return s.render(s.title, text) }

// Muted renders secondary text.
func (s *Styles) Muted(text string) string { return s.render(s.muted, text) }

// Success renders a positive outcome.
func (s *Styles) Success(text string) string { return s.render(s.success, text) }

// Warning renders a warning.
func (s *Styles) Warning(text string) string { return s.render(s.warning, text) }

// Error renders a failure.
func (s *Styles) Error(text string) string { return s.render(s.errorS, text) }

// Info renders informational text.
func (s *Styles) Info(text string) string { return s.render(s.info, text) }

// ServiceColor returns the palette colour for a service name.
func ServiceColor(name string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return servicePalette[h.Sum32()%uint32(len(servicePalette))]
}

// Service renders a service name in its palette colour.
func (s *Styles) Service(name string) string {
	if !s.Enabled() {
		return name
	}
	return lipgloss.NewStyle().Bold(true).Foreground(ServiceColor(name)).Render(name)
}

// Level renders a log level tag such as "[WARN]".
func (s *Styles) Level(level string) string {
	level = strings.ToUpper(level)
	tag := "[" + level + "]"
	switch level {
	case logging.LevelDebug:
		return s.Muted(tag)
	case logging.LevelInfo:
		return s.Info(tag)
	case logging.LevelWarn:
		return s.Warning(tag)
	case logging.LevelError:
		return s.Error(tag)
	default:
		return tag
	}
}
