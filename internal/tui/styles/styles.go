package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Agent state colors
	StateIdle      = lipgloss.Color("#9CA3AF") // Gray
	StateWaiting   = lipgloss.Color("#60A5FA") // Blue
	StateWorking   = lipgloss.Color("#10B981") // Green
	StateCompleted = lipgloss.Color("#A78BFA") // Purple
	StateError     = lipgloss.Color("#F87171") // Red

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	SectionTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(BlueColor)

	// Phase badge in the header
	PhaseBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(PrimaryColor).
			Padding(0, 1)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Header
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	// Agent panel
	AgentPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	AgentName = lipgloss.NewStyle().
			Bold(true).
			Width(10)

	// Option rows in the delivery view
	Option = lipgloss.NewStyle().
		Foreground(TextColor).
		Padding(0, 1)

	OptionRecommended = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 1)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success message
	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Warning message
	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)
)

// Layout constants for the vertical space the header and help bar reserve.
const (
	HeaderLines          = 4 // text + PaddingBottom + BorderBottom + MarginBottom
	HelpBarLines         = 2 // MarginTop + text
	ViewNewlines         = 2 // after header + before help bar
	HeaderFooterReserved = HeaderLines + HelpBarLines + ViewNewlines
)

// StateColor returns the color for an agent state
func StateColor(state string) lipgloss.Color {
	switch state {
	case "idle":
		return StateIdle
	case "waiting":
		return StateWaiting
	case "working":
		return StateWorking
	case "completed":
		return StateCompleted
	case "error":
		return StateError
	default:
		return MutedColor
	}
}

// StateIcon returns an icon for an agent state
func StateIcon(state string) string {
	switch state {
	case "idle":
		return "○"
	case "waiting":
		return "…"
	case "working":
		return "●"
	case "completed":
		return "✓"
	case "error":
		return "✗"
	default:
		return "●"
	}
}

// LogLevel returns the style for an activity log level
func LogLevel(level string) lipgloss.Style {
	switch level {
	case "success":
		return Secondary
	case "warning":
		return Warning
	case "error":
		return Error
	default:
		return Text
	}
}
