package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/sanctuary/internal/i18n"
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.sessionMeterView(), m.viewport.View()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	parts = append(parts, m.composerPanel(), footerStyle.Render(m.labels().Footer))
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	t := m.labels()
	title := heroTitleStyle.Render(t.Title)
	subtitle := taglineStyle.Render(t.Subtitle)
	badge := languageBadgeStyle.Render(strings.ToUpper(string(m.state.Language)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", badge)
	return m.align(lipgloss.JoinVertical(lipgloss.Left, header, subtitle))
}

func (m *model) composerPanel() string {
	t := m.labels()
	var heading, help string
	switch m.composerMode() {
	case composerModePath:
		heading = t.Upload
		help = t.Terminal.UploadHelp
	case composerModeMessage:
		heading = t.ChatTitle
		help = t.Terminal.MessageHelp
	default:
		heading = t.ChatTitle
		help = t.Terminal.WaitingHelp
	}
	input := m.composer.View()
	if m.composerMode() == composerModeDisabled {
		input = disabledComposerStyle.Render(m.composer.Placeholder)
	}
	return joinLines([]string{
		sectionHeaderStyle.Render(heading),
		composerBoxStyle.Render(input),
		helperStyle.Render(help),
	})
}

func (m *model) sessionMeterView() string {
	t := m.labels().Terminal
	stats := []string{
		fmt.Sprintf("%s %s", t.StatusLabel, strings.ToUpper(string(m.state.Status))),
		fmt.Sprintf("%s %s", t.ViewLabel, m.state.View),
		fmt.Sprintf("%s %s", t.LanguageLabel, m.state.Language),
		fmt.Sprintf("%s %d", t.AxiomsLabel, len(m.state.Axioms)),
		fmt.Sprintf("%s %d", t.TurnsLabel, len(m.state.Transcript)),
	}
	if m.config.LLM != nil {
		stats = append(stats, m.config.LLM.Name())
	}
	stats = append(stats, m.jobStatusBadges()...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	kinds := make([]string, 0, len(m.jobStatus))
	for kind, snap := range m.jobStatus {
		if snap.Status == jobStatusRunning && snap.Generation == m.state.Generation {
			kinds = append(kinds, string(kind))
		}
	}
	sort.Strings(kinds)
	badges := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		badges = append(badges, kind+"…")
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
}

// helpView is the ? overlay: the key legend beside the about and guide
// panels, stacked when the terminal is too narrow for both.
func (m *model) helpView() string {
	legend := m.keyLegendView()
	info := m.infoPanelsView(lipgloss.Width(legend))
	if lipgloss.Width(legend)+lipgloss.Width(info)+2 > m.layout.windowWidth {
		return m.align(lipgloss.JoinVertical(lipgloss.Left, legend, m.infoPanelsView(m.wrapWidth(0))))
	}
	panes := []string{legend, "  ", info}
	if m.state.Language == i18n.Arabic {
		reverse(panes)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panes...)
}

func (m *model) infoPanelsView(width int) string {
	t := m.labels()
	inner := width - legendBoxStyle.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}
	body := joinLines([]string{
		sectionHeaderStyle.Render(t.AboutTitle),
		wordwrap.String(t.About, inner) + "\n",
		sectionHeaderStyle.Render(t.HelpTitle),
		wordwrap.String(t.Help, inner),
	})
	if m.state.Language == i18n.Arabic {
		body = lipgloss.NewStyle().Width(inner).Align(lipgloss.Right).Render(body)
	}
	return legendBoxStyle.Render(body)
}

func (m *model) keyLegendView() string {
	t := m.labels().Terminal
	hints := []keyHint{
		{"Enter", t.KeyEnter},
		{"←/→/↑/↓", t.KeyArrows},
		{"Space", t.KeySpace},
		{"Tab", t.KeyTab},
		{"Ctrl+L", t.KeyLanguage},
		{"Ctrl+R", t.KeyReset},
		{"PgUp/PgDn", t.KeyScroll},
		{"Esc", t.KeyEsc},
		{"Ctrl+C", t.KeyQuit},
	}
	rows := []string{sectionHeaderStyle.Render(t.KeysTitle)}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func joinLines(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n")
}

var (
	goldColor  = lipgloss.Color("#c9a45c")
	inkColor   = lipgloss.Color("#e7e2d4")
	dimColor   = lipgloss.Color("#8a8577")
	lineColor  = lipgloss.Color("#3a352a")
	panelColor = lipgloss.Color("#16140f")

	sectionHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(goldColor)
	errorStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle           = lipgloss.NewStyle().Foreground(dimColor)
	progressStyle         = lipgloss.NewStyle().Bold(true).Foreground(goldColor)
	heroTitleStyle        = lipgloss.NewStyle().Bold(true).Foreground(inkColor)
	taglineStyle          = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	languageBadgeStyle    = lipgloss.NewStyle().Foreground(panelColor).Background(goldColor).Padding(0, 1)
	statusBarStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#b8a47e")).Padding(0, 1)
	footerStyle           = lipgloss.NewStyle().Foreground(dimColor)
	disclaimerBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lineColor).Padding(0, 2)
	disclaimerTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(goldColor)
	cardStyle             = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lineColor).Padding(0, 1).Width(cardWidth - 2).Height(cardBodyLines)
	cardSelectedStyle     = cardStyle.Copy().BorderForeground(goldColor)
	cardHeadingStyle      = lipgloss.NewStyle().Foreground(dimColor)
	cardTermStyle         = lipgloss.NewStyle().Bold(true).Foreground(inkColor)
	userLabelStyle        = lipgloss.NewStyle().Bold(true).Foreground(goldColor)
	replyLabelStyle       = lipgloss.NewStyle().Bold(true).Foreground(inkColor)
	composerBoxStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lineColor).Padding(0, 1)
	disabledComposerStyle = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	keyStyle              = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(goldColor).Padding(0, 1)
	keyDescStyle          = lipgloss.NewStyle().Foreground(inkColor)
	legendBoxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lineColor).Padding(0, 2)
)
