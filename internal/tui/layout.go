package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/sanctuary/internal/i18n"
	"github.com/csheth/sanctuary/internal/llm"
	"github.com/csheth/sanctuary/internal/session"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	composerWidth  int
	cardColumns    int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		composerWidth:  70,
		cardColumns:    2,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	l.composerWidth = innerWidth - 6
	if l.composerWidth < 20 {
		l.composerWidth = 20
	}

	// header, status bar, composer panel, footer and the blank lines between them
	const chrome = 9
	l.viewportHeight = height - chrome
	if l.viewportHeight < 6 {
		l.viewportHeight = 6
	}

	columns := (innerWidth + cardGutter) / (cardWidth + cardGutter)
	switch {
	case columns < 1:
		columns = 1
	case columns > 3:
		columns = 3
	}
	l.cardColumns = columns
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

// displayView is the scrollable body plus the line each card row starts on,
// so keyboard navigation can keep the selected card on screen.
type displayView struct {
	content  string
	cardRows map[int]int
}

func (m *model) buildDisplayContent() displayView {
	switch {
	case m.state.Status.Busy():
		return m.buildProgressContent()
	case m.state.Status == session.StatusReady && m.state.View == session.ViewDocument:
		return m.buildDocumentContent()
	case m.state.Status == session.StatusReady:
		return m.buildSanctuaryContent()
	default:
		return m.buildIdleContent()
	}
}

func (m *model) buildIdleContent() displayView {
	t := m.labels()
	cb := &contentBuilder{}
	cb.WriteString(taglineStyle.Render(t.Tagline))
	cb.WriteString("\n\n")
	m.writeDisclaimer(cb)
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render(t.Upload))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render(wordwrap.String(t.UploadDesc, m.wrapWidth(2))))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render(wordwrap.String(t.Terminal.PathHint, m.wrapWidth(2))))
	cb.WriteRune('\n')
	if len(m.state.Transcript) > 0 {
		cb.WriteRune('\n')
		m.writeDialogue(cb)
	}
	return displayView{content: cb.String(), cardRows: map[int]int{}}
}

func (m *model) buildProgressContent() displayView {
	t := m.labels()
	cb := &contentBuilder{}
	m.writeDisclaimer(cb)
	cb.WriteRune('\n')
	status := t.Initializing
	if m.state.Status == session.StatusAnalyzing {
		status = t.Synthesizing
	}
	cb.WriteString(progressStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), status)))
	cb.WriteRune('\n')
	if m.state.FileName != "" {
		cb.WriteString(helperStyle.Render(m.state.FileName))
		cb.WriteRune('\n')
	}
	cb.WriteString(helperStyle.Render(wordwrap.String(t.Decoding, m.wrapWidth(2))))
	cb.WriteRune('\n')
	if len(m.state.Transcript) > 0 {
		cb.WriteRune('\n')
		m.writeDialogue(cb)
	}
	return displayView{content: cb.String(), cardRows: map[int]int{}}
}

func (m *model) buildSanctuaryContent() displayView {
	t := m.labels()
	cb := &contentBuilder{}
	cb.WriteString(sectionHeaderStyle.Render(t.Axioms))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render(t.From + " " + m.state.FileName))
	cb.WriteString("\n\n")

	rows := map[int]int{}
	columns := m.layout.cardColumns
	for start := 0; start < len(m.state.Axioms); start += columns {
		end := start + columns
		if end > len(m.state.Axioms) {
			end = len(m.state.Axioms)
		}
		rows[start/columns] = cb.Line()
		cards := make([]string, 0, end-start)
		for idx := start; idx < end; idx++ {
			cards = append(cards, m.renderCard(idx, m.state.Axioms[idx]))
		}
		if m.state.Language == i18n.Arabic {
			reverse(cards)
		}
		cb.WriteString(joinCards(cards))
		cb.WriteRune('\n')
	}
	cb.WriteString(helperStyle.Render(m.labels().Terminal.GalleryHint))
	cb.WriteString("\n\n")
	m.writeDialogue(cb)
	return displayView{content: cb.String(), cardRows: rows}
}

func (m *model) buildDocumentContent() displayView {
	cb := &contentBuilder{}
	doc := m.state.Document
	if doc == nil {
		return m.buildSanctuaryContent()
	}
	t := m.labels().Terminal
	cb.WriteString(sectionHeaderStyle.Render(m.labels().ViewDocument))
	cb.WriteRune('\n')
	pages := t.PagesUnknown
	if doc.Pages > 0 {
		pages = fmt.Sprintf("%d", doc.Pages)
	}
	for _, row := range [][2]string{
		{t.FileLabel, doc.Name},
		{t.SizeLabel, humanBytes(doc.Size)},
		{t.PagesLabel, pages},
	} {
		cb.WriteString(m.align(fmt.Sprintf("%s  %s", cardHeadingStyle.Render(row[0]), row[1])))
		cb.WriteRune('\n')
	}
	cb.WriteRune('\n')
	preview := strings.TrimSpace(doc.Preview)
	if preview == "" {
		cb.WriteString(helperStyle.Render(t.NoTextLayer))
		cb.WriteRune('\n')
	} else {
		cb.WriteString(clipLines(wordwrap.String(preview, m.wrapWidth(2)), previewLineLimit))
		cb.WriteRune('\n')
	}
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render(t.BackHint))
	cb.WriteRune('\n')
	return displayView{content: cb.String(), cardRows: map[int]int{}}
}

func (m *model) writeDisclaimer(cb *contentBuilder) {
	t := m.labels()
	body := wordwrap.String(t.DisclaimerBody, m.wrapWidth(8))
	box := disclaimerBoxStyle.Render(disclaimerTitleStyle.Render(t.DisclaimerTitle) + "\n" + body)
	cb.WriteString(m.align(box))
	cb.WriteRune('\n')
}

func (m *model) writeDialogue(cb *contentBuilder) {
	t := m.labels()
	cb.WriteString(sectionHeaderStyle.Render(t.ChatTitle))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render(t.ChatDesc))
	cb.WriteString("\n\n")
	if len(m.state.Transcript) == 0 && !m.state.ReplyPending {
		cb.WriteString(helperStyle.Render(t.EmptyDialogue))
		cb.WriteRune('\n')
		return
	}
	wrap := m.wrapWidth(6)
	for idx, entry := range m.state.Transcript {
		label := t.ReplyLabel
		style := replyLabelStyle
		if entry.Role == llm.RoleUser {
			label = t.YouLabel
			style = userLabelStyle
		}
		cb.WriteString(m.align(style.Render(label)))
		cb.WriteRune('\n')
		body := indentMultiline(wordwrap.String(entry.Text, wrap), "  ")
		cb.WriteString(m.alignText(entry.Text, body))
		cb.WriteRune('\n')
		if idx < len(m.state.Transcript)-1 || m.state.ReplyPending {
			cb.WriteRune('\n')
		}
	}
	if m.state.ReplyPending {
		cb.WriteString(helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), t.ReplyLabel)))
		cb.WriteRune('\n')
	}
}

func (m *model) renderCard(idx int, axiom llm.Axiom) string {
	t := m.labels()
	heading := t.AxiomHeading(idx)
	text := axiom.Term
	body := cardTermStyle.Render(wordwrap.String(text, cardWidth-4))
	if m.flipped[idx] {
		text = axiom.Definition
		body = clipLines(wordwrap.String(text, cardWidth-4), cardBodyLines-1)
	}
	style := cardStyle
	if idx == m.cardCursor {
		style = cardSelectedStyle
	}
	if m.state.Language == i18n.Arabic || i18n.ContainsArabic(text) {
		style = style.Align(lipgloss.Right)
	}
	return style.Render(cardHeadingStyle.Render(heading) + "\n" + body)
}

func joinCards(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	spaced := make([]string, 0, len(cards)*2-1)
	gutter := strings.Repeat(" ", cardGutter)
	for i, card := range cards {
		if i > 0 {
			spaced = append(spaced, gutter)
		}
		spaced = append(spaced, card)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, spaced...)
}

// align right-aligns a rendered block when the interface is in Arabic.
func (m *model) align(block string) string {
	if m.state.Language != i18n.Arabic {
		return block
	}
	return lipgloss.PlaceHorizontal(m.wrapWidth(0), lipgloss.Right, block)
}

// alignText right-aligns block when its source text is Arabic, whatever
// the interface language.
func (m *model) alignText(source, block string) string {
	if m.state.Language != i18n.Arabic && !i18n.ContainsArabic(source) {
		return block
	}
	return lipgloss.PlaceHorizontal(m.wrapWidth(0), lipgloss.Right, block)
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func clipLines(text string, limit int) string {
	lines := strings.Split(text, "\n")
	if limit <= 0 || len(lines) <= limit {
		return text
	}
	return strings.Join(lines[:limit], "\n") + "…"
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func reverse(items []string) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
